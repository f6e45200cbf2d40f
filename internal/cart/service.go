package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCartNotFound     = pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	ErrItemNotFound     = pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	ErrVariantNotFound  = pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
	ErrInvalidQuantity  = pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	ErrUserRequired     = pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	errVariantMissingFK = errors.New("cart item has no variant loaded")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart operations scoped to a single user.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartView, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int64) (*CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error)
	// FindWithItems returns the user's cart with variants and products loaded,
	// or ErrCartNotFound when the user never created one.
	FindWithItems(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type service struct {
	repo CartRepository
	tx   txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// AddItemInput is the payload for adding a variant to the cart.
type AddItemInput struct {
	VariantID uuid.UUID
	Quantity  int64
}

// CartLine is a cart item priced at the variant's current price.
type CartLine struct {
	ID        uuid.UUID `json:"id"`
	VariantID uuid.UUID `json:"variantId"`
	ProductID uuid.UUID `json:"productId"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	Price     int64     `json:"price"`
	Quantity  int64     `json:"quantity"`
	LineTotal int64     `json:"lineTotal"`
	Stock     int64     `json:"stock"`
}

// CartView is the API representation of a cart.
type CartView struct {
	ID            uuid.UUID  `json:"id"`
	Items         []CartLine `json:"items"`
	TotalQuantity int64      `json:"totalQuantity"`
	Subtotal      int64      `json:"subtotal"`
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart.ID)
}

// AddItem merges into an existing line for the same variant.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartView, error) {
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.VariantExists(ctx, input.VariantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check variant")
		}
		if !ok {
			return ErrVariantNotFound
		}
		if err := repo.UpsertItem(ctx, cart.ID, input.VariantID, input.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart.ID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int64) (*CartView, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.UpdateItemQuantity(ctx, cart.ID, itemID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if rows == 0 {
		return nil, ErrItemNotFound
	}
	return s.view(ctx, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	if rows == 0 {
		return nil, ErrItemNotFound
	}
	return s.view(ctx, cart.ID)
}

func (s *service) FindWithItems(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrCartNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	cart.Items = items
	return cart, nil
}

func (s *service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if err := s.repo.Clear(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// getOrCreate lazily creates the cart. A concurrent creator wins the unique
// index on user_id and this call re-reads its row.
func (s *service) getOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{UserID: userID})
	if err == nil {
		return created, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	cart, err = s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return cart, nil
}

func (s *service) view(ctx context.Context, cartID uuid.UUID) (*CartView, error) {
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	view := &CartView{ID: cartID, Items: make([]CartLine, 0, len(items))}
	for _, item := range items {
		line, err := toLine(item)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart line")
		}
		view.Items = append(view.Items, line)
		view.TotalQuantity += line.Quantity
		view.Subtotal += line.LineTotal
	}
	return view, nil
}

func toLine(item models.CartItem) (CartLine, error) {
	if item.Variant == nil {
		return CartLine{}, errVariantMissingFK
	}
	line := CartLine{
		ID:        item.ID,
		VariantID: item.VariantID,
		ProductID: item.Variant.ProductID,
		Image:     item.Variant.Image,
		Price:     item.Variant.Price,
		Quantity:  item.Quantity,
		LineTotal: item.Variant.Price * item.Quantity,
		Stock:     item.Variant.Stock,
	}
	if item.Variant.Product != nil {
		line.Title = item.Variant.Product.Name
	}
	return line, nil
}

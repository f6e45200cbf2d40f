package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

const basisPointsDivisor = 10000

// Quote is the priced breakdown of a cart for one delivery option.
type Quote struct {
	Subtotal int64
	Shipping int64
	Tax      int64
	Total    int64
}

// Pricing prices carts from the configured delivery options and tax rate.
type Pricing struct {
	deliveryOptions map[string]int64
	taxBasisPoints  int64
}

// NewPricing builds a Pricing from checkout configuration.
func NewPricing(cfg config.CheckoutConfig) (*Pricing, error) {
	if len(cfg.DeliveryOptions) == 0 {
		return nil, fmt.Errorf("at least one delivery option required")
	}
	if cfg.TaxBasisPoints < 0 {
		return nil, fmt.Errorf("tax basis points must be non-negative")
	}
	options := make(map[string]int64, len(cfg.DeliveryOptions))
	for id, price := range cfg.DeliveryOptions {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" || price < 0 {
			return nil, fmt.Errorf("invalid delivery option %q", id)
		}
		options[key] = price
	}
	return &Pricing{deliveryOptions: options, taxBasisPoints: cfg.TaxBasisPoints}, nil
}

// ShippingFor returns the normalized option id and its price.
func (p *Pricing) ShippingFor(option string) (string, int64, bool) {
	key := strings.ToLower(strings.TrimSpace(option))
	price, ok := p.deliveryOptions[key]
	return key, price, ok
}

// Quote sums price x quantity in integer units; tax is rounded half up.
// Items must have their Variant loaded.
func (p *Pricing) Quote(items []models.CartItem, shipping int64) (Quote, error) {
	var subtotal int64
	for _, item := range items {
		if item.Variant == nil {
			return Quote{}, fmt.Errorf("cart item %s has no variant", item.ID)
		}
		if item.Quantity <= 0 {
			return Quote{}, fmt.Errorf("cart item %s has non-positive quantity", item.ID)
		}
		subtotal += item.Variant.Price * item.Quantity
	}
	tax := p.taxOn(subtotal)
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}, nil
}

func (p *Pricing) taxOn(subtotal int64) int64 {
	if p.taxBasisPoints == 0 || subtotal == 0 {
		return 0
	}
	return decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromInt(p.taxBasisPoints)).
		Div(decimal.NewFromInt(basisPointsDivisor)).
		Round(0).
		IntPart()
}

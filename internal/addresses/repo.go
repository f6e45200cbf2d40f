package addresses

import (
	"context"

	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads buyer addresses.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindForUser returns the address only when userID owns it.
func (r *Repository) FindForUser(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

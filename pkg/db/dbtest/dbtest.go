// Package dbtest opens isolated in-memory SQLite databases migrated with the
// full model set.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
)

var seq atomic.Int64

// Open returns a fresh database shared by a single connection so transactions
// and plain reads observe the same state.
func Open(t *testing.T) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db.FromGorm(conn)
}

// SeedVariant inserts a product with one variant.
func SeedVariant(t *testing.T, client *db.Client, name string, price, stock int64) *models.ProductVariant {
	t.Helper()
	product := &models.Product{Name: name}
	if err := client.DB().Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := &models.ProductVariant{
		ProductID: product.ID,
		Price:     price,
		Stock:     stock,
		Image:     "https://cdn.example.com/" + product.ID.String() + ".jpg",
	}
	if err := client.DB().Omit(clause.Associations).Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	variant.Product = product
	return variant
}

// SeedAddress inserts an address owned by userID.
func SeedAddress(t *testing.T, client *db.Client, userID uuid.UUID) *models.Address {
	t.Helper()
	addr := &models.Address{
		UserID:   userID,
		FullName: "Budi Santoso",
		Phone:    "+6281234567890",
		Address:  "Jl. Sudirman No. 1",
		City:     "Jakarta",
		State:    "DKI Jakarta",
		Country:  "Indonesia",
		Pincode:  "10220",
	}
	if err := client.DB().Create(addr).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}
	return addr
}

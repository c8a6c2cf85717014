package catalog

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
)

// newTestDB opens an isolated in-memory sqlite DB with the catalog tables.
// The schema is declared by hand because the Postgres defaults in the model
// tags do not translate to sqlite.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	ddl := []string{
		`CREATE TABLE product_variations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sku TEXT NOT NULL,
			price_cents INTEGER NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE price_tiers (
			id TEXT PRIMARY KEY,
			variation_id TEXT NOT NULL,
			min_quantity INTEGER NOT NULL,
			max_quantity INTEGER,
			unit_price_cents INTEGER NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func mustCreateVariation(t *testing.T, db *gorm.DB, priceCents, stock int) *models.ProductVariation {
	t.Helper()
	variation := &models.ProductVariation{
		ID:         uuid.New(),
		Name:       "Test Variation",
		SKU:        "SKU-" + uuid.NewString(),
		PriceCents: priceCents,
		Stock:      stock,
		IsActive:   true,
	}
	if err := db.Create(variation).Error; err != nil {
		t.Fatalf("seed variation: %v", err)
	}
	return variation
}

func mustCreateTier(t *testing.T, db *gorm.DB, variationID uuid.UUID, minQty int, maxQty *int, unitPriceCents, sortOrder int) *models.PriceTier {
	t.Helper()
	tier := &models.PriceTier{
		ID:             uuid.New(),
		VariationID:    variationID,
		MinQuantity:    minQty,
		MaxQuantity:    maxQty,
		UnitPriceCents: unitPriceCents,
		IsActive:       true,
		SortOrder:      sortOrder,
	}
	if err := db.Create(tier).Error; err != nil {
		t.Fatalf("seed tier: %v", err)
	}
	return tier
}

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
)

func TestRepository_AdjustStock_Decrements(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	variation := mustCreateVariation(t, db, 10000, 10)

	err := repo.AdjustStock(context.Background(), variation.ID, -4)
	require.NoError(t, err)

	var got models.ProductVariation
	require.NoError(t, db.Where("id = ?", variation.ID).First(&got).Error)
	assert.Equal(t, 6, got.Stock)
}

func TestRepository_AdjustStock_ExactlyToZero(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	variation := mustCreateVariation(t, db, 10000, 5)

	err := repo.AdjustStock(context.Background(), variation.ID, -5)
	require.NoError(t, err)

	var got models.ProductVariation
	require.NoError(t, db.Where("id = ?", variation.ID).First(&got).Error)
	assert.Equal(t, 0, got.Stock)
}

func TestRepository_AdjustStock_WouldGoNegative(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	variation := mustCreateVariation(t, db, 10000, 3)

	err := repo.AdjustStock(context.Background(), variation.ID, -5)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Stock untouched when the condition fails.
	var got models.ProductVariation
	require.NoError(t, db.Where("id = ?", variation.ID).First(&got).Error)
	assert.Equal(t, 3, got.Stock)
}

func TestRepository_AdjustStock_UnknownVariation(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	err := repo.AdjustStock(context.Background(), uuid.New(), -1)
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestRepository_FindVariation_PreloadsTiers(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	variation := mustCreateVariation(t, db, 10000, 10)
	mustCreateTier(t, db, variation.ID, 10, nil, 9000, 0)
	mustCreateTier(t, db, variation.ID, 50, nil, 8000, 1)

	got, err := repo.FindVariation(context.Background(), variation.ID)
	require.NoError(t, err)
	assert.Len(t, got.PriceTiers, 2)
}

func TestRepository_FindVariation_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindVariation(context.Background(), uuid.New())
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepository_FindActiveTiers_SkipsInactive(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	variation := mustCreateVariation(t, db, 10000, 10)
	active := mustCreateTier(t, db, variation.ID, 10, nil, 9000, 0)

	inactive := mustCreateTier(t, db, variation.ID, 50, nil, 8000, 1)
	require.NoError(t, db.Model(&models.PriceTier{}).
		Where("id = ?", inactive.ID).
		Update("is_active", false).Error)

	tiers, err := repo.FindActiveTiers(context.Background(), variation.ID)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, active.ID, tiers[0].ID)
}

func TestRepository_FindActiveTiers_OrderedBySortOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	variation := mustCreateVariation(t, db, 10000, 10)
	second := mustCreateTier(t, db, variation.ID, 10, nil, 9000, 2)
	first := mustCreateTier(t, db, variation.ID, 10, nil, 8500, 1)

	tiers, err := repo.FindActiveTiers(context.Background(), variation.ID)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, first.ID, tiers[0].ID)
	assert.Equal(t, second.ID, tiers[1].ID)
}

func TestRepository_CreateTier_AssignsID(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	variation := mustCreateVariation(t, db, 10000, 10)

	created, err := repo.CreateTier(context.Background(), &models.PriceTier{
		VariationID:    variation.ID,
		MinQuantity:    10,
		UnitPriceCents: 9000,
		IsActive:       true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
}

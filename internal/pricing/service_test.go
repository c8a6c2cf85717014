package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
)

type stubTierSource struct {
	variation *models.ProductVariation
	tiers     []models.PriceTier
	findErr   error
}

func (s *stubTierSource) FindVariation(_ context.Context, _ uuid.UUID) (*models.ProductVariation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.variation, nil
}

func (s *stubTierSource) FindActiveTiers(_ context.Context, _ uuid.UUID) ([]models.PriceTier, error) {
	return s.tiers, nil
}

func tier(minQty int, maxQty *int, unitPriceCents, sortOrder int) models.PriceTier {
	return models.PriceTier{
		ID:             uuid.New(),
		MinQuantity:    minQty,
		MaxQuantity:    maxQty,
		UnitPriceCents: unitPriceCents,
		IsActive:       true,
		SortOrder:      sortOrder,
	}
}

func TestPickTier_HighestMinQuantityWins(t *testing.T) {
	tiers := []models.PriceTier{
		tier(10, nil, 9000, 0),
		tier(50, nil, 8000, 0),
	}

	got := pickTier(tiers, 60)
	require.NotNil(t, got)
	assert.Equal(t, 8000, got.UnitPriceCents)

	got = pickTier(tiers, 30)
	require.NotNil(t, got)
	assert.Equal(t, 9000, got.UnitPriceCents)
}

func TestPickTier_NoMatchReturnsNil(t *testing.T) {
	tiers := []models.PriceTier{
		tier(10, nil, 9000, 0),
		tier(50, nil, 8000, 0),
	}
	assert.Nil(t, pickTier(tiers, 5))
}

func TestPickTier_MinQuantityIsInclusive(t *testing.T) {
	tiers := []models.PriceTier{tier(10, nil, 9000, 0)}

	got := pickTier(tiers, 10)
	require.NotNil(t, got)
	assert.Equal(t, 9000, got.UnitPriceCents)
}

func TestPickTier_MaxQuantityIsInclusive(t *testing.T) {
	maxQty := 20
	tiers := []models.PriceTier{tier(10, &maxQty, 9000, 0)}

	assert.NotNil(t, pickTier(tiers, 20))
	assert.Nil(t, pickTier(tiers, 21))
}

func TestPickTier_TieBrokenBySortOrder(t *testing.T) {
	first := tier(10, nil, 8500, 1)
	second := tier(10, nil, 9000, 2)
	tiers := []models.PriceTier{second, first}

	got := pickTier(tiers, 15)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
}

func TestPickTier_SkipsInactive(t *testing.T) {
	inactive := tier(50, nil, 8000, 0)
	inactive.IsActive = false
	tiers := []models.PriceTier{
		tier(10, nil, 9000, 0),
		inactive,
	}

	got := pickTier(tiers, 60)
	require.NotNil(t, got)
	assert.Equal(t, 9000, got.UnitPriceCents)
}

func TestPickTier_OverlappingBands(t *testing.T) {
	bandMax := 100
	tiers := []models.PriceTier{
		tier(1, &bandMax, 9500, 0),
		tier(10, &bandMax, 9000, 0),
		tier(50, nil, 8000, 0),
	}

	got := pickTier(tiers, 50)
	require.NotNil(t, got)
	assert.Equal(t, 8000, got.UnitPriceCents)
}

func TestResolveUnitPrice_TieredAndBase(t *testing.T) {
	variation := &models.ProductVariation{ID: uuid.New(), PriceCents: 10000, IsActive: true}
	src := &stubTierSource{
		variation: variation,
		tiers: []models.PriceTier{
			tier(10, nil, 9000, 0),
			tier(50, nil, 8000, 0),
		},
	}
	svc, err := NewService(src)
	require.NoError(t, err)

	cases := []struct {
		name       string
		quantity   int
		wantCents  int
		wantTiered bool
	}{
		{name: "quantity in top band", quantity: 60, wantCents: 8000, wantTiered: true},
		{name: "quantity in middle band", quantity: 30, wantCents: 9000, wantTiered: true},
		{name: "quantity below all bands", quantity: 5, wantCents: 10000, wantTiered: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.ResolveUnitPrice(context.Background(), variation.ID, tc.quantity)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCents, got.UnitPriceCents)
			assert.Equal(t, tc.quantity, got.Quantity)
			if tc.wantTiered {
				assert.NotNil(t, got.TierID)
			} else {
				assert.Nil(t, got.TierID)
			}
		})
	}
}

func TestResolveUnitPrice_NoTiersUsesBasePrice(t *testing.T) {
	variation := &models.ProductVariation{ID: uuid.New(), PriceCents: 12345, IsActive: true}
	svc, err := NewService(&stubTierSource{variation: variation})
	require.NoError(t, err)

	got, err := svc.ResolveUnitPrice(context.Background(), variation.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 12345, got.UnitPriceCents)
	assert.Nil(t, got.TierID)
}

func TestResolveUnitPrice_RejectsNonPositiveQuantity(t *testing.T) {
	svc, err := NewService(&stubTierSource{})
	require.NoError(t, err)

	_, err = svc.ResolveUnitPrice(context.Background(), uuid.New(), 0)
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
}

func TestResolveUnitPrice_InactiveVariation(t *testing.T) {
	variation := &models.ProductVariation{ID: uuid.New(), PriceCents: 10000, IsActive: false}
	svc, err := NewService(&stubTierSource{variation: variation})
	require.NoError(t, err)

	_, err = svc.ResolveUnitPrice(context.Background(), variation.ID, 2)
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

func TestResolveUnitPrice_VariationNotFound(t *testing.T) {
	svc, err := NewService(&stubTierSource{findErr: gorm.ErrRecordNotFound})
	require.NoError(t, err)

	_, err = svc.ResolveUnitPrice(context.Background(), uuid.New(), 10)
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

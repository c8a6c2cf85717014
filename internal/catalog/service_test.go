package catalog

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

type stubRepo struct {
	variation  *models.ProductVariation
	tier       *models.PriceTier
	findErr    error
	created    *models.PriceTier
	saved      *models.PriceTier
	adjustErr  error
	adjustCall struct {
		variationID uuid.UUID
		delta       int
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindVariation(_ context.Context, id uuid.UUID) (*models.ProductVariation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.variation, nil
}

func (s *stubRepo) FindVariations(_ context.Context, _ []uuid.UUID) ([]models.ProductVariation, error) {
	return nil, nil
}

func (s *stubRepo) FindActiveTiers(_ context.Context, _ uuid.UUID) ([]models.PriceTier, error) {
	return nil, nil
}

func (s *stubRepo) FindTier(_ context.Context, _ uuid.UUID) (*models.PriceTier, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.tier, nil
}

func (s *stubRepo) CreateTier(_ context.Context, tier *models.PriceTier) (*models.PriceTier, error) {
	tier.ID = uuid.New()
	s.created = tier
	return tier, nil
}

func (s *stubRepo) SaveTier(_ context.Context, tier *models.PriceTier) error {
	s.saved = tier
	return nil
}

func (s *stubRepo) AdjustStock(_ context.Context, variationID uuid.UUID, delta int) error {
	s.adjustCall.variationID = variationID
	s.adjustCall.delta = delta
	return s.adjustErr
}

func intPtr(v int) *int { return &v }

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, want, domainErr.Code())
}

func TestNewService_RequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}

func TestService_CreateTier_RejectsZeroMinQuantity(t *testing.T) {
	svc, err := NewService(&stubRepo{})
	require.NoError(t, err)

	_, err = svc.CreateTier(context.Background(), uuid.New(), TierInput{
		MinQuantity:    intPtr(0),
		UnitPriceCents: intPtr(9000),
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestService_CreateTier_RequiresMinAndPrice(t *testing.T) {
	svc, err := NewService(&stubRepo{})
	require.NoError(t, err)

	_, err = svc.CreateTier(context.Background(), uuid.New(), TierInput{UnitPriceCents: intPtr(9000)})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.CreateTier(context.Background(), uuid.New(), TierInput{MinQuantity: intPtr(10)})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestService_CreateTier_RejectsMaxNotAboveMin(t *testing.T) {
	svc, err := NewService(&stubRepo{})
	require.NoError(t, err)

	_, err = svc.CreateTier(context.Background(), uuid.New(), TierInput{
		MinQuantity:    intPtr(10),
		MaxQuantity:    intPtr(10),
		UnitPriceCents: intPtr(9000),
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestService_CreateTier_AllowsOpenEndedMax(t *testing.T) {
	repo := &stubRepo{variation: &models.ProductVariation{ID: uuid.New()}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	created, err := svc.CreateTier(context.Background(), repo.variation.ID, TierInput{
		MinQuantity:    intPtr(50),
		UnitPriceCents: intPtr(8000),
	})
	require.NoError(t, err)
	assert.Nil(t, created.MaxQuantity)
	assert.Equal(t, 50, created.MinQuantity)
	assert.True(t, created.IsActive)
}

func TestService_CreateTier_UnknownVariation(t *testing.T) {
	svc, err := NewService(&stubRepo{findErr: gorm.ErrRecordNotFound})
	require.NoError(t, err)

	_, err = svc.CreateTier(context.Background(), uuid.New(), TierInput{
		MinQuantity:    intPtr(10),
		UnitPriceCents: intPtr(9000),
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestService_UpdateTier_ValidatesMergedBounds(t *testing.T) {
	existingMax := 20
	repo := &stubRepo{tier: &models.PriceTier{
		ID:             uuid.New(),
		MinQuantity:    10,
		MaxQuantity:    &existingMax,
		UnitPriceCents: 9000,
		IsActive:       true,
	}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	// Raising min above the retained max must fail.
	_, err = svc.UpdateTier(context.Background(), repo.tier.ID, TierInput{MinQuantity: intPtr(25)})
	assertCode(t, err, pkgerrors.CodeValidation)
	assert.Nil(t, repo.saved)
}

func TestService_UpdateTier_AppliesChanges(t *testing.T) {
	repo := &stubRepo{tier: &models.PriceTier{
		ID:             uuid.New(),
		MinQuantity:    10,
		UnitPriceCents: 9000,
		IsActive:       true,
	}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	inactive := false
	updated, err := svc.UpdateTier(context.Background(), repo.tier.ID, TierInput{
		MinQuantity:    intPtr(15),
		UnitPriceCents: intPtr(8500),
		IsActive:       &inactive,
		SortOrder:      intPtr(3),
	})
	require.NoError(t, err)
	require.NotNil(t, repo.saved)
	assert.Equal(t, 15, updated.MinQuantity)
	assert.Equal(t, 8500, updated.UnitPriceCents)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 3, updated.SortOrder)
}

func TestService_UpdateTier_ZeroValuesAreSettable(t *testing.T) {
	repo := &stubRepo{tier: &models.PriceTier{
		ID:             uuid.New(),
		MinQuantity:    10,
		UnitPriceCents: 9000,
		IsActive:       true,
	}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	// A free tier (price 0) and a lowered minimum are both legitimate
	// patches; absent fields keep their current values.
	updated, err := svc.UpdateTier(context.Background(), repo.tier.ID, TierInput{
		MinQuantity:    intPtr(1),
		UnitPriceCents: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.MinQuantity)
	assert.Equal(t, 0, updated.UnitPriceCents)
	assert.True(t, updated.IsActive)
}

func TestService_UpdateTier_OmittedFieldsRetained(t *testing.T) {
	repo := &stubRepo{tier: &models.PriceTier{
		ID:             uuid.New(),
		MinQuantity:    10,
		UnitPriceCents: 9000,
		IsActive:       true,
		SortOrder:      2,
	}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	updated, err := svc.UpdateTier(context.Background(), repo.tier.ID, TierInput{SortOrder: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.MinQuantity)
	assert.Equal(t, 9000, updated.UnitPriceCents)
	assert.Equal(t, 5, updated.SortOrder)
}

func TestService_UpdateTier_NotFound(t *testing.T) {
	svc, err := NewService(&stubRepo{findErr: gorm.ErrRecordNotFound})
	require.NoError(t, err)

	_, err = svc.UpdateTier(context.Background(), uuid.New(), TierInput{MinQuantity: intPtr(10)})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestService_AdjustStock_MapsInsufficientStock(t *testing.T) {
	repo := &stubRepo{adjustErr: ErrInsufficientStock}
	svc, err := NewService(repo)
	require.NoError(t, err)

	err = svc.AdjustStock(context.Background(), uuid.New(), -5)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, -5, repo.adjustCall.delta)
}

func TestService_GetVariation_NotFound(t *testing.T) {
	svc, err := NewService(&stubRepo{findErr: gorm.ErrRecordNotFound})
	require.NoError(t, err)

	_, err = svc.GetVariation(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

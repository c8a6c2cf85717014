package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/internal/pricing"
	"github.com/storefrontlabs/storefront/pkg/db/models"
	pkgerrors "github.com/storefrontlabs/storefront/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines cart operations exposed to controllers and checkout.
type Service interface {
	GetOrCreate(ctx context.Context, identity Identity) (*models.CartRecord, error)
	AddItem(ctx context.Context, identity Identity, variationID uuid.UUID, quantity int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, identity Identity, variationID uuid.UUID) (*models.CartRecord, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type service struct {
	tx      txRunner
	repo    Repository
	pricing pricing.Service
}

// NewService builds the cart service.
func NewService(tx txRunner, repo Repository, pricingSvc pricing.Service) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if pricingSvc == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	return &service{tx: tx, repo: repo, pricing: pricingSvc}, nil
}

func (s *service) GetOrCreate(ctx context.Context, identity Identity) (*models.CartRecord, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.repo.FindActiveCart(ctx, identity)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	created, err := s.repo.CreateCart(ctx, &models.CartRecord{
		UserID:    identity.UserID,
		SessionID: identity.SessionID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return created, nil
}

func (s *service) AddItem(ctx context.Context, identity Identity, variationID uuid.UUID, quantity int) (*models.CartRecord, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	cart, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, variationID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	mergedQty := quantity
	if existing != nil {
		mergedQty += existing.Quantity
	}

	// The applicable tier depends on the merged quantity, so the line price
	// is re-resolved on every add.
	resolution, err := s.pricing.ResolveUnitPrice(ctx, variationID, mergedQty)
	if err != nil {
		return nil, err
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if existing != nil {
			existing.Quantity = mergedQty
			existing.UnitPriceCents = resolution.UnitPriceCents
			existing.LineTotalCents = mergedQty * resolution.UnitPriceCents
			if err := repo.SaveItem(ctx, existing); err != nil {
				return err
			}
		} else {
			item := &models.CartItem{
				CartID:         cart.ID,
				VariationID:    variationID,
				Quantity:       mergedQty,
				UnitPriceCents: resolution.UnitPriceCents,
				LineTotalCents: mergedQty * resolution.UnitPriceCents,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return err
			}
		}
		return recomputeTotals(ctx, repo, cart.ID)
	})
	if txErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "adding cart item")
	}

	return s.reload(ctx, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, identity Identity, variationID uuid.UUID) (*models.CartRecord, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.repo.FindActiveCart(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, variationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		return recomputeTotals(ctx, repo, cart.ID)
	})
	if txErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "removing cart item")
	}

	return s.reload(ctx, cart.ID)
}

// Clear empties the cart and retires it. Settlement calls this best-effort
// after a completed payment; until then the cart stays active so a rejected
// payment leaves the shopper able to retry.
func (s *service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if cartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteItems(ctx, cartID); err != nil {
			return err
		}
		if err := repo.MarkConverted(ctx, cartID); err != nil {
			return err
		}
		return recomputeTotals(ctx, repo, cartID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func recomputeTotals(ctx context.Context, repo Repository, cartID uuid.UUID) error {
	cart, err := repo.FindCart(ctx, cartID)
	if err != nil {
		return err
	}

	itemCount := 0
	totalCents := 0
	for _, item := range cart.Items {
		itemCount += item.Quantity
		totalCents += item.LineTotalCents
	}
	cart.ItemCount = itemCount
	cart.TotalCents = totalCents
	return repo.SaveCart(ctx, cart)
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.repo.FindCart(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return cart, nil
}

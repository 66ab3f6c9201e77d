package payment

import (
	"context"
	"fmt"

	"github.com/YaoKonate/SikaMarket/app/models"
	"github.com/YaoKonate/SikaMarket/app/repository"
)

// Grantor turns completed content transactions into durable access grants.
// Granting is idempotent: the unique (user, content) purchase index decides
// whether a row is created, so concurrent or repeated grants for the same
// pair collapse into one purchase.
type Grantor struct {
	purchases repository.PurchaseRepository
}

// NewGrantor creates a grantor from an injected repository.
func NewGrantor(purchases repository.PurchaseRepository) *Grantor {
	return &Grantor{purchases: purchases}
}

// GrantResult reports the stored purchase and whether it predates this call.
type GrantResult struct {
	Purchase       *models.Purchase
	AlreadyGranted bool
}

// Grant creates the purchase for a completed content transaction. A purchase
// that already exists — from this transaction or any earlier one — is an
// already-satisfied outcome, not an error.
func (g *Grantor) Grant(ctx context.Context, tx *models.Transaction) (*GrantResult, error) {
	_ = ctx
	if tx.Status != models.TransactionStatusCompleted {
		return nil, fmt.Errorf("cannot grant access for transaction %s in status %s", tx.ID, tx.Status)
	}
	if tx.ProductType != models.ProductTypeContent {
		return nil, fmt.Errorf("cannot grant content access for product type %s", tx.ProductType)
	}

	purchase := &models.Purchase{
		UserID:        tx.UserID,
		ContentID:     tx.ProductID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		TransactionID: tx.ID,
	}

	created, stored, err := g.purchases.CreateIfNotExists(purchase)
	if err != nil {
		return nil, err
	}
	return &GrantResult{
		Purchase:       stored,
		AlreadyGranted: !created,
	}, nil
}

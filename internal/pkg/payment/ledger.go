package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/YaoKonate/SikaMarket/app/models"
	"github.com/YaoKonate/SikaMarket/app/repository"
)

// Ledger owns the transaction lifecycle: rows start pending, move to exactly
// one terminal state, keep their external id forever once attached, and
// accumulate audit metadata by shallow merge.
type Ledger struct {
	repo repository.TransactionRepository
}

// NewLedger creates a ledger from an injected repository.
func NewLedger(repo repository.TransactionRepository) *Ledger {
	return &Ledger{repo: repo}
}

// CreateParams describes a new payment attempt.
type CreateParams struct {
	UserID        uint
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	Provider      string
	ProductType   string
	ProductID     uint
	Metadata      map[string]interface{}
}

// Create opens a new pending transaction.
func (l *Ledger) Create(ctx context.Context, p CreateParams) (*models.Transaction, error) {
	_ = ctx
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, p.Amount)
	}
	if !models.IsKnownProvider(p.Provider) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p.Provider)
	}

	patch := map[string]interface{}{
		"initiatedAt": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range p.Metadata {
		patch[k] = v
	}
	metadata, err := models.MergeJSON(nil, patch)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:            uuid.NewString(),
		UserID:        p.UserID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        models.TransactionStatusPending,
		PaymentMethod: p.PaymentMethod,
		Provider:      p.Provider,
		ProductType:   p.ProductType,
		ProductID:     p.ProductID,
		Metadata:      metadata,
	}
	if err := l.repo.Create(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// AttachExternalID records the provider-side transaction id. Re-attaching
// the same value is a no-op; attaching a different one is a provider data
// anomaly and is rejected, never silently overwritten.
func (l *Ledger) AttachExternalID(ctx context.Context, id, externalID string) error {
	_ = ctx
	if externalID == "" {
		return fmt.Errorf("%w: empty external id", ErrExternalIDConflict)
	}

	updated, err := l.repo.SetExternalIDIfEmpty(id, externalID)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	tx, err := l.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}
	if tx.ExternalRef() == externalID {
		return nil
	}
	log.Printf("SECURITY: transaction %s external id conflict: have %q, got %q", id, tx.ExternalRef(), externalID)
	return fmt.Errorf("%w: transaction %s", ErrExternalIDConflict, id)
}

// UpdateStatus applies a reconciled status with merged metadata. The boolean
// reports whether this call performed the pending→terminal flip; duplicate
// deliveries of an already-applied terminal status only merge metadata.
// Moving a terminal transaction to a different terminal status is rejected.
func (l *Ledger) UpdateStatus(ctx context.Context, id, newStatus string, patch map[string]interface{}) (*models.Transaction, bool, error) {
	_ = ctx
	tx, err := l.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, err
	}

	merged, err := models.MergeJSON(tx.Metadata, patch)
	if err != nil {
		return nil, false, err
	}

	// Same status again: absorb the duplicate, keep the audit trail growing.
	if tx.Status == newStatus {
		if err := l.repo.UpdateMetadata(id, merged); err != nil {
			return nil, false, err
		}
		tx.Metadata = merged
		return tx, false, nil
	}

	if tx.IsTerminal() {
		log.Printf("SECURITY: refusing status change %s -> %s on terminal transaction %s", tx.Status, newStatus, id)
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, tx.Status, newStatus)
	}

	// Still pending on the provider side: metadata-only update.
	if newStatus == models.TransactionStatusPending {
		if err := l.repo.UpdateMetadata(id, merged); err != nil {
			return nil, false, err
		}
		tx.Metadata = merged
		return tx, false, nil
	}

	swapped, err := l.repo.CompareAndSwapStatus(id, models.TransactionStatusPending, newStatus, merged)
	if err != nil {
		return nil, false, err
	}
	if !swapped {
		// A concurrent callback won the swap. Re-read to classify, and merge
		// this delivery's patch on top of the winner's metadata so neither
		// audit record is lost.
		current, err := l.repo.GetByID(id)
		if err != nil {
			return nil, false, err
		}
		if current.Status == newStatus {
			remerged, err := models.MergeJSON(current.Metadata, patch)
			if err != nil {
				return nil, false, err
			}
			if err := l.repo.UpdateMetadata(id, remerged); err != nil {
				return nil, false, err
			}
			current.Metadata = remerged
			return current, false, nil
		}
		log.Printf("SECURITY: refusing status change %s -> %s on terminal transaction %s", current.Status, newStatus, id)
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, newStatus)
	}

	tx.Status = newStatus
	tx.Metadata = merged
	return tx, true, nil
}

// FindByID looks a transaction up by its internal id.
func (l *Ledger) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	_ = ctx
	tx, err := l.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// FindByExternalID looks a transaction up by provider and external id.
func (l *Ledger) FindByExternalID(ctx context.Context, provider, externalID string) (*models.Transaction, error) {
	_ = ctx
	tx, err := l.repo.GetByExternalID(provider, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

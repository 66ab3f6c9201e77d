package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/YaoKonate/SikaMarket/app/models"
	"github.com/YaoKonate/SikaMarket/app/repository"
)

// Reconciler processes provider callbacks: it verifies authenticity,
// re-fetches the authoritative status from the provider API, applies the
// result to the ledger and grants content access on completion. The callback
// body is only ever used to locate the transaction — its claimed status is
// recorded for audit but never acted upon.
type Reconciler struct {
	registry *Registry
	ledger   *Ledger
	grantor  *Grantor
	events   repository.WebhookEventRepository
}

// NewReconciler wires the callback pipeline.
func NewReconciler(registry *Registry, ledger *Ledger, grantor *Grantor, events repository.WebhookEventRepository) *Reconciler {
	return &Reconciler{
		registry: registry,
		ledger:   ledger,
		grantor:  grantor,
		events:   events,
	}
}

// ReconciliationResult is the outcome of one processed callback.
type ReconciliationResult struct {
	TransactionID string
	Status        string
	// Granted is true when this callback created the purchase.
	Granted bool
	// Duplicate is true when the terminal status had already been applied
	// by an earlier delivery.
	Duplicate bool
}

// HandleCallback runs the full reconciliation pipeline for one webhook
// delivery. Signature failures abort before any parsing; ledger state is
// only touched after the provider API confirmed the authoritative status.
func (r *Reconciler) HandleCallback(ctx context.Context, providerName string, rawBody []byte, signatureHeader string) (*ReconciliationResult, error) {
	adapter, err := r.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	if !VerifyCallback(rawBody, signatureHeader, adapter) {
		log.Printf("SECURITY: rejected %s callback with bad or missing signature", adapter.Name())
		r.recordEvent(adapter.Name(), "", rawBody, false)
		return nil, ErrInvalidSignature
	}

	event, err := adapter.ParseCallback(rawBody)
	if err != nil {
		return nil, err
	}

	_, stored, eventErr := r.recordEvent(adapter.Name(), event.EventID, rawBody, true)
	if eventErr != nil {
		log.Printf("failed to persist %s webhook event: %v", adapter.Name(), eventErr)
	}

	tx, err := r.ledger.FindByExternalID(ctx, adapter.Name(), event.ExternalID)
	if err != nil {
		// Callbacks for transactions we do not know (other environment,
		// other tenant) must not crash the handler.
		r.markProcessed(stored, err)
		return nil, err
	}

	// Never trust the callback body's stated status: re-fetch from the
	// provider. A failure here leaves the transaction untouched so the
	// provider's redelivery can retry the whole pipeline.
	status, err := adapter.FetchStatus(ctx, event.ExternalID)
	if err != nil {
		r.markProcessed(stored, err)
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	patch := map[string]interface{}{
		"callbackReceivedAt": now,
		"callbackPayload":    json.RawMessage(rawBody),
		"callbackStatusHint": event.StatusHint,
		"providerStatus":     status.ProviderStatus,
		"statusCheckedAt":    now,
		"statusPayload":      status.Raw,
	}

	updated, changed, err := r.ledger.UpdateStatus(ctx, tx.ID, status.Status, patch)
	if err != nil {
		r.markProcessed(stored, err)
		return nil, err
	}

	result := &ReconciliationResult{
		TransactionID: updated.ID,
		Status:        updated.Status,
		Duplicate:     !changed && updated.IsTerminal(),
	}

	// Grant on every completed delivery, not only the first: the purchase
	// index makes Grant idempotent, and re-running it closes the window
	// where a crash after the status flip would otherwise lose the grant.
	if updated.Status == models.TransactionStatusCompleted && updated.ProductType == models.ProductTypeContent {
		grant, err := r.grantor.Grant(ctx, updated)
		if err != nil {
			r.markProcessed(stored, err)
			return nil, err
		}
		result.Granted = !grant.AlreadyGranted
	}

	r.markProcessed(stored, nil)
	return result, nil
}

// recordEvent persists the raw delivery for audit, deduplicated on the
// provider event id (or a payload hash when the provider sends none).
func (r *Reconciler) recordEvent(provider, eventID string, rawBody []byte, signatureValid bool) (bool, *models.WebhookEvent, error) {
	if r.events == nil {
		return false, nil, nil
	}
	if eventID == "" {
		sum := sha256.Sum256(rawBody)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}
	return r.events.CreateIfNotExists(&models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
}

func (r *Reconciler) markProcessed(event *models.WebhookEvent, processingErr error) {
	if r.events == nil || event == nil {
		return
	}
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}
	if err := r.events.MarkProcessed(event.ID, msg); err != nil {
		log.Printf("failed to mark webhook event %d processed: %v", event.ID, err)
	}
}

package payment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaoKonate/SikaMarket/app/models"
)

func newTestLedger() (*Ledger, *fakeTransactionRepo) {
	repo := newFakeTransactionRepo()
	return NewLedger(repo), repo
}

func openPending(t *testing.T, l *Ledger) *models.Transaction {
	t.Helper()
	tx, err := l.Create(context.Background(), CreateParams{
		UserID:      7,
		Amount:      decimal.NewFromInt(500),
		Currency:    "XOF",
		Provider:    models.ProviderCinetPay,
		ProductType: models.ProductTypeContent,
		ProductID:   42,
	})
	require.NoError(t, err)
	return tx
}

func TestLedgerCreateOpensPending(t *testing.T) {
	l, _ := newTestLedger()

	tx, err := l.Create(context.Background(), CreateParams{
		UserID:      7,
		Amount:      decimal.NewFromInt(500),
		Currency:    "XOF",
		Provider:    models.ProviderPayDunya,
		ProductType: models.ProductTypeContent,
		ProductID:   42,
		Metadata:    map[string]interface{}{"description": "ebook"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Nil(t, tx.ExternalID)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(tx.Metadata, &meta))
	assert.Equal(t, "ebook", meta["description"])
	assert.NotEmpty(t, meta["initiatedAt"])
}

func TestLedgerCreateRejectsBadInput(t *testing.T) {
	l, _ := newTestLedger()

	_, err := l.Create(context.Background(), CreateParams{
		Amount:   decimal.Zero,
		Provider: models.ProviderCinetPay,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Create(context.Background(), CreateParams{
		Amount:   decimal.NewFromInt(-100),
		Provider: models.ProviderCinetPay,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Create(context.Background(), CreateParams{
		Amount:   decimal.NewFromInt(100),
		Provider: "stripe",
	})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestLedgerAttachExternalID(t *testing.T) {
	l, repo := newTestLedger()
	tx := openPending(t, l)

	require.NoError(t, l.AttachExternalID(context.Background(), tx.ID, "ext-1"))

	stored, err := repo.GetByID(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "ext-1", stored.ExternalRef())

	// Re-attaching the same value is a no-op.
	require.NoError(t, l.AttachExternalID(context.Background(), tx.ID, "ext-1"))

	// A different value is rejected, never overwritten.
	err = l.AttachExternalID(context.Background(), tx.ID, "ext-2")
	assert.ErrorIs(t, err, ErrExternalIDConflict)
	stored, err = repo.GetByID(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "ext-1", stored.ExternalRef())
}

func TestLedgerPendingRowsWithoutExternalIDDoNotCollide(t *testing.T) {
	l, repo := newTestLedger()

	// Several not-yet-attached rows per provider must coexist: the unique
	// (provider, external_id) pair only bites once an id is attached. An
	// orphaned pending row from a failed session must never block new ones.
	first := openPending(t, l)
	second := openPending(t, l)
	third := openPending(t, l)
	assert.Nil(t, first.ExternalID)
	assert.Nil(t, second.ExternalID)
	assert.Nil(t, third.ExternalID)

	require.NoError(t, l.AttachExternalID(context.Background(), first.ID, "ext-1"))

	// Attaching an id already held by another row of the same provider
	// trips the index instead of corrupting the pair.
	err := l.AttachExternalID(context.Background(), second.ID, "ext-1")
	assert.Error(t, err)

	stored, err := repo.GetByID(second.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ExternalID)
}

func TestLedgerUpdateStatusMergesPatchWhenSwapIsLost(t *testing.T) {
	l, repo := newTestLedger()
	tx := openPending(t, l)

	// A concurrent delivery wins the flip between this call's read and its
	// swap; the loser's audit patch must still land.
	repo.beforeCAS = func() {
		_, changed, err := l.UpdateStatus(context.Background(), tx.ID, models.TransactionStatusCompleted, map[string]interface{}{"winner": true})
		require.NoError(t, err)
		require.True(t, changed)
	}

	updated, changed, err := l.UpdateStatus(context.Background(), tx.ID, models.TransactionStatusCompleted, map[string]interface{}{"loser": true})
	require.NoError(t, err)
	assert.False(t, changed)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(updated.Metadata, &meta))
	assert.Equal(t, true, meta["winner"])
	assert.Equal(t, true, meta["loser"])
}

func TestLedgerAttachExternalIDUnknownTransaction(t *testing.T) {
	l, _ := newTestLedger()
	err := l.AttachExternalID(context.Background(), "missing", "ext-1")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestLedgerUpdateStatusFlipsPendingOnce(t *testing.T) {
	l, _ := newTestLedger()
	tx := openPending(t, l)

	updated, changed, err := l.UpdateStatus(context.Background(), tx.ID, models.TransactionStatusCompleted, map[string]interface{}{"first": true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.TransactionStatusCompleted, updated.Status)

	// Redelivery of the same terminal status merges metadata without a flip.
	updated, changed, err = l.UpdateStatus(context.Background(), tx.ID, models.TransactionStatusCompleted, map[string]interface{}{"second": true})
	require.NoError(t, err)
	assert.False(t, changed)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(updated.Metadata, &meta))
	assert.Equal(t, true, meta["first"])
	assert.Equal(t, true, meta["second"])
}

func TestLedgerUpdateStatusRejectsTerminalCrossover(t *testing.T) {
	l, _ := newTestLedger()
	tx := openPending(t, l)

	_, changed, err := l.UpdateStatus(context.Background(), tx.ID, models.TransactionStatusFailed, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	_, _, err = l.UpdateStatus(context.Background(), tx.ID, models.TransactionStatusCompleted, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLedgerUpdateStatusPendingIsMetadataOnly(t *testing.T) {
	l, repo := newTestLedger()
	tx := openPending(t, l)

	updated, changed, err := l.UpdateStatus(context.Background(), tx.ID, models.TransactionStatusPending, map[string]interface{}{"snapshot": "x"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.TransactionStatusPending, updated.Status)

	stored, err := repo.GetByID(tx.ID)
	require.NoError(t, err)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(stored.Metadata, &meta))
	assert.Equal(t, "x", meta["snapshot"])
}

func TestLedgerFindByExternalID(t *testing.T) {
	l, _ := newTestLedger()
	tx := openPending(t, l)
	require.NoError(t, l.AttachExternalID(context.Background(), tx.ID, "ext-9"))

	found, err := l.FindByExternalID(context.Background(), models.ProviderCinetPay, "ext-9")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, found.ID)

	_, err = l.FindByExternalID(context.Background(), models.ProviderCinetPay, "nope")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/YaoKonate/SikaMarket/app/models"
)

// fakeTransactionRepo enforces the same unique (provider, external_id) pair
// as the real table: NULL external ids never collide, attached ones must be
// unique per provider.
type fakeTransactionRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Transaction

	// beforeCAS, when set, runs once at the start of the next
	// CompareAndSwapStatus call to simulate a concurrent delivery winning
	// the race between a caller's read and its swap.
	beforeCAS func()
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{rows: map[string]*models.Transaction{}}
}

func (r *fakeTransactionRepo) externalIDTakenLocked(provider, externalID, exceptID string) bool {
	for _, tx := range r.rows {
		if tx.ID != exceptID && tx.Provider == provider && tx.ExternalID != nil && *tx.ExternalID == externalID {
			return true
		}
	}
	return false
}

func (r *fakeTransactionRepo) Create(tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[tx.ID]; ok {
		return fmt.Errorf("duplicate id %s", tx.ID)
	}
	if tx.ExternalID != nil && r.externalIDTakenLocked(tx.Provider, *tx.ExternalID, tx.ID) {
		return fmt.Errorf("unique constraint violation on (provider, external_id): (%s, %s)", tx.Provider, *tx.ExternalID)
	}
	cp := *tx
	r.rows[tx.ID] = &cp
	return nil
}

func (r *fakeTransactionRepo) GetByID(id string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *fakeTransactionRepo) GetByExternalID(provider, externalID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.rows {
		if tx.Provider == provider && tx.ExternalID != nil && *tx.ExternalID == externalID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTransactionRepo) SetExternalIDIfEmpty(id, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	if tx.ExternalID != nil {
		return false, nil
	}
	if r.externalIDTakenLocked(tx.Provider, externalID, id) {
		return false, fmt.Errorf("unique constraint violation on (provider, external_id): (%s, %s)", tx.Provider, externalID)
	}
	tx.ExternalID = &externalID
	return true, nil
}

func (r *fakeTransactionRepo) CompareAndSwapStatus(id, fromStatus, toStatus string, metadata models.JSON) (bool, error) {
	if r.beforeCAS != nil {
		hook := r.beforeCAS
		r.beforeCAS = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok || tx.Status != fromStatus {
		return false, nil
	}
	tx.Status = toStatus
	tx.Metadata = metadata
	return true, nil
}

func (r *fakeTransactionRepo) UpdateMetadata(id string, metadata models.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	tx.Metadata = metadata
	return nil
}

type fakePurchaseRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Purchase
	next uint
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{rows: map[string]*models.Purchase{}}
}

func purchaseKey(userID, contentID uint) string {
	return fmt.Sprintf("%d:%d", userID, contentID)
}

func (r *fakePurchaseRepo) CreateIfNotExists(p *models.Purchase) (bool, *models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := purchaseKey(p.UserID, p.ContentID)
	if existing, ok := r.rows[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	r.next++
	cp := *p
	cp.ID = r.next
	r.rows[key] = &cp
	out := cp
	return true, &out, nil
}

func (r *fakePurchaseRepo) GetByUserAndContent(userID, contentID uint) (*models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[purchaseKey(userID, contentID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePurchaseRepo) ListByUser(userID uint, offset, limit int) ([]models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Purchase
	for _, p := range r.rows {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePurchaseRepo) CountByUser(userID uint) (int64, error) {
	list, _ := r.ListByUser(userID, 0, 0)
	return int64(len(list)), nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	rows   map[string]*models.WebhookEvent
	next   uint
	marked map[uint]string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{rows: map[string]*models.WebhookEvent{}, marked: map[uint]string{}}
}

func (r *fakeEventRepo) CreateIfNotExists(e *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := e.Provider + ":" + e.ProviderEventID
	if existing, ok := r.rows[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	r.next++
	cp := *e
	cp.ID = r.next
	r.rows[key] = &cp
	out := cp
	return true, &out, nil
}

func (r *fakeEventRepo) MarkProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked[id] = processingError
	return nil
}

// fakeAdapter is a scriptable provider for pipeline tests. Callbacks are JSON
// {"external_id": ..., "event_id": ..., "status": ...} signed with Secret.
type fakeAdapter struct {
	name   string
	Secret string

	status      *ProviderStatus
	statusErr   error
	fetchCalled int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{name: models.ProviderCinetPay, Secret: "test-secret"}
}

func (a *fakeAdapter) Name() string            { return a.name }
func (a *fakeAdapter) SignatureHeader() string { return "X-Test-Signature" }

func (a *fakeAdapter) PrepareSession(ctx context.Context, params SessionParams) (*SessionResult, error) {
	return &SessionResult{
		ExternalID:   "ext-" + params.TransactionID,
		WidgetConfig: map[string]interface{}{"transaction_id": "ext-" + params.TransactionID},
	}, nil
}

func (a *fakeAdapter) FetchStatus(ctx context.Context, externalID string) (*ProviderStatus, error) {
	a.fetchCalled++
	if a.statusErr != nil {
		return nil, a.statusErr
	}
	return a.status, nil
}

func (a *fakeAdapter) VerifySignature(rawBody []byte, signatureHeader string) bool {
	return verifyHMACSHA256Hex(rawBody, signatureHeader, a.Secret)
}

func (a *fakeAdapter) ParseCallback(rawBody []byte) (*CallbackEvent, error) {
	var cb struct {
		ExternalID string `json:"external_id"`
		EventID    string `json:"event_id"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(rawBody, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if cb.ExternalID == "" {
		return nil, fmt.Errorf("%w: missing external_id", ErrInvalidPayload)
	}
	return &CallbackEvent{ExternalID: cb.ExternalID, EventID: cb.EventID, StatusHint: cb.Status}, nil
}

func (a *fakeAdapter) MapStatus(providerStatus string) string {
	switch strings.ToLower(providerStatus) {
	case "ok":
		return models.TransactionStatusCompleted
	case "ko":
		return models.TransactionStatusFailed
	default:
		return models.TransactionStatusPending
	}
}

func signHex(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func jsonDecode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

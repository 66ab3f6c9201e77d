package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaoKonate/SikaMarket/app/models"
)

func testPayDunyaClient(baseURL string) *PayDunyaClient {
	return &PayDunyaClient{
		MasterKey:  "master-key",
		PrivateKey: "private-key",
		Token:      "token",
		APIBaseURL: baseURL,
		Sandbox:    true,
		HTTPClient: http.DefaultClient,
	}
}

func samplePayDunyaSession() SessionParams {
	return SessionParams{
		TransactionID: "tx-1",
		Amount:        decimal.NewFromInt(1500),
		Currency:      "XOF",
		Description:   "ebook",
		Customer:      Customer{Name: "Awa", Email: "awa@example.com", Phone: "225197979797"},
		NotifyURL:     "https://shop.example/api/v1/payments/webhook/paydunya",
		ReturnURL:     "https://shop.example/payments/return",
	}
}

func TestPayDunyaPrepareSessionChainsBothCalls(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		require.Equal(t, "master-key", r.Header.Get("PAYDUNYA-MASTER-KEY"))
		require.Equal(t, "private-key", r.Header.Get("PAYDUNYA-PRIVATE-KEY"))
		require.Equal(t, "token", r.Header.Get("PAYDUNYA-TOKEN"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/customers":
			_, _ = w.Write([]byte(`{"response_code":"00","response_text":"Customer created","customer_id":"cust-7"}`))
		case "/checkout-invoices/create":
			var payload map[string]interface{}
			require.NoError(t, jsonDecode(r, &payload))
			custom := payload["custom_data"].(map[string]interface{})
			require.Equal(t, "tx-1", custom["transaction_id"])
			require.Equal(t, "cust-7", custom["customer_id"])
			_, _ = w.Write([]byte(`{"response_code":"00","response_text":"https://paydunya.example/checkout/inv-1","token":"inv-1"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testPayDunyaClient(srv.URL)

	res, err := c.PrepareSession(context.Background(), samplePayDunyaSession())
	require.NoError(t, err)

	assert.Equal(t, []string{"/customers", "/checkout-invoices/create"}, paths)
	assert.Equal(t, "inv-1", res.ExternalID)
	assert.Equal(t, "https://paydunya.example/checkout/inv-1", res.CheckoutURL)
	assert.Nil(t, res.WidgetConfig)
}

func TestPayDunyaPrepareSessionCustomerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response_code":"1001","response_text":"Invalid phone"}`))
	}))
	defer srv.Close()

	c := testPayDunyaClient(srv.URL)

	_, err := c.PrepareSession(context.Background(), samplePayDunyaSession())
	assert.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Contains(t, err.Error(), "create customer")
	assert.Contains(t, err.Error(), "1001")
}

func TestPayDunyaPrepareSessionInvoiceRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/customers" {
			_, _ = w.Write([]byte(`{"response_code":"00","customer_id":"cust-7"}`))
			return
		}
		_, _ = w.Write([]byte(`{"response_code":"1002","response_text":"Invalid amount"}`))
	}))
	defer srv.Close()

	c := testPayDunyaClient(srv.URL)

	_, err := c.PrepareSession(context.Background(), samplePayDunyaSession())
	assert.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Contains(t, err.Error(), "create invoice")
}

func TestPayDunyaPrepareSessionValidation(t *testing.T) {
	c := testPayDunyaClient("http://unused")

	params := samplePayDunyaSession()
	params.Amount = decimal.Zero
	_, err := c.PrepareSession(context.Background(), params)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	params = samplePayDunyaSession()
	params.Customer.Phone = "  "
	_, err = c.PrepareSession(context.Background(), params)
	assert.ErrorIs(t, err, ErrMissingPhone)
}

func TestPayDunyaFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/checkout-invoices/confirm/inv-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response_code":"00","status":"completed","invoice":{"total_amount":1500},"mode":"test"}`))
	}))
	defer srv.Close()

	c := testPayDunyaClient(srv.URL)

	status, err := c.FetchStatus(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, status.Status)
	assert.Equal(t, "completed", status.ProviderStatus)
	assert.True(t, decimal.NewFromInt(1500).Equal(status.Amount))
	assert.NotEmpty(t, status.Raw)
}

func TestPayDunyaFetchStatusEmptyToken(t *testing.T) {
	c := testPayDunyaClient("http://unused")
	_, err := c.FetchStatus(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPayDunyaVerifySignature(t *testing.T) {
	c := testPayDunyaClient("http://unused")
	body := []byte(`{"data":{"invoice_token":"inv-1"}}`)

	assert.True(t, c.VerifySignature(body, signHex(body, "master-key")))
	assert.False(t, c.VerifySignature(body, signHex(body, "other")))
	assert.False(t, c.VerifySignature(body, ""))
}

func TestPayDunyaParseCallback(t *testing.T) {
	c := testPayDunyaClient("http://unused")

	evt, err := c.ParseCallback([]byte(`{"data":{"invoice_token":"inv-1","status":"completed"}}`))
	require.NoError(t, err)
	assert.Equal(t, "inv-1", evt.ExternalID)
	assert.Equal(t, "completed", evt.StatusHint)

	// Flat legacy shape.
	evt, err = c.ParseCallback([]byte(`{"invoice_token":"inv-2","status":"cancelled"}`))
	require.NoError(t, err)
	assert.Equal(t, "inv-2", evt.ExternalID)
	assert.Equal(t, "cancelled", evt.StatusHint)

	_, err = c.ParseCallback([]byte(`{"status":"completed"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPayDunyaMapStatus(t *testing.T) {
	c := testPayDunyaClient("http://unused")

	completed := []string{"completed", "success", "paid", "COMPLETED", " paid "}
	for _, s := range completed {
		assert.Equal(t, models.TransactionStatusCompleted, c.MapStatus(s), s)
	}

	failed := []string{"cancelled", "canceled", "failed", "refused", "declined", "expired"}
	for _, s := range failed {
		assert.Equal(t, models.TransactionStatusFailed, c.MapStatus(s), s)
	}

	pending := []string{"pending", "", "weird"}
	for _, s := range pending {
		assert.Equal(t, models.TransactionStatusPending, c.MapStatus(s), s)
	}
}

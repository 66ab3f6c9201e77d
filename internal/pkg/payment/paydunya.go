package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YaoKonate/SikaMarket/app/models"
	"github.com/YaoKonate/SikaMarket/internal/pkg/env"
)

const defaultPayDunyaAPIBaseURL = "https://app.paydunya.com/api/v1"

// PayDunyaClient is the redirect-flow adapter. PrepareSession talks to the
// remote API synchronously, first registering the customer and then creating
// a checkout invoice, and hands back the hosted checkout URL.
type PayDunyaClient struct {
	MasterKey  string
	PrivateKey string
	Token      string

	APIBaseURL string
	Sandbox    bool

	// HTTPClient tolerates the two chained remote calls of PrepareSession.
	HTTPClient *http.Client
}

// NewPayDunyaClientFromEnv configures the adapter from the environment.
func NewPayDunyaClientFromEnv() *PayDunyaClient {
	return &PayDunyaClient{
		MasterKey:  strings.TrimSpace(env.GetEnv("PAYDUNYA_MASTER_KEY", "")),
		PrivateKey: strings.TrimSpace(env.GetEnv("PAYDUNYA_PRIVATE_KEY", "")),
		Token:      strings.TrimSpace(env.GetEnv("PAYDUNYA_TOKEN", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("PAYDUNYA_API_BASE_URL", defaultPayDunyaAPIBaseURL)),
		Sandbox:    env.GetEnv("PAYDUNYA_MODE", "test") != "live",
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *PayDunyaClient) Name() string {
	return models.ProviderPayDunya
}

func (c *PayDunyaClient) SignatureHeader() string {
	return "Paydunya-Signature"
}

// PrepareSession performs the two sequential remote calls of the redirect
// flow. A failure in either step surfaces the remote error body annotated
// with the step that failed; the local transaction stays pending.
func (c *PayDunyaClient) PrepareSession(ctx context.Context, params SessionParams) (*SessionResult, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, params.Amount)
	}
	if strings.TrimSpace(params.Customer.Phone) == "" {
		return nil, ErrMissingPhone
	}

	customerID, err := c.createCustomer(ctx, params.Customer)
	if err != nil {
		return nil, err
	}

	return c.createInvoice(ctx, customerID, params)
}

type payDunyaCustomerResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	CustomerID   string `json:"customer_id"`
}

func (c *PayDunyaClient) createCustomer(ctx context.Context, customer Customer) (string, error) {
	payload := map[string]interface{}{
		"name":  customer.Name,
		"email": customer.Email,
		"phone": customer.Phone,
	}

	body, err := c.post(ctx, "/customers", payload, "create customer")
	if err != nil {
		return "", err
	}

	var out payDunyaCustomerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: create customer: %v", ErrInvalidPayload, err)
	}
	if out.ResponseCode != "00" {
		return "", fmt.Errorf("%w: create customer: code=%s text=%s", ErrUpstreamRejected, out.ResponseCode, out.ResponseText)
	}
	return out.CustomerID, nil
}

type payDunyaInvoiceResponse struct {
	ResponseCode string `json:"response_code"`
	ResponseText string `json:"response_text"`
	Description  string `json:"description"`
	Token        string `json:"token"`
}

func (c *PayDunyaClient) createInvoice(ctx context.Context, customerID string, params SessionParams) (*SessionResult, error) {
	mode := "live"
	if c.Sandbox {
		mode = "test"
	}
	payload := map[string]interface{}{
		"invoice": map[string]interface{}{
			"total_amount": params.Amount.InexactFloat64(),
			"description":  params.Description,
			"currency":     params.Currency,
		},
		"store": map[string]interface{}{
			"name": "SikaMarket",
		},
		"custom_data": map[string]interface{}{
			"transaction_id": params.TransactionID,
			"customer_id":    customerID,
		},
		"actions": map[string]interface{}{
			"callback_url": params.NotifyURL,
			"return_url":   params.ReturnURL,
			"cancel_url":   params.ReturnURL,
		},
		"mode": mode,
	}

	body, err := c.post(ctx, "/checkout-invoices/create", payload, "create invoice")
	if err != nil {
		return nil, err
	}

	var out payDunyaInvoiceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: create invoice: %v", ErrInvalidPayload, err)
	}
	if out.ResponseCode != "00" || strings.TrimSpace(out.Token) == "" {
		return nil, fmt.Errorf("%w: create invoice: code=%s text=%s", ErrUpstreamRejected, out.ResponseCode, out.ResponseText)
	}

	checkoutURL := strings.TrimSpace(out.ResponseText)
	if !strings.HasPrefix(checkoutURL, "http") {
		checkoutURL = strings.TrimRight(c.APIBaseURL, "/") + "/checkout-invoices/" + out.Token
	}

	return &SessionResult{
		ExternalID:  out.Token,
		CheckoutURL: checkoutURL,
		RawResponse: json.RawMessage(body),
	}, nil
}

// post sends an authenticated JSON request and surfaces remote error bodies
// annotated with the calling step.
func (c *PayDunyaClient) post(ctx context.Context, path string, payload interface{}, step string) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, step, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status=%d body=%s", ErrUpstreamRejected, step, resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *PayDunyaClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("PAYDUNYA-MASTER-KEY", c.MasterKey)
	req.Header.Set("PAYDUNYA-PRIVATE-KEY", c.PrivateKey)
	req.Header.Set("PAYDUNYA-TOKEN", c.Token)
}

type payDunyaConfirmResponse struct {
	ResponseCode string `json:"response_code"`
	Status       string `json:"status"`
	Invoice      struct {
		TotalAmount float64 `json:"total_amount"`
		Description string  `json:"description"`
	} `json:"invoice"`
	Customer struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Mode string `json:"mode"`
}

// FetchStatus confirms an invoice token against the provider API.
func (c *PayDunyaClient) FetchStatus(ctx context.Context, externalID string) (*ProviderStatus, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, fmt.Errorf("%w: empty invoice token", ErrInvalidPayload)
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + "/checkout-invoices/confirm/" + externalID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: confirm invoice: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: confirm invoice: status=%d body=%s", ErrUpstreamRejected, resp.StatusCode, string(body))
	}

	var out payDunyaConfirmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: confirm invoice: %v", ErrInvalidPayload, err)
	}

	return &ProviderStatus{
		Status:         c.MapStatus(out.Status),
		ProviderStatus: out.Status,
		Amount:         decimal.NewFromFloat(out.Invoice.TotalAmount),
		Raw:            json.RawMessage(body),
	}, nil
}

// VerifySignature checks the Paydunya-Signature HMAC over the raw callback body.
func (c *PayDunyaClient) VerifySignature(rawBody []byte, signatureHeader string) bool {
	return verifyHMACSHA256Hex(rawBody, signatureHeader, c.MasterKey)
}

type payDunyaCallback struct {
	Data struct {
		InvoiceToken string `json:"invoice_token"`
		Status       string `json:"status"`
		Hash         string `json:"hash"`
	} `json:"data"`
	// Flat variants are sent by older webhook versions.
	InvoiceToken string `json:"invoice_token"`
	Status       string `json:"status"`
}

// ParseCallback extracts the invoice token from a webhook payload.
func (c *PayDunyaClient) ParseCallback(rawBody []byte) (*CallbackEvent, error) {
	var cb payDunyaCallback
	if err := json.Unmarshal(rawBody, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	token := strings.TrimSpace(cb.Data.InvoiceToken)
	status := cb.Data.Status
	if token == "" {
		token = strings.TrimSpace(cb.InvoiceToken)
		status = cb.Status
	}
	if token == "" {
		return nil, fmt.Errorf("%w: missing invoice_token", ErrInvalidPayload)
	}

	return &CallbackEvent{
		ExternalID: token,
		StatusHint: status,
	}, nil
}

// MapStatus folds PayDunya's status vocabulary into the internal three-way
// status. Unknown values are treated as still processing.
func (c *PayDunyaClient) MapStatus(providerStatus string) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "completed", "success", "paid":
		return models.TransactionStatusCompleted
	case "cancelled", "canceled", "failed", "refused", "declined", "expired":
		return models.TransactionStatusFailed
	default:
		return models.TransactionStatusPending
	}
}

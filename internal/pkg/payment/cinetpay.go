package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YaoKonate/SikaMarket/app/models"
	"github.com/YaoKonate/SikaMarket/internal/pkg/env"
)

const defaultCinetPayAPIBaseURL = "https://api-checkout.cinetpay.com/v2"

// CinetPayClient is the widget-flow adapter. PrepareSession is a local-only
// operation: the browser-side widget opens the payment UI with the returned
// config bag, and CinetPay reports back on the notify URL with the
// correlation token we generated here.
type CinetPayClient struct {
	APIKey    string
	SiteID    string
	SecretKey string

	APIBaseURL string
	Sandbox    bool

	HTTPClient *http.Client
}

// NewCinetPayClientFromEnv configures the adapter from the environment.
func NewCinetPayClientFromEnv() *CinetPayClient {
	return &CinetPayClient{
		APIKey:     strings.TrimSpace(env.GetEnv("CINETPAY_API_KEY", "")),
		SiteID:     strings.TrimSpace(env.GetEnv("CINETPAY_SITE_ID", "")),
		SecretKey:  strings.TrimSpace(env.GetEnv("CINETPAY_SECRET_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("CINETPAY_API_BASE_URL", defaultCinetPayAPIBaseURL)),
		Sandbox:    env.GetEnv("CINETPAY_MODE", "sandbox") != "live",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *CinetPayClient) Name() string {
	return models.ProviderCinetPay
}

func (c *CinetPayClient) SignatureHeader() string {
	return "X-Token"
}

// PrepareSession builds the widget config bag. No remote call happens here;
// the correlation token doubles as the provider-side transaction id.
func (c *CinetPayClient) PrepareSession(ctx context.Context, params SessionParams) (*SessionResult, error) {
	_ = ctx
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, params.Amount)
	}
	if strings.TrimSpace(params.Customer.Phone) == "" {
		return nil, ErrMissingPhone
	}

	mode := "PRODUCTION"
	if c.Sandbox {
		mode = "SANDBOX"
	}

	token := uuid.NewString()
	cfg := map[string]interface{}{
		"apikey":                c.APIKey,
		"site_id":               c.SiteID,
		"transaction_id":        token,
		"amount":                params.Amount.String(),
		"currency":              params.Currency,
		"description":           params.Description,
		"customer_name":         params.Customer.Name,
		"customer_email":        params.Customer.Email,
		"customer_phone_number": params.Customer.Phone,
		"notify_url":            params.NotifyURL,
		"return_url":            params.ReturnURL,
		"channels":              "MOBILE_MONEY",
		"mode":                  mode,
		"lang":                  "fr",
	}

	return &SessionResult{
		ExternalID:   token,
		WidgetConfig: cfg,
	}, nil
}

type cinetPayCheckResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status        string `json:"status"`
		PaymentMethod string `json:"payment_method"`
		Amount        string `json:"amount"`
		Currency      string `json:"currency"`
		OperatorID    string `json:"operator_id"`
	} `json:"data"`
}

// FetchStatus asks the payment-check endpoint for the authoritative state of
// a transaction identified by our correlation token.
func (c *CinetPayClient) FetchStatus(ctx context.Context, externalID string) (*ProviderStatus, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, fmt.Errorf("%w: empty transaction id", ErrInvalidPayload)
	}

	payload, err := json.Marshal(map[string]string{
		"apikey":         c.APIKey,
		"site_id":        c.SiteID,
		"transaction_id": externalID,
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + "/payment/check"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: payment check: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: payment check: status=%d body=%s", ErrUpstreamRejected, resp.StatusCode, string(body))
	}

	var out cinetPayCheckResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: payment check: %v", ErrInvalidPayload, err)
	}

	amount, aerr := decimal.NewFromString(out.Data.Amount)
	if aerr != nil && strings.TrimSpace(out.Data.Amount) != "" {
		log.Printf("cinetpay payment check for %s: unparseable amount %q: %v", externalID, out.Data.Amount, aerr)
	}
	return &ProviderStatus{
		Status:         c.MapStatus(out.Data.Status),
		ProviderStatus: out.Data.Status,
		Amount:         amount,
		Currency:       out.Data.Currency,
		PaymentMethod:  out.Data.PaymentMethod,
		Raw:            json.RawMessage(body),
	}, nil
}

// VerifySignature checks the X-Token HMAC over the raw callback body.
func (c *CinetPayClient) VerifySignature(rawBody []byte, signatureHeader string) bool {
	return verifyHMACSHA256Hex(rawBody, signatureHeader, c.SecretKey)
}

type cinetPayCallback struct {
	TransactionID string `json:"cpm_trans_id"`
	SiteID        string `json:"cpm_site_id"`
	Status        string `json:"cpm_trans_status"`
	Amount        string `json:"cpm_amount"`
	Currency      string `json:"cpm_currency"`
	PaymentID     string `json:"cpm_payid"`
}

// ParseCallback extracts the correlation token from a notify payload.
func (c *CinetPayClient) ParseCallback(rawBody []byte) (*CallbackEvent, error) {
	var cb cinetPayCallback
	if err := json.Unmarshal(rawBody, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if strings.TrimSpace(cb.TransactionID) == "" {
		return nil, fmt.Errorf("%w: missing cpm_trans_id", ErrInvalidPayload)
	}
	return &CallbackEvent{
		ExternalID: cb.TransactionID,
		EventID:    strings.TrimSpace(cb.PaymentID),
		StatusHint: cb.Status,
	}, nil
}

// MapStatus folds CinetPay's status vocabulary into the internal three-way
// status. Unknown values are treated as still processing.
func (c *CinetPayClient) MapStatus(providerStatus string) string {
	switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
	case "ACCEPTED", "SUCCES", "SUCCESS", "COMPLETED":
		return models.TransactionStatusCompleted
	case "REFUSED", "DECLINED", "FAILED", "CANCELED", "CANCELLED", "EXPIRED":
		return models.TransactionStatusFailed
	default:
		return models.TransactionStatusPending
	}
}

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/YaoKonate/SikaMarket/app/models"
	"github.com/YaoKonate/SikaMarket/app/repository"
	"github.com/YaoKonate/SikaMarket/internal/pkg/env"
	"github.com/YaoKonate/SikaMarket/internal/pkg/phone"
)

// ErrInvalidInput wraps validation failures of the initiate request.
var ErrInvalidInput = errors.New("invalid payment input")

// Service is the client-facing counterpart of the reconciler: it opens a
// pending transaction, asks the chosen provider adapter to prepare a payment
// session and returns the launch data. Provider failures leave the pending
// row orphaned on purpose — it was never confirmed with the provider and
// serves as an audit record of the attempt.
type Service struct {
	ledger   *Ledger
	registry *Registry
	contents repository.ContentRepository
	validate *validator.Validate

	defaultCountryCode string
	publicBaseURL      string
}

// NewService wires the initiate pipeline.
func NewService(ledger *Ledger, registry *Registry, contents repository.ContentRepository) *Service {
	return &Service{
		ledger:             ledger,
		registry:           registry,
		contents:           contents,
		validate:           validator.New(),
		defaultCountryCode: env.GetEnv("DEFAULT_COUNTRY_CODE", "225"),
		publicBaseURL:      strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/"),
	}
}

// InitiateCustomer is the payer block of an initiate request.
type InitiateCustomer struct {
	Name        string `json:"name" validate:"required,min=2,max=150"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	CountryCode string `json:"country_code" validate:"omitempty,numeric,min=1,max=3"`
}

// InitiateInput is the request to start a payment.
type InitiateInput struct {
	Amount      float64          `json:"amount" validate:"required"`
	Currency    string           `json:"currency" validate:"required,len=3,alpha"`
	Description string           `json:"description" validate:"max=255"`
	ProductID   uint             `json:"product_id" validate:"required"`
	ProductType string           `json:"product_type" validate:"required,oneof=content subscription"`
	Provider    string           `json:"provider" validate:"required,oneof=cinetpay paydunya"`
	Method      string           `json:"method" validate:"omitempty,max=50"`
	Customer    InitiateCustomer `json:"customer" validate:"required"`
}

// InitiateOutput is the launch data returned to the caller. Exactly one of
// CheckoutURL or WidgetConfig is set, depending on the provider flow.
type InitiateOutput struct {
	TransactionID string                 `json:"transaction_id"`
	Provider      string                 `json:"provider"`
	CheckoutURL   string                 `json:"checkout_url,omitempty"`
	WidgetConfig  map[string]interface{} `json:"widget_config,omitempty"`
}

// Initiate validates the request, opens a pending transaction and prepares
// the provider session.
func (s *Service) Initiate(ctx context.Context, userID uint, in InitiateInput) (*InitiateOutput, error) {
	amount := decimal.NewFromFloat(in.Amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	if strings.TrimSpace(in.Customer.Phone) == "" {
		return nil, ErrMissingPhone
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	adapter, err := s.registry.Get(in.Provider)
	if err != nil {
		return nil, err
	}

	fallback := in.Customer.CountryCode
	if fallback == "" {
		fallback = s.defaultCountryCode
	}
	normalized, err := phone.Normalize(in.Customer.Phone, fallback)
	if err != nil {
		return nil, err
	}

	if in.ProductType == models.ProductTypeContent {
		if _, err := s.contents.GetByID(in.ProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: id %d", ErrContentNotFound, in.ProductID)
			}
			return nil, err
		}
	}

	tx, err := s.ledger.Create(ctx, CreateParams{
		UserID:        userID,
		Amount:        amount,
		Currency:      strings.ToUpper(in.Currency),
		PaymentMethod: in.Method,
		Provider:      in.Provider,
		ProductType:   in.ProductType,
		ProductID:     in.ProductID,
		Metadata: map[string]interface{}{
			"description": in.Description,
			"customer": map[string]interface{}{
				"name":    in.Customer.Name,
				"email":   in.Customer.Email,
				"phone":   normalized.FullNumber,
				"country": normalized.CountryName,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	session, err := adapter.PrepareSession(ctx, SessionParams{
		TransactionID: tx.ID,
		Amount:        amount,
		Currency:      strings.ToUpper(in.Currency),
		Description:   in.Description,
		Customer: Customer{
			Name:  in.Customer.Name,
			Email: in.Customer.Email,
			Phone: normalized.FullNumber,
		},
		NotifyURL: s.publicBaseURL + "/api/v1/payments/webhook/" + adapter.Name(),
		ReturnURL: s.publicBaseURL + "/payments/return",
	})
	if err != nil {
		// The pending row stays behind as an audit record of the attempt.
		return nil, err
	}

	if session.ExternalID != "" {
		if err := s.ledger.AttachExternalID(ctx, tx.ID, session.ExternalID); err != nil {
			return nil, err
		}
	}

	sessionPatch := map[string]interface{}{
		"sessionPreparedAt": nowRFC3339(),
	}
	if len(session.RawResponse) > 0 {
		sessionPatch["providerSession"] = json.RawMessage(session.RawResponse)
	}
	if _, _, err := s.ledger.UpdateStatus(ctx, tx.ID, models.TransactionStatusPending, sessionPatch); err != nil {
		// Audit-only update; the session itself is already prepared.
		log.Printf("failed to record session metadata for transaction %s: %v", tx.ID, err)
	}

	return &InitiateOutput{
		TransactionID: tx.ID,
		Provider:      adapter.Name(),
		CheckoutURL:   session.CheckoutURL,
		WidgetConfig:  session.WidgetConfig,
	}, nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

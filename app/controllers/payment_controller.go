package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/YaoKonate/SikaMarket/app/repository"
	"github.com/YaoKonate/SikaMarket/internal/pkg/payment"
	"github.com/YaoKonate/SikaMarket/internal/pkg/phone"
	"github.com/YaoKonate/SikaMarket/internal/pkg/usercontext"
)

// Session preparation may chain two remote provider calls, so the initiate
// timeout is more generous than the status-check timeout.
const (
	initiateTimeout = 45 * time.Second
	callbackTimeout = 20 * time.Second
)

func newPaymentService() *payment.Service {
	repos := repository.GetGlobalRepositories()
	return payment.NewService(
		payment.NewLedger(repos.Transaction),
		payment.NewRegistryFromEnv(),
		repos.Content,
	)
}

func newPaymentReconciler() (*payment.Registry, *payment.Reconciler) {
	repos := repository.GetGlobalRepositories()
	registry := payment.NewRegistryFromEnv()
	reconciler := payment.NewReconciler(
		registry,
		payment.NewLedger(repos.Transaction),
		payment.NewGrantor(repos.Purchase),
		repos.WebhookEvent,
	)
	return registry, reconciler
}

// HandleInitiatePayment opens a pending transaction and returns the
// provider launch data (widget config bag or hosted checkout URL).
func HandleInitiatePayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var in payment.InitiateInput
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed JSON body")
	}

	ctx, cancel := context.WithTimeout(context.Background(), initiateTimeout)
	defer cancel()

	out, err := newPaymentService().Initiate(ctx, userCtx.UserID, in)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidAmount):
			return errorJSON(c, fiber.StatusBadRequest, "invalid_amount", err.Error())
		case errors.Is(err, payment.ErrMissingPhone):
			return errorJSON(c, fiber.StatusBadRequest, "missing_phone", err.Error())
		case errors.Is(err, phone.ErrInvalidPhoneNumber):
			return errorJSON(c, fiber.StatusBadRequest, "invalid_phone", err.Error())
		case errors.Is(err, payment.ErrInvalidInput):
			return errorJSON(c, fiber.StatusBadRequest, "invalid_input", err.Error())
		case errors.Is(err, payment.ErrUnknownProvider):
			return errorJSON(c, fiber.StatusBadRequest, "unknown_provider", err.Error())
		case errors.Is(err, payment.ErrContentNotFound):
			return errorJSON(c, fiber.StatusNotFound, "content_not_found", err.Error())
		case errors.Is(err, payment.ErrUpstreamRejected):
			return errorJSON(c, fiber.StatusBadGateway, "upstream_rejected", err.Error())
		case errors.Is(err, payment.ErrUpstreamUnavailable):
			return errorJSON(c, fiber.StatusServiceUnavailable, "upstream_unavailable", err.Error())
		default:
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Payment initiation failed")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(out)
}

// HandlePaymentWebhook processes an asynchronous provider callback. The
// response status tells the provider's retry logic whether to redeliver:
// 5xx means retry, anything below means the delivery is settled.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	providerName := c.Params("provider")
	registry, reconciler := newPaymentReconciler()

	adapter, err := registry.Get(providerName)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "unknown_provider", err.Error())
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get(adapter.SignatureHeader())

	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	result, err := reconciler.HandleCallback(ctx, providerName, rawBody, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			return errorJSON(c, fiber.StatusUnauthorized, "invalid_signature", "Webhook signature verification failed")
		case errors.Is(err, payment.ErrInvalidPayload):
			return errorJSON(c, fiber.StatusBadRequest, "invalid_payload", err.Error())
		case errors.Is(err, payment.ErrTransactionNotFound):
			return errorJSON(c, fiber.StatusNotFound, "transaction_not_found", err.Error())
		case errors.Is(err, payment.ErrInvalidTransition):
			return errorJSON(c, fiber.StatusConflict, "invalid_transition", err.Error())
		case errors.Is(err, payment.ErrUpstreamRejected), errors.Is(err, payment.ErrUpstreamUnavailable):
			// Status re-fetch failed; the ledger is untouched and the
			// provider should retry the delivery.
			return errorJSON(c, fiber.StatusInternalServerError, "status_fetch_failed", err.Error())
		default:
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Webhook processing failed")
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":        true,
		"status":         result.Status,
		"transaction_id": result.TransactionID,
		"granted":        result.Granted,
		"duplicate":      result.Duplicate,
	})
}

// HandleGetTransaction returns one of the caller's transactions by id.
func HandleGetTransaction(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	repos := repository.GetGlobalRepositories()
	ledger := payment.NewLedger(repos.Transaction)

	tx, err := ledger.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "transaction_not_found", err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Transaction lookup failed")
	}
	if tx.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return errorJSON(c, fiber.StatusForbidden, "forbidden", "Not your transaction")
	}

	return c.Status(fiber.StatusOK).JSON(tx)
}

package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ProviderAdapter encapsulates one payment provider's request/response
// shapes, signature scheme and status vocabulary. Provider selection happens
// through the provider tag stored on the transaction, never through
// conditionals scattered across call sites.
type ProviderAdapter interface {
	// Name returns the provider tag stored on transactions.
	Name() string
	// SignatureHeader names the HTTP header carrying the webhook signature.
	SignatureHeader() string
	// PrepareSession sets up a payment session for a pending transaction.
	PrepareSession(ctx context.Context, params SessionParams) (*SessionResult, error)
	// FetchStatus retrieves the authoritative status from the provider API.
	FetchStatus(ctx context.Context, externalID string) (*ProviderStatus, error)
	// VerifySignature checks a webhook signature over the exact raw bytes.
	VerifySignature(rawBody []byte, signatureHeader string) bool
	// ParseCallback extracts the transaction locator from a webhook body.
	ParseCallback(rawBody []byte) (*CallbackEvent, error)
	// MapStatus translates a provider status string into an internal one.
	MapStatus(providerStatus string) string
}

// Registry resolves provider adapters by name.
type Registry struct {
	adapters map[string]ProviderAdapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...ProviderAdapter) *Registry {
	m := make(map[string]ProviderAdapter, len(adapters))
	for _, a := range adapters {
		m[strings.ToLower(a.Name())] = a
	}
	return &Registry{adapters: m}
}

// NewRegistryFromEnv builds the registry with all known providers configured
// from the environment.
func NewRegistryFromEnv() *Registry {
	return NewRegistry(NewCinetPayClientFromEnv(), NewPayDunyaClientFromEnv())
}

// Get resolves an adapter by provider name.
func (r *Registry) Get(name string) (ProviderAdapter, error) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return a, nil
}

// verifyHMACSHA256Hex checks a hex-encoded HMAC-SHA256 signature over the
// raw payload in constant time.
func verifyHMACSHA256Hex(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" || strings.TrimSpace(secret) == "" {
		return false
	}
	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}

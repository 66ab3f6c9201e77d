package payment

import "strings"

// VerifyCallback gates all webhook processing on request authenticity. It
// fails closed: an absent signature header is never treated as valid. The
// check runs over the exact raw bytes received, before any JSON parsing — a
// re-serialized body would change the signature input.
func VerifyCallback(rawBody []byte, signatureHeader string, adapter ProviderAdapter) bool {
	if strings.TrimSpace(signatureHeader) == "" {
		return false
	}
	return adapter.VerifySignature(rawBody, signatureHeader)
}

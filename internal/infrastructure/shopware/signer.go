package shopware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"thumbhash-placeholder-layer/internal/ports"
)

// Signature headers used by the platform
const (
	ShopSignatureHeader = "shopware-shop-signature"
	AppSignatureHeader  = "shopware-app-signature"
)

var errMissingSignature = errors.New("missing signature")

// WebhookVerifier checks HMAC-SHA256 signatures made with a shared secret
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the given secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Sign returns the hex encoded signature of payload
func (v *WebhookVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature against the expected signature of payload in constant time
func (v *WebhookVerifier) Verify(payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errMissingSignature
	}
	if len(v.secret) == 0 {
		return fmt.Errorf("no secret configured")
	}

	given, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("signature is not hex encoded: %w", err)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	if !hmac.Equal(given, mac.Sum(nil)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// HMACSigner implements RequestSigner with per-call secrets
type HMACSigner struct{}

var _ ports.RequestSigner = HMACSigner{}

// Sign returns the hex encoded signature of payload made with secret
func (HMACSigner) Sign(secret string, payload []byte) string {
	return NewWebhookVerifier(secret).Sign(payload)
}

// Verify checks signature against payload signed with secret
func (HMACSigner) Verify(secret string, payload []byte, signature string) error {
	return NewWebhookVerifier(secret).Verify(payload, signature)
}

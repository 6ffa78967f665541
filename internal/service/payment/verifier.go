package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthenticity is matched by every verification failure.
	ErrAuthenticity = errors.New("payment authenticity check failed")
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("payment signing secret not configured")
)

// Config carries the gateway's shared signing secret.
type Config struct {
	Secret string
}

// Verified is a gateway payment whose signature matched.
type Verified struct {
	GatewayOrderID   string
	GatewayPaymentID string
}

// MismatchError reports a signature that did not match. It carries both
// signatures for the audit log and never the secret.
type MismatchError struct {
	Computed string
	Received string
}

func (e *MismatchError) Error() string {
	return "signature mismatch"
}

func (e *MismatchError) Unwrap() error {
	return ErrAuthenticity
}

// Verifier checks gateway payment signatures.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier. An empty secret is a configuration error.
func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{secret: []byte(cfg.Secret)}, nil
}

// Verify recomputes HMAC-SHA256(secret, orderID|paymentID) and compares it to
// signature in constant time.
func (v *Verifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) (Verified, error) {
	if v == nil || len(v.secret) == 0 {
		return Verified{}, fmt.Errorf("%w: %w", ErrAuthenticity, ErrMissingSecret)
	}
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return Verified{}, fmt.Errorf("%w: missing gateway identifier or signature", ErrAuthenticity)
	}

	expected := sign(v.secret, gatewayOrderID, gatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Verified{}, &MismatchError{Computed: expected, Received: signature}
	}
	return Verified{GatewayOrderID: gatewayOrderID, GatewayPaymentID: gatewayPaymentID}, nil
}

// Sign produces the signature the gateway attaches to a completed payment.
func Sign(secret, gatewayOrderID, gatewayPaymentID string) string {
	return sign([]byte(secret), gatewayOrderID, gatewayPaymentID)
}

func sign(secret []byte, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Package signature verifies the authenticity of inbound payment-provider
// webhook calls. The provider signs a canonical manifest string with
// HMAC-SHA256 and sends the result in the x-signature header as
// "ts=<unix>,v1=<hex>".
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidSignature is returned when the hash mismatches, required
	// headers are missing, or no secret is configured.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrExpiredSignature is returned when the signature timestamp is
	// outside the replay-protection window.
	ErrExpiredSignature = errors.New("expired webhook signature")
)

const (
	// MaxAge is the replay-protection window.
	MaxAge = 1800 * time.Second
	// WarnAge triggers a warning log for old-but-accepted signatures.
	WarnAge = 300 * time.Second
)

// Validator checks webhook signatures against a shared secret.
type Validator struct {
	secret string
	now    func() time.Time
}

// NewValidator creates a Validator. An empty secret makes every
// validation fail rather than silently accepting unsigned calls.
func NewValidator(secret string) *Validator {
	return &Validator{secret: secret, now: time.Now}
}

// Manifest builds the canonical string the provider signs.
func Manifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
}

// Sign computes the hex HMAC-SHA256 of a manifest. Used by tests and the
// mock gateway to produce valid headers.
func Sign(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate verifies the x-signature header for a notification carrying
// dataID and the x-request-id header. It has no side effects and must run
// before the payload is trusted.
func (v *Validator) Validate(header, requestID, dataID string) error {
	if v.secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	if header == "" || requestID == "" || dataID == "" {
		return fmt.Errorf("%w: missing signature headers", ErrInvalidSignature)
	}

	ts, hash, err := parseHeader(header)
	if err != nil {
		return err
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
	}
	age := v.now().Sub(time.Unix(tsUnix, 0))
	if age > MaxAge {
		return fmt.Errorf("%w: signature is %s old", ErrExpiredSignature, age.Round(time.Second))
	}
	if age > WarnAge {
		log.Printf("[signature] accepting old webhook signature (age %s)", age.Round(time.Second))
	}

	expected := Sign(v.secret, Manifest(dataID, requestID, ts))
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return fmt.Errorf("%w: hash mismatch", ErrInvalidSignature)
	}
	return nil
}

// parseHeader splits "ts=<unix>,v1=<hex>" into its parts.
func parseHeader(header string) (ts, hash string, err error) {
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			hash = kv[1]
		}
	}
	if ts == "" || hash == "" {
		return "", "", fmt.Errorf("%w: malformed x-signature header", ErrInvalidSignature)
	}
	return ts, hash, nil
}

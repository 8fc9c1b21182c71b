package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Outcome is the normalized result of a gateway callback.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// ParseOutcome maps the gateway's free-text response description onto an
// Outcome. Anything unrecognized is a failure, which leaves the order payable.
func ParseOutcome(description string) Outcome {
	switch strings.ToLower(strings.TrimSpace(description)) {
	case "successful", "success", "completed", "paid":
		return OutcomeSucceeded
	case "cancelled", "canceled":
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "X-Gateway-Signature"

// VerifySignature checks header against the HMAC-SHA256 of payload.
func VerifySignature(payload []byte, secret, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(header)))
}

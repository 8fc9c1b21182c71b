package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestParseOutcome(t *testing.T) {
	cases := map[string]Outcome{
		"SUCCESSFUL":             OutcomeSucceeded,
		" success ":              OutcomeSucceeded,
		"Completed":              OutcomeSucceeded,
		"paid":                   OutcomeSucceeded,
		"Cancelled":              OutcomeCancelled,
		"canceled":               OutcomeCancelled,
		"insufficient balance":   OutcomeFailed,
		"":                       OutcomeFailed,
		"request cancelled user": OutcomeFailed,
	}
	for raw, want := range cases {
		if got := ParseOutcome(raw); got != want {
			t.Fatalf("ParseOutcome(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"reference_no":"HL-1","response_description":"SUCCESSFUL"}`)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(payload)
	header := hex.EncodeToString(mac.Sum(nil))

	if !VerifySignature(payload, "secret", header) {
		t.Fatal("expected valid signature")
	}
	if VerifySignature(payload, "other", header) {
		t.Fatal("expected signature mismatch for other secret")
	}
	if VerifySignature(payload, "secret", "") {
		t.Fatal("expected empty header to fail")
	}
}

package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
)

type paymentBody struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

func TestDecodeJSONBodyValidatesTags(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"abc","quantity":0}`))
	var body paymentBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	if details["phone"] != "must be a valid phone number" {
		t.Fatalf("unexpected phone detail %q", details["phone"])
	}
	if details["quantity"] != "must be at least 1" {
		t.Fatalf("unexpected quantity detail %q", details["quantity"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"+254700000001","quantity":1,"extra":true}`))
	var body paymentBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"+254700000001","quantity":3}`))
	var body paymentBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", body.Quantity)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc.def": "abc.def",
		"bearer  xyz":    "xyz",
		"raw-token":      "raw-token",
	}
	for raw, want := range cases {
		got, err := BearerToken(raw)
		if err != nil || got != want {
			t.Fatalf("%q: expected %q, got %q err=%v", raw, want, got, err)
		}
	}
	for _, raw := range []string{"", "Bearer ", "Bearer a b"} {
		if _, err := BearerToken(raw); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  fresh tomatoes  ", 5); got != "fresh" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("ñandú", 3); got != "ñan" {
		t.Fatalf("expected rune-aware cut, got %q", got)
	}
	blank := "   "
	if SanitizeOptional(&blank, 10) != nil {
		t.Fatal("blank optional should become nil")
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "orderId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s err=%v", id, got, err)
	}
	if _, err := ParseUUIDParam(req, "missing"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&unread=yes", nil)
	if _, err := ParseQueryInt(req, "limit", 25, 1, 100); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
	if _, err := ParseQueryBool(req, "unread"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected bool error, got %v", err)
	}
}

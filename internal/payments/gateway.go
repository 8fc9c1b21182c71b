package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
)

const (
	defaultGatewayTimeout       = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errGatewayURLRequired = errors.New("payment gateway url is required")

// Gateway starts mobile money collections. Results arrive later through the
// callback webhook.
type Gateway interface {
	Initiate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error)
}

// GatewayRequest is the payload sent to the gateway to start a collection.
type GatewayRequest struct {
	ReferenceNo string          `json:"reference_no"`
	Amount      decimal.Decimal `json:"amount"`
	PayerPhone  string          `json:"phone"`
	Currency    string          `json:"currency,omitempty"`
}

// GatewayResponse is the gateway's acknowledgement of a collection request.
type GatewayResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// HTTPGateway talks to the payment gateway over JSON/HTTP.
type HTTPGateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// GatewayOption configures optional client behavior.
type GatewayOption func(*HTTPGateway)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithTimeout bounds every gateway call.
func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		if timeout > 0 {
			g.httpClient = &http.Client{Timeout: timeout, Transport: g.httpClient.Transport}
		}
	}
}

// NewHTTPGateway builds the gateway client for baseURL.
func NewHTTPGateway(baseURL, apiKey string, opts ...GatewayOption) (*HTTPGateway, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errGatewayURLRequired
	}
	g := &HTTPGateway{
		baseURL:    trimmed,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultGatewayTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Initiate asks the gateway to collect req.Amount from req.PayerPhone.
// Transport failures, timeouts and 5xx answers are GATEWAY_UNAVAILABLE.
func (g *HTTPGateway) Initiate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error) {
	if g == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "payment gateway not configured")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal gateway request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment gateway failed")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment gateway rejected the request")
	}

	var out GatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "decode gateway response")
	}
	return &out, nil
}

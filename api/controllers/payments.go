package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/harvestlink-backend/api/responses"
	"github.com/angelmondragon/harvestlink-backend/api/validators"
	"github.com/angelmondragon/harvestlink-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
)

const maxCallbackBytes = 64 << 10

type initiatePaymentRequest struct {
	OrderID string          `json:"orderId" validate:"required,uuid"`
	Amount  decimal.Decimal `json:"amount"`
	Phone   string          `json:"phone" validate:"required,phone"`
}

type paymentCallbackRequest struct {
	ReferenceNo         string `json:"reference_no"`
	ResponseDescription string `json:"response_description"`
}

// InitiatePayment asks the gateway to collect an order's total from the
// buyer's phone. The order is not touched until the callback arrives.
func InitiatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("payments"))
			return
		}
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID := uuid.MustParse(body.OrderID)

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		result, err := svc.Initiate(ctx, payments.InitiateInput{
			OrderID:    orderID,
			BuyerID:    buyerID,
			Amount:     body.Amount,
			PayerPhone: strings.TrimSpace(body.Phone),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// PaymentCallback applies the gateway's asynchronous payment result. When a
// secret is configured the body must carry a valid signature.
func PaymentCallback(svc payments.Service, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("payments"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if secret != "" && !payments.VerifySignature(payload, secret, r.Header.Get(payments.SignatureHeader)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback signature"))
			return
		}

		// Gateways add fields over time; unknown keys are ignored here.
		var body paymentCallbackRequest
		if err := json.Unmarshal(payload, &body); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		if strings.TrimSpace(body.ReferenceNo) == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"reference_no": "is required"}))
			return
		}

		if logg != nil {
			ctx = logg.WithField(ctx, "reference_no", body.ReferenceNo)
		}
		result, err := svc.ApplyCallback(ctx, strings.TrimSpace(body.ReferenceNo), body.ResponseDescription)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

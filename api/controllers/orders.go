package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/harvestlink-backend/api/responses"
	"github.com/angelmondragon/harvestlink-backend/api/validators"
	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/types"
)

type createOrderRequest struct {
	ProductID    string           `json:"productId" validate:"required,uuid"`
	Quantity     int              `json:"quantity" validate:"gte=1"`
	DeliveryDate types.Date       `json:"deliveryDate"`
	TotalPrice   *decimal.Decimal `json:"totalPrice,omitempty"`
}

// CreateOrder places an order for the calling buyer.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.DeliveryDate.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"deliveryDate": "is required"}))
			return
		}

		view, err := svc.Create(r.Context(), orders.CreateInput{
			BuyerID:      buyerID,
			ProductID:    uuid.MustParse(body.ProductID),
			Quantity:     body.Quantity,
			DeliveryDate: body.DeliveryDate,
			TotalPrice:   body.TotalPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// ListOrders pages through the calling buyer's orders, newest first.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListBuyerOrders(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GetOrder returns one order to its buyer or seller.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, svc, func(r *http.Request, orderID, callerID uuid.UUID) (any, error) {
		return svc.Get(r.Context(), orderID, callerID)
	})
}

// CancelOrder cancels the buyer's order. Cancelling twice returns the
// cancelled order.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, svc, func(r *http.Request, orderID, callerID uuid.UUID) (any, error) {
		return svc.Cancel(r.Context(), orderID, callerID)
	})
}

// ConfirmDelivery marks a paid order as delivered.
func ConfirmDelivery(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, svc, func(r *http.Request, orderID, callerID uuid.UUID) (any, error) {
		return svc.ConfirmDelivery(r.Context(), orderID, callerID)
	})
}

// DeleteOrder removes an order and its request.
func DeleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), orderID, buyerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": orderID, "deleted": true})
	}
}

type orderHandler func(r *http.Request, orderID, callerID uuid.UUID) (any, error)

func orderAction(logg *logger.Logger, svc orders.Service, fn orderHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("orders"))
			return
		}
		callerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		result, err := fn(r.WithContext(ctx), orderID, callerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

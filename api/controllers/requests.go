package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/harvestlink-backend/api/responses"
	"github.com/angelmondragon/harvestlink-backend/api/validators"
	"github.com/angelmondragon/harvestlink-backend/internal/requests"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
)

type decideRequestBody struct {
	Status string `json:"status" validate:"required"`
}

// ListRequests pages through the calling seller's purchase requests,
// optionally filtered by ?status=.
func ListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("requests"))
			return
		}
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := requests.ListParams{
			SellerID: sellerID,
			Limit:    page.Limit,
			Cursor:   page.Cursor,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseRequestStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// DecideRequest records the seller's accept/reject decision.
func DecideRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("requests"))
			return
		}
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decideRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := enums.ParseRequestStatus(body.Status)
		if err != nil || decision == enums.RequestStatusPending {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "status must be accepted or rejected").
				WithDetails(map[string]string{"status": "must be one of [accepted rejected]"}))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "purchase_request_id", requestID.String())
		}
		result, err := svc.Decide(ctx, requestID, sellerID, decision)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

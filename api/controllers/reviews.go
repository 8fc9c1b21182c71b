package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/api/responses"
	"github.com/angelmondragon/harvestlink-backend/api/validators"
	"github.com/angelmondragon/harvestlink-backend/internal/reviews"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
)

const (
	maxReviewTitle   = 120
	maxReviewComment = 2000
)

type submitReviewRequest struct {
	OrderID    string  `json:"orderId" validate:"required,uuid"`
	Rating     int     `json:"rating" validate:"gte=1,lte=5"`
	Comment    string  `json:"comment"`
	Experience string  `json:"experience" validate:"required"`
	Title      *string `json:"title,omitempty"`
}

type updateReviewRequest struct {
	Rating     *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Comment    *string `json:"comment,omitempty"`
	Experience *string `json:"experience,omitempty"`
	Title      *string `json:"title,omitempty"`
}

// CanReview explains whether the caller may review the order.
func CanReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reviews"))
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
		eligibility, err := svc.CanReview(r.Context(), orderID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, eligibility)
	}
}

// SubmitReview stores the buyer's review of a delivered, paid order.
func SubmitReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reviews"))
			return
		}
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		experience, err := parseExperience(body.Experience)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Submit(r.Context(), reviews.SubmitInput{
			OrderID:    uuid.MustParse(body.OrderID),
			BuyerID:    buyerID,
			Rating:     body.Rating,
			Title:      validators.SanitizeOptional(body.Title, maxReviewTitle),
			Comment:    validators.SanitizeString(body.Comment, maxReviewComment),
			Experience: experience,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// UpdateReview edits the caller's review.
func UpdateReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reviews"))
			return
		}
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reviewID, err := validators.ParseUUIDParam(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := reviews.UpdateInput{
			ReviewID: reviewID,
			BuyerID:  buyerID,
			Rating:   body.Rating,
			Title:    validators.SanitizeOptional(body.Title, maxReviewTitle),
		}
		if body.Comment != nil {
			comment := validators.SanitizeString(*body.Comment, maxReviewComment)
			input.Comment = &comment
		}
		if body.Experience != nil {
			experience, err := parseExperience(*body.Experience)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Experience = &experience
		}

		view, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DeleteReview removes the caller's review and reopens the order for review.
func DeleteReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reviews"))
			return
		}
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reviewID, err := validators.ParseUUIDParam(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), reviewID, buyerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": reviewID, "deleted": true})
	}
}

func parseExperience(raw string) (enums.ReviewExperience, error) {
	experience, err := enums.ParseReviewExperience(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").
			WithDetails(map[string]string{"experience": "must be one of [positive neutral negative]"})
	}
	return experience, nil
}

package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	"github.com/angelmondragon/harvestlink-backend/pkg/db"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/payloads"
)

const (
	minRating = 1
	maxRating = 5
)

// Eligibility conditions, reported in this order.
const (
	ConditionIsBuyer     = "is_buyer"
	ConditionDelivered   = "delivered"
	ConditionPaid        = "paid"
	ConditionCanReview   = "can_review_flag"
	ConditionNotReviewed = "not_reviewed"
)

// Service decides review eligibility and records reviews.
type Service interface {
	CanReview(ctx context.Context, orderID, buyerID uuid.UUID) (*Eligibility, error)
	Submit(ctx context.Context, input SubmitInput) (*ReviewView, error)
	Update(ctx context.Context, input UpdateInput) (*ReviewView, error)
	Delete(ctx context.Context, reviewID, buyerID uuid.UUID) error
}

// Reason is one eligibility condition and whether it holds.
type Reason struct {
	Condition string `json:"condition"`
	Met       bool   `json:"met"`
}

// Eligibility is the itemized answer to "may this buyer review this order".
type Eligibility struct {
	Eligible bool     `json:"eligible"`
	Reasons  []Reason `json:"reasons"`
}

func (e Eligibility) unmet() []string {
	var out []string
	for _, r := range e.Reasons {
		if !r.Met {
			out = append(out, r.Condition)
		}
	}
	return out
}

// SubmitInput is a new review for a delivered order.
type SubmitInput struct {
	OrderID    uuid.UUID
	BuyerID    uuid.UUID
	Rating     int
	Title      *string
	Comment    string
	Experience enums.ReviewExperience
}

// UpdateInput edits an existing review. Nil fields are left unchanged.
type UpdateInput struct {
	ReviewID   uuid.UUID
	BuyerID    uuid.UUID
	Rating     *int
	Title      *string
	Comment    *string
	Experience *enums.ReviewExperience
}

// ReviewView is the API representation of a review.
type ReviewView struct {
	ID         uuid.UUID              `json:"id"`
	OrderID    *uuid.UUID             `json:"order_id,omitempty"`
	BuyerID    uuid.UUID              `json:"buyer_id"`
	SellerID   uuid.UUID              `json:"seller_id"`
	ProductID  uuid.UUID              `json:"product_id"`
	Rating     int                    `json:"rating"`
	Title      *string                `json:"title,omitempty"`
	Comment    string                 `json:"comment"`
	Experience enums.ReviewExperience `json:"experience"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func newReviewView(r *models.Review) ReviewView {
	return ReviewView{
		ID:         r.ID,
		OrderID:    r.OrderID,
		BuyerID:    r.BuyerID,
		SellerID:   r.SellerID,
		ProductID:  r.ProductID,
		Rating:     r.Rating,
		Title:      r.Title,
		Comment:    r.Comment,
		Experience: r.Experience,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// ServiceParams wires the review dependencies.
type ServiceParams struct {
	Repo    Repository
	Orders  orders.Repository
	Tx      orders.TxRunner
	Outbox  orders.OutboxEmitter
	Sink    notifications.Sink
	Logger  *logger.Logger
	Metrics *metrics.FulfillmentMetrics
	Clock   func() time.Time
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      orders.TxRunner
	outbox  orders.OutboxEmitter
	sink    notifications.Sink
	logg    *logger.Logger
	metrics *metrics.FulfillmentMetrics
	now     func() time.Time
}

// NewService validates dependencies and builds the review service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reviews repository required")
	case p.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case p.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case p.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	s := &service{
		repo:    p.Repo,
		orders:  p.Orders,
		tx:      p.Tx,
		outbox:  p.Outbox,
		sink:    p.Sink,
		logg:    p.Logger,
		metrics: p.Metrics,
		now:     p.Clock,
	}
	if s.sink == nil {
		s.sink = notifications.NopSink{}
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func evaluate(o *models.Order, buyerID uuid.UUID, reviewed bool) Eligibility {
	reasons := []Reason{
		{Condition: ConditionIsBuyer, Met: o.BuyerID == buyerID},
		{Condition: ConditionDelivered, Met: o.DeliveryStatus == enums.DeliveryStatusDelivered},
		{Condition: ConditionPaid, Met: o.PaidStatus == enums.PaidStatusPaid},
		{Condition: ConditionCanReview, Met: o.CanReview},
		{Condition: ConditionNotReviewed, Met: !reviewed},
	}
	eligible := true
	for _, r := range reasons {
		eligible = eligible && r.Met
	}
	return Eligibility{Eligible: eligible, Reasons: reasons}
}

func (s *service) CanReview(ctx context.Context, orderID, buyerID uuid.UUID) (*Eligibility, error) {
	agg, err := s.orders.LoadByOrderID(ctx, orderID)
	if err != nil {
		return nil, orders.MapRepoError(err, "order not found")
	}
	existing, err := s.repo.FindByOrder(ctx, buyerID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	elig := evaluate(agg.Order, buyerID, existing != nil)
	return &elig, nil
}

func validateContent(rating int, experience enums.ReviewExperience) error {
	if rating < minRating || rating > maxRating {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	if !experience.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "experience must be positive, neutral or negative")
	}
	return nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*ReviewView, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	if err := validateContent(input.Rating, input.Experience); err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	var (
		batch   notifications.Batch
		created *models.Review
	)
	err := orders.WithVersionedTx(ctx, s.tx, func(tx *gorm.DB) error {
		batch.Reset()
		orderRepo := s.orders.WithTx(tx)
		reviewRepo := s.repo.WithTx(tx)

		agg, err := orderRepo.LoadByOrderID(ctx, input.OrderID)
		if err != nil {
			return orders.MapRepoError(err, "order not found")
		}
		existing, err := reviewRepo.FindByOrder(ctx, input.BuyerID, input.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyReviewed, "order already reviewed")
		}
		o := agg.Order
		if elig := evaluate(o, input.BuyerID, false); !elig.Eligible {
			return pkgerrors.New(pkgerrors.CodeNotEligible, "order is not eligible for review").
				WithDetails(map[string]any{"unmet": elig.unmet()})
		}

		orderID := o.ID
		review := &models.Review{
			ID:         uuid.New(),
			BuyerID:    input.BuyerID,
			SellerID:   o.SellerID,
			OrderID:    &orderID,
			ProductID:  o.ProductID,
			Rating:     input.Rating,
			Title:      trimmedPtr(input.Title),
			Comment:    strings.TrimSpace(input.Comment),
			Experience: input.Experience,
			IsVisible:  true,
		}
		if err := reviewRepo.Create(ctx, review); err != nil {
			if db.IsUniqueViolation(err, "ux_reviews_buyer_order") {
				return pkgerrors.New(pkgerrors.CodeAlreadyReviewed, "order already reviewed")
			}
			return err
		}
		orders.CloseReview(o)
		if err := orderRepo.SaveAggregate(ctx, agg); err != nil {
			return err
		}
		rating, err := s.recompute(ctx, reviewRepo, o.SellerID)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, tx, enums.EventReviewSubmitted, review, rating); err != nil {
			return err
		}
		batch.Add(orders.SellerMessage(o, enums.NotificationTypeNewReview, "New review",
			fmt.Sprintf("A buyer rated order %s %d out of %d.", o.ReferenceNo, review.Rating, maxRating)))
		created = review
		return nil
	})
	if err != nil {
		s.metrics.Transition("review_submit", metrics.TransitionRejected)
		return nil, orders.MapRepoError(err, "order not found")
	}
	s.metrics.Transition("review_submit", metrics.TransitionApplied)
	batch.Flush(ctx, s.sink)
	s.logg.Info(ctx, "review submitted")
	view := newReviewView(created)
	return &view, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*ReviewView, error) {
	var updated *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		review, err := s.loadOwned(ctx, repo, input.ReviewID, input.BuyerID)
		if err != nil {
			return err
		}
		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Experience != nil {
			review.Experience = *input.Experience
		}
		if input.Comment != nil {
			review.Comment = strings.TrimSpace(*input.Comment)
		}
		if input.Title != nil {
			review.Title = trimmedPtr(input.Title)
		}
		if err := validateContent(review.Rating, review.Experience); err != nil {
			return err
		}
		if err := repo.Update(ctx, review); err != nil {
			return err
		}
		rating, err := s.recompute(ctx, repo, review.SellerID)
		if err != nil {
			return err
		}
		updated = review
		return s.emit(ctx, tx, enums.EventReviewUpdated, review, rating)
	})
	if err != nil {
		return nil, orders.MapRepoError(err, "review not found")
	}
	view := newReviewView(updated)
	return &view, nil
}

// Delete removes a review and hands the review permission back to the order.
func (s *service) Delete(ctx context.Context, reviewID, buyerID uuid.UUID) error {
	var orphaned bool
	err := orders.WithVersionedTx(ctx, s.tx, func(tx *gorm.DB) error {
		orphaned = false
		repo := s.repo.WithTx(tx)
		review, err := s.loadOwned(ctx, repo, reviewID, buyerID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, review.ID); err != nil {
			return err
		}
		if review.OrderID != nil {
			orderRepo := s.orders.WithTx(tx)
			agg, err := orderRepo.LoadByOrderID(ctx, *review.OrderID)
			switch {
			case err == nil:
				orders.ReopenReview(agg.Order)
				if err := orderRepo.SaveAggregate(ctx, agg); err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				orphaned = true
			default:
				return err
			}
		}
		rating, err := s.recompute(ctx, repo, review.SellerID)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventReviewDeleted, review, rating)
	})
	if err != nil {
		s.metrics.Transition("review_delete", metrics.TransitionRejected)
		return orders.MapRepoError(err, "review not found")
	}
	if orphaned {
		s.logg.Warn(s.logg.WithField(ctx, "review_id", reviewID.String()), "reviewed order no longer exists")
	}
	s.metrics.Transition("review_delete", metrics.TransitionApplied)
	return nil
}

func (s *service) loadOwned(ctx context.Context, repo Repository, reviewID, buyerID uuid.UUID) (*models.Review, error) {
	review, err := repo.Get(ctx, reviewID)
	if err != nil {
		return nil, orders.MapRepoError(err, "review not found")
	}
	if review.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another buyer")
	}
	return review, nil
}

func (s *service) recompute(ctx context.Context, repo Repository, sellerID uuid.UUID) (SellerRating, error) {
	rating, err := repo.SellerAggregate(ctx, sellerID)
	if err != nil {
		return SellerRating{}, err
	}
	if err := repo.SaveSellerRating(ctx, sellerID, rating); err != nil {
		return SellerRating{}, err
	}
	return rating, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, review *models.Review, rating SellerRating) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReview,
		AggregateID:   review.ID,
		Actor:         &outbox.ActorRef{UserID: review.BuyerID, Role: string(enums.UserRoleBuyer)},
		Data: payloads.ReviewEvent{
			ReviewID:      review.ID,
			OrderID:       review.OrderID,
			BuyerID:       review.BuyerID,
			SellerID:      review.SellerID,
			Rating:        review.Rating,
			AverageRating: rating.Average.StringFixed(2),
			ReviewCount:   rating.Count,
		},
		OccurredAt: s.now().UTC(),
	})
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

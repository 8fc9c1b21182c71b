package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/api/middleware"
	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	"github.com/angelmondragon/harvestlink-backend/internal/payments"
	"github.com/angelmondragon/harvestlink-backend/internal/requests"
	"github.com/angelmondragon/harvestlink-backend/internal/reviews"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/pagination"
)

type stubOrders struct {
	create  func(orders.CreateInput) (*orders.OrderView, error)
	get     func(orderID, actorID uuid.UUID) (*orders.OrderView, error)
	list    func(buyerID uuid.UUID, params pagination.Params) (*pagination.Page[orders.OrderView], error)
	cancel  func(orderID, buyerID uuid.UUID) (*orders.OrderView, error)
	delete  func(orderID, buyerID uuid.UUID) error
	confirm func(orderID, buyerID uuid.UUID) (*orders.OrderView, error)
}

func (s *stubOrders) Create(_ context.Context, input orders.CreateInput) (*orders.OrderView, error) {
	return s.create(input)
}

func (s *stubOrders) Get(_ context.Context, orderID, actorID uuid.UUID) (*orders.OrderView, error) {
	return s.get(orderID, actorID)
}

func (s *stubOrders) ListBuyerOrders(_ context.Context, buyerID uuid.UUID, params pagination.Params) (*pagination.Page[orders.OrderView], error) {
	return s.list(buyerID, params)
}

func (s *stubOrders) Cancel(_ context.Context, orderID, buyerID uuid.UUID) (*orders.OrderView, error) {
	return s.cancel(orderID, buyerID)
}

func (s *stubOrders) Delete(_ context.Context, orderID, buyerID uuid.UUID) error {
	return s.delete(orderID, buyerID)
}

func (s *stubOrders) ConfirmDelivery(_ context.Context, orderID, buyerID uuid.UUID) (*orders.OrderView, error) {
	return s.confirm(orderID, buyerID)
}

type stubRequests struct {
	decide func(requestID, sellerID uuid.UUID, decision enums.RequestStatus) (*requests.Decision, error)
	list   func(requests.ListParams) (*pagination.Page[orders.RequestView], error)
}

func (s *stubRequests) Decide(_ context.Context, requestID, sellerID uuid.UUID, decision enums.RequestStatus) (*requests.Decision, error) {
	return s.decide(requestID, sellerID, decision)
}

func (s *stubRequests) List(_ context.Context, params requests.ListParams) (*pagination.Page[orders.RequestView], error) {
	return s.list(params)
}

type stubPayments struct {
	initiate func(payments.InitiateInput) (*payments.InitiateResult, error)
	callback func(referenceNo, description string) (*payments.CallbackResult, error)
}

func (s *stubPayments) Initiate(_ context.Context, input payments.InitiateInput) (*payments.InitiateResult, error) {
	return s.initiate(input)
}

func (s *stubPayments) ApplyCallback(_ context.Context, referenceNo, description string) (*payments.CallbackResult, error) {
	return s.callback(referenceNo, description)
}

type stubReviews struct {
	canReview func(orderID, buyerID uuid.UUID) (*reviews.Eligibility, error)
	submit    func(reviews.SubmitInput) (*reviews.ReviewView, error)
	update    func(reviews.UpdateInput) (*reviews.ReviewView, error)
	delete    func(reviewID, buyerID uuid.UUID) error
}

func (s *stubReviews) CanReview(_ context.Context, orderID, buyerID uuid.UUID) (*reviews.Eligibility, error) {
	return s.canReview(orderID, buyerID)
}

func (s *stubReviews) Submit(_ context.Context, input reviews.SubmitInput) (*reviews.ReviewView, error) {
	return s.submit(input)
}

func (s *stubReviews) Update(_ context.Context, input reviews.UpdateInput) (*reviews.ReviewView, error) {
	return s.update(input)
}

func (s *stubReviews) Delete(_ context.Context, reviewID, buyerID uuid.UUID) error {
	return s.delete(reviewID, buyerID)
}

type stubNotifications struct {
	list    func(notifications.ListParams) (*pagination.Page[models.Notification], error)
	markOne func(userID, notificationID uuid.UUID) error
	markAll func(userID uuid.UUID) (int64, error)
}

func (s *stubNotifications) List(_ context.Context, params notifications.ListParams) (*pagination.Page[models.Notification], error) {
	return s.list(params)
}

func (s *stubNotifications) MarkRead(_ context.Context, userID, notificationID uuid.UUID) error {
	return s.markOne(userID, notificationID)
}

func (s *stubNotifications) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	return s.markAll(userID)
}

// newRequest builds a request as the router would hand it to a handler:
// caller identity in context and chi URL params populated.
func newRequest(method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID.String())
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

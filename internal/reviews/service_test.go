package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	"github.com/angelmondragon/harvestlink-backend/internal/orders/orderstest"
	"github.com/angelmondragon/harvestlink-backend/internal/payments"
	product "github.com/angelmondragon/harvestlink-backend/internal/products"
	"github.com/angelmondragon/harvestlink-backend/internal/requests"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/harvestlink-backend/pkg/errors"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/types"
)

type noopGateway struct{}

func (noopGateway) Initiate(context.Context, payments.GatewayRequest) (*payments.GatewayResponse, error) {
	return &payments.GatewayResponse{Status: "pending"}, nil
}

type fixture struct {
	reviews  Service
	orders   orders.Service
	requests requests.Service
	payments payments.Service
	conn     *gorm.DB
	sink     *orderstest.Sink
	seller   *models.Seller
	product  *models.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	sink := &orderstest.Sink{}
	orderRepo := orders.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logger.Nop())

	reviewSvc, err := NewService(ServiceParams{
		Repo: NewRepository(conn), Orders: orderRepo, Tx: client, Outbox: emitter, Sink: sink, Clock: orderstest.Clock,
	})
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo: orderRepo, Products: product.NewReader(conn), Tx: client, Outbox: emitter, Sink: sink, Clock: orderstest.Clock,
	})
	require.NoError(t, err)
	requestSvc, err := requests.NewService(requests.ServiceParams{
		Repo: orderRepo, Tx: client, Outbox: emitter, Sink: sink, Clock: orderstest.Clock,
	})
	require.NoError(t, err)
	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repo: orderRepo, Tx: client, Outbox: emitter, Gateway: noopGateway{}, Sink: sink, Clock: orderstest.Clock,
	})
	require.NoError(t, err)

	seller := orderstest.SeedSeller(t, conn)
	return fixture{
		reviews:  reviewSvc,
		orders:   orderSvc,
		requests: requestSvc,
		payments: paymentSvc,
		conn:     conn,
		sink:     sink,
		seller:   seller,
		product:  orderstest.SeedProduct(t, conn, seller.ID),
	}
}

// deliveredOrder walks an order through create, accept, pay and deliver.
func (f fixture) deliveredOrder(t *testing.T, buyerID uuid.UUID) *orders.OrderView {
	t.Helper()
	ctx := context.Background()
	view, err := f.orders.Create(ctx, orders.CreateInput{
		BuyerID:      buyerID,
		ProductID:    f.product.ID,
		Quantity:     2,
		DeliveryDate: types.NewDate(orderstest.Now.AddDate(0, 0, 1)),
	})
	require.NoError(t, err)

	_, err = f.requests.Decide(ctx, *view.RequestID, f.seller.ID, enums.RequestStatusAccepted)
	require.NoError(t, err)

	paid, err := f.payments.ApplyCallback(ctx, view.ReferenceNo, "SUCCESSFUL")
	require.NoError(t, err)
	require.Equal(t, enums.PaidStatusPaid, paid.PaidStatus)

	delivered, err := f.orders.ConfirmDelivery(ctx, view.ID, buyerID)
	require.NoError(t, err)
	require.True(t, delivered.CanReview)
	return delivered
}

func (f fixture) submit(buyerID, orderID uuid.UUID, rating int) (*ReviewView, error) {
	return f.reviews.Submit(context.Background(), SubmitInput{
		OrderID:    orderID,
		BuyerID:    buyerID,
		Rating:     rating,
		Comment:    "  Fresh and on time ",
		Experience: enums.ReviewExperiencePositive,
	})
}

func TestFulfillmentToEligibility(t *testing.T) {
	f := newFixture(t)
	buyerID := uuid.New()
	order := f.deliveredOrder(t, buyerID)

	elig, err := f.reviews.CanReview(context.Background(), order.ID, buyerID)
	require.NoError(t, err)
	require.True(t, elig.Eligible)
	require.Len(t, elig.Reasons, 5)

	other, err := f.reviews.CanReview(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)
	require.False(t, other.Eligible)
	require.Equal(t, ConditionIsBuyer, other.Reasons[0].Condition)
	require.False(t, other.Reasons[0].Met)
}

func TestSubmitClosesEligibilityAndRejectsSecondReview(t *testing.T) {
	f := newFixture(t)
	buyerID := uuid.New()
	order := f.deliveredOrder(t, buyerID)

	review, err := f.submit(buyerID, order.ID, 5)
	require.NoError(t, err)
	require.Equal(t, "Fresh and on time", review.Comment)

	stored := orderstest.ReloadOrder(t, f.conn, order.ID)
	require.False(t, stored.CanReview)

	_, err = f.submit(buyerID, order.ID, 4)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeAlreadyReviewed), "got %v", err)

	var count int64
	require.NoError(t, f.conn.Model(&models.Review{}).Where("order_id = ?", order.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var seller models.Seller
	require.NoError(t, f.conn.Where("id = ?", f.seller.ID).First(&seller).Error)
	require.Equal(t, 1, seller.ReviewCount)
	require.True(t, seller.AverageRating.Equal(decimal.NewFromInt(5)), "average %s", seller.AverageRating)

	require.Contains(t, f.sink.Types(f.seller.ID), enums.NotificationTypeNewReview)

	elig, err := f.reviews.CanReview(context.Background(), order.ID, buyerID)
	require.NoError(t, err)
	require.False(t, elig.Eligible)
}

func TestSubmitValidationAndEligibility(t *testing.T) {
	f := newFixture(t)
	buyerID := uuid.New()

	_, err := f.submit(buyerID, uuid.New(), 6)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.reviews.Submit(context.Background(), SubmitInput{
		OrderID: uuid.New(), BuyerID: buyerID, Rating: 3, Experience: "meh",
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.submit(buyerID, uuid.New(), 3)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "got %v", err)

	shipped, _ := orderstest.SeedOrder(t, f.conn, buyerID, f.product, orderstest.OrderState{
		Request:  enums.RequestStatusAccepted,
		Paid:     enums.PaidStatusPaid,
		Delivery: enums.DeliveryStatusShipped,
	})
	_, err = f.submit(buyerID, shipped.ID, 3)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotEligible), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, []string{ConditionDelivered, ConditionCanReview}, details["unmet"])
}

func TestSellerAverageAcrossReviews(t *testing.T) {
	f := newFixture(t)
	first, second := uuid.New(), uuid.New()
	o1, _ := orderstest.SeedOrder(t, f.conn, first, f.product, orderstest.Delivered)
	o2, _ := orderstest.SeedOrder(t, f.conn, second, f.product, orderstest.Delivered)

	_, err := f.submit(first, o1.ID, 5)
	require.NoError(t, err)
	_, err = f.submit(second, o2.ID, 2)
	require.NoError(t, err)

	var seller models.Seller
	require.NoError(t, f.conn.Where("id = ?", f.seller.ID).First(&seller).Error)
	require.Equal(t, 2, seller.ReviewCount)
	require.True(t, seller.AverageRating.Equal(decimal.RequireFromString("3.5")), "average %s", seller.AverageRating)
}

func TestUpdateAndDeleteReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyerID := uuid.New()
	order, _ := orderstest.SeedOrder(t, f.conn, buyerID, f.product, orderstest.Delivered)

	review, err := f.submit(buyerID, order.ID, 4)
	require.NoError(t, err)

	rating := 2
	_, err = f.reviews.Update(ctx, UpdateInput{ReviewID: review.ID, BuyerID: uuid.New(), Rating: &rating})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden), "got %v", err)

	updated, err := f.reviews.Update(ctx, UpdateInput{ReviewID: review.ID, BuyerID: buyerID, Rating: &rating})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Rating)

	bad := 0
	_, err = f.reviews.Update(ctx, UpdateInput{ReviewID: review.ID, BuyerID: buyerID, Rating: &bad})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	var seller models.Seller
	require.NoError(t, f.conn.Where("id = ?", f.seller.ID).First(&seller).Error)
	require.True(t, seller.AverageRating.Equal(decimal.NewFromInt(2)), "average %s", seller.AverageRating)

	require.NoError(t, f.reviews.Delete(ctx, review.ID, buyerID))
	stored := orderstest.ReloadOrder(t, f.conn, order.ID)
	require.True(t, stored.CanReview)

	require.NoError(t, f.conn.Where("id = ?", f.seller.ID).First(&seller).Error)
	require.Zero(t, seller.ReviewCount)
	require.True(t, seller.AverageRating.IsZero())

	elig, err := f.reviews.CanReview(ctx, order.ID, buyerID)
	require.NoError(t, err)
	require.True(t, elig.Eligible)

	err = f.reviews.Delete(ctx, review.ID, buyerID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "got %v", err)
}

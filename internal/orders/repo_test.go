package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/harvestlink-backend/internal/orders/orderstest"
	"github.com/angelmondragon/harvestlink-backend/pkg/db"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
)

func TestRepositoryLoadAndSaveBumpsVersion(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(conn)

	seller := orderstest.SeedSeller(t, conn)
	p := orderstest.SeedProduct(t, conn, seller.ID)
	order, request := orderstest.SeedOrder(t, conn, uuid.New(), p, orderstest.Pending)

	agg, err := repo.LoadByRequestID(ctx, request.ID)
	require.NoError(t, err)
	require.NotNil(t, agg.Order)
	require.Equal(t, order.ID, agg.Order.ID)

	byRef, err := repo.LoadByReference(ctx, order.ReferenceNo)
	require.NoError(t, err)
	require.Equal(t, request.ID, byRef.Request.ID)

	err = Decide(agg, enums.RequestStatusAccepted, orderstest.Now)
	require.NoError(t, err)
	require.NoError(t, repo.SaveAggregate(ctx, agg))
	require.Equal(t, 2, agg.Order.Version)

	stored := orderstest.ReloadOrder(t, conn, order.ID)
	require.Equal(t, enums.RequestStatusAccepted, stored.RequestStatus)
	require.Equal(t, enums.DeliveryStatusShipped, stored.DeliveryStatus)
	require.Equal(t, 2, stored.Version)
	storedReq := orderstest.ReloadRequest(t, conn, request.ID)
	require.Equal(t, enums.RequestStatusAccepted, storedReq.Status)
	require.NotNil(t, storedReq.DecidedAt)
}

func TestRepositorySaveDetectsStaleVersion(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(conn)

	seller := orderstest.SeedSeller(t, conn)
	p := orderstest.SeedProduct(t, conn, seller.ID)
	order, _ := orderstest.SeedOrder(t, conn, uuid.New(), p, orderstest.Pending)

	first, err := repo.LoadByOrderID(ctx, order.ID)
	require.NoError(t, err)
	second, err := repo.LoadByOrderID(ctx, order.ID)
	require.NoError(t, err)

	_, err = Cancel(first, orderstest.Now)
	require.NoError(t, err)
	require.NoError(t, repo.SaveAggregate(ctx, first))

	err = Decide(second, enums.RequestStatusAccepted, orderstest.Now)
	require.NoError(t, err)
	err = repo.SaveAggregate(ctx, second)
	require.True(t, errors.Is(err, db.ErrStaleVersion), "expected stale version, got %v", err)

	stored := orderstest.ReloadOrder(t, conn, order.ID)
	require.Equal(t, enums.DeliveryStatusCancelled, stored.DeliveryStatus)
}

func TestRepositorySaveRejectsInvalidAggregate(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	seller := orderstest.SeedSeller(t, conn)
	p := orderstest.SeedProduct(t, conn, seller.ID)
	order, _ := orderstest.SeedOrder(t, conn, uuid.New(), p, orderstest.Pending)

	agg, err := repo.LoadByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	agg.Order.DeliveryStatus = enums.DeliveryStatusDelivered
	require.Error(t, repo.SaveAggregate(context.Background(), agg))

	stored := orderstest.ReloadOrder(t, conn, order.ID)
	require.Equal(t, enums.DeliveryStatusPending, stored.DeliveryStatus)
}

func TestRepositoryDeleteAndMissingRows(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(conn)

	seller := orderstest.SeedSeller(t, conn)
	p := orderstest.SeedProduct(t, conn, seller.ID)
	order, request := orderstest.SeedOrder(t, conn, uuid.New(), p, orderstest.Pending)

	agg, err := repo.LoadByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteAggregate(ctx, agg))

	_, err = repo.LoadByOrderID(ctx, order.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.LoadByRequestID(ctx, request.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListsWithCursor(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(conn)

	buyerID := uuid.New()
	seller := orderstest.SeedSeller(t, conn)
	p := orderstest.SeedProduct(t, conn, seller.ID)
	for i := 0; i < 3; i++ {
		orderstest.SeedOrder(t, conn, buyerID, p, orderstest.Pending)
	}
	orderstest.SeedOrder(t, conn, uuid.New(), p, orderstest.Pending)

	rows, err := repo.ListBuyerOrders(ctx, buyerID, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	pending := enums.RequestStatusPending
	requests, err := repo.ListSellerRequests(ctx, RequestFilter{SellerID: seller.ID, Status: &pending}, 10, nil)
	require.NoError(t, err)
	require.Len(t, requests, 4)

	accepted := enums.RequestStatusAccepted
	requests, err = repo.ListSellerRequests(ctx, RequestFilter{SellerID: seller.ID, Status: &accepted}, 10, nil)
	require.NoError(t, err)
	require.Empty(t, requests)
}

package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	"github.com/angelmondragon/mealflow-backend/pkg/pagination"
)

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_repo_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OrderLine{}))
	return conn
}

func seedOrder(t *testing.T, repo Repository, customerID uuid.UUID, at time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		CustomerID:  customerID,
		TotalAmount: decimal.RequireFromString("4.00"),
		Status:      enums.OrderStatusPending,
		CreatedAt:   at,
	}
	require.NoError(t, repo.CreateOrder(context.Background(), order))
	require.NoError(t, repo.CreateLines(context.Background(), []models.OrderLine{{
		OrderID:              order.ID,
		OfferingID:           uuid.New(),
		OfferingName:         "Pho bo",
		Quantity:             2,
		UnitPriceAtOrderTime: decimal.RequireFromString("2.00"),
		LineTotal:            decimal.RequireFromString("4.00"),
	}}))
	return order
}

func TestRepositoryFindByIDPreloadsLines(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	order := seedOrder(t, repo, uuid.New(), time.Now().UTC())

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Lines, 1)
	require.Equal(t, "Pho bo", found.Lines[0].OfferingName)

	_, err = repo.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryTransitionStatusIsCompareAndSwap(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	order := seedOrder(t, repo, uuid.New(), time.Now().UTC())
	ctx := context.Background()

	require.NoError(t, repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPendingPayment,
		map[string]any{"payment_method": enums.PaymentMethodCOD}))

	err := repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed, nil)
	require.ErrorIs(t, err, errStatusChanged)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPendingPayment, found.Status)
	require.True(t, found.HasPaymentMethod(enums.PaymentMethodCOD))
}

func TestRepositoryTransitionStatusAppliesExpressions(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	order := seedOrder(t, repo, uuid.New(), time.Now().UTC())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusPending,
			map[string]any{"payment_attempts": gorm.Expr("payment_attempts + ?", 1)}))
	}

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 2, found.PaymentAttempts)
}

func TestRepositoryListByCustomerScopesToOwner(t *testing.T) {
	repo := NewRepository(newRepoDB(t))
	mine := uuid.New()
	base := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	seedOrder(t, repo, mine, base)
	seedOrder(t, repo, mine, base.Add(time.Minute))
	seedOrder(t, repo, uuid.New(), base.Add(2*time.Minute))

	list, err := repo.ListByCustomer(context.Background(), mine, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Orders, 2)
	require.Empty(t, list.NextCursor)
	for _, view := range list.Orders {
		require.Equal(t, mine, view.CustomerID)
	}
}

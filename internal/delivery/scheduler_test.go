package delivery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:delivery_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.DeliverySchedule{}))
	return db
}

func TestCreateSchedulesOncePerOrder(t *testing.T) {
	db := newTestDB(t)
	s := NewScheduler()
	ctx := context.Background()
	orderID := uuid.New()
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	schedule, err := s.Create(ctx, db, orderID, at, " 12 Le Loi, District 1 ", "+84 90 000 0000")
	require.NoError(t, err)
	require.Equal(t, orderID, schedule.OrderID)
	require.Equal(t, "12 Le Loi, District 1", schedule.Address)

	_, err = s.Create(ctx, db, orderID, at.Add(time.Hour), "elsewhere", "")
	require.ErrorIs(t, err, ErrAlreadyScheduled)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	found, err := s.FindByOrder(ctx, db, orderID)
	require.NoError(t, err)
	require.Equal(t, schedule.ID, found.ID)
	require.True(t, at.Equal(found.DeliveryTime))
}

func TestCreateValidatesInput(t *testing.T) {
	db := newTestDB(t)
	s := NewScheduler()
	ctx := context.Background()

	_, err := s.Create(ctx, db, uuid.New(), time.Now(), "  ", "")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = s.Create(ctx, db, uuid.Nil, time.Now(), "addr", "")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = s.FindByOrder(ctx, db, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

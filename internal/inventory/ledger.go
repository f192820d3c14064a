package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
)

var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrOfferingNotFound     = errors.New("offering not found")
	ErrOfferingUnavailable  = errors.New("offering is not purchasable")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)

// Line is one (offering, quantity) pair to reserve or release.
type Line struct {
	OfferingID uuid.UUID
	Quantity   int
}

// Reservation is the price snapshot handed back by a successful reserve.
type Reservation struct {
	OfferingID uuid.UUID
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Ledger reserves and releases purchasable quantity. Every method runs on the
// caller's transaction handle so it joins the caller's unit of work.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, offeringID uuid.UUID, qty int) (Reservation, error)
	Release(ctx context.Context, tx *gorm.DB, offeringID uuid.UUID, qty int) error
	ReserveAll(ctx context.Context, tx *gorm.DB, lines []Line) ([]Reservation, error)
	ReleaseAll(ctx context.Context, tx *gorm.DB, lines []Line) error
	Lookup(ctx context.Context, tx *gorm.DB, offeringID uuid.UUID) (*models.MenuOffering, error)
}

type ledger struct{}

// NewLedger returns the SQL-backed ledger.
func NewLedger() Ledger {
	return ledger{}
}

type reserveRow struct {
	Name      string
	UnitPrice decimal.Decimal
}

// Reserve decrements available quantity in a single conditional statement so
// concurrent reservations can never drive the count negative.
func (ledger) Reserve(ctx context.Context, tx *gorm.DB, offeringID uuid.UUID, qty int) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, invalidQuantity(offeringID, qty)
	}
	if tx == nil {
		return Reservation{}, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reserve")
	}

	var rows []reserveRow
	res := tx.WithContext(ctx).Raw(`
		UPDATE menu_offerings
		SET available_quantity = available_quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND purchasable = ? AND available_quantity >= ?
		RETURNING name, unit_price
	`, qty, offeringID, true, qty).Scan(&rows)
	if res.Error != nil {
		return Reservation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if len(rows) == 1 {
		return Reservation{
			OfferingID: offeringID,
			Name:       rows[0].Name,
			UnitPrice:  rows[0].UnitPrice,
			Quantity:   qty,
		}, nil
	}

	return Reservation{}, classifyReserveFailure(ctx, tx, offeringID, qty)
}

// classifyReserveFailure reads the offering after a rejected decrement to
// explain why. The read never gates a write.
func classifyReserveFailure(ctx context.Context, tx *gorm.DB, offeringID uuid.UUID, qty int) error {
	offering, err := lookup(ctx, tx, offeringID)
	if err != nil {
		return err
	}
	if !offering.Purchasable {
		return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrOfferingUnavailable,
			fmt.Sprintf("offering %s is not available for purchase", offeringID)).
			WithDetails(map[string]any{"offering_id": offeringID.String()})
	}
	return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrInsufficientQuantity,
		fmt.Sprintf("insufficient quantity for offering %s: requested %d, available %d", offeringID, qty, offering.AvailableQuantity)).
		WithDetails(map[string]any{
			"offering_id": offeringID.String(),
			"requested":   qty,
			"available":   offering.AvailableQuantity,
		})
}

// Release adds quantity back unconditionally. Callers must release exactly
// once per successful reservation.
func (ledger) Release(ctx context.Context, tx *gorm.DB, offeringID uuid.UUID, qty int) error {
	if qty <= 0 {
		return invalidQuantity(offeringID, qty)
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE menu_offerings
		SET available_quantity = available_quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, offeringID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		return offeringNotFound(offeringID)
	}
	return nil
}

// ReserveAll reserves every line or fails on the first rejection. Offerings
// are locked in id order so two orders sharing offerings cannot deadlock.
// Results come back in input order. Rolling back earlier reservations is the
// caller's transaction's job.
func (l ledger) ReserveAll(ctx context.Context, tx *gorm.DB, lines []Line) ([]Reservation, error) {
	out := make([]Reservation, len(lines))
	for _, idx := range lockOrder(lines) {
		line := lines[idx]
		reservation, err := l.Reserve(ctx, tx, line.OfferingID, line.Quantity)
		if err != nil {
			return nil, err
		}
		out[idx] = reservation
	}
	return out, nil
}

// ReleaseAll returns every line's quantity to the pool.
func (l ledger) ReleaseAll(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, idx := range lockOrder(lines) {
		line := lines[idx]
		if err := l.Release(ctx, tx, line.OfferingID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (ledger) Lookup(ctx context.Context, tx *gorm.DB, offeringID uuid.UUID) (*models.MenuOffering, error) {
	return lookup(ctx, tx, offeringID)
}

func lookup(ctx context.Context, tx *gorm.DB, offeringID uuid.UUID) (*models.MenuOffering, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database handle required for offering lookup")
	}
	var offering models.MenuOffering
	err := tx.WithContext(ctx).First(&offering, "id = ?", offeringID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, offeringNotFound(offeringID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offering")
	}
	return &offering, nil
}

func lockOrder(lines []Line) []int {
	idx := make([]int, len(lines))
	for i := range lines {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return lines[idx[a]].OfferingID.String() < lines[idx[b]].OfferingID.String()
	})
	return idx
}

func offeringNotFound(offeringID uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOfferingNotFound, fmt.Sprintf("offering %s not found", offeringID)).
		WithDetails(map[string]any{"offering_id": offeringID.String()})
}

func invalidQuantity(offeringID uuid.UUID, qty int) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidQuantity, fmt.Sprintf("quantity must be positive, got %d", qty)).
		WithDetails(map[string]any{"offering_id": offeringID.String(), "quantity": qty})
}

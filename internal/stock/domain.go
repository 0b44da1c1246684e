package stock

import (
	"errors"
	"fmt"
	"time"
)

// MovementType enumerates the supported stock movements.
type MovementType string

const (
	// MovementTypeReceipt increases stock at a destination location.
	MovementTypeReceipt MovementType = "RECEIPT"
	// MovementTypeShipment decreases stock at a source location.
	MovementTypeShipment MovementType = "SHIPMENT"
	// MovementTypeTransfer moves stock from a source to a destination location.
	MovementTypeTransfer MovementType = "TRANSFER"
)

// Movement is a committed, immutable ledger entry. Corrections are new
// compensating movements; entries are never updated or deleted.
type Movement struct {
	ID               int64
	Reference        string
	ItemID           int64
	Type             MovementType
	Quantity         int64
	SourceLocationID int64
	DestLocationID   int64
	Note             string
	CreatedBy        int64
	CommittedAt      time.Time
}

// MovementInput describes a proposed movement before validation and commit.
// A zero location id means the side is absent.
type MovementInput struct {
	ItemID           int64
	Type             MovementType
	Quantity         int64
	SourceLocationID int64
	DestLocationID   int64
	Note             string
	Reference        string
	ActorID          int64
}

// Balance summarises stock of one item at one location.
type Balance struct {
	ItemID     int64
	LocationID int64
	Quantity   int64
	UpdatedAt  time.Time
}

// IntegrityRow compares the balance total of an item against the signed sum
// replayed from its ledger entries.
type IntegrityRow struct {
	ItemID       int64
	BalanceTotal int64
	LedgerTotal  int64
}

// ErrInvalidQuantity indicates a zero or negative quantity.
var ErrInvalidQuantity = errors.New("stock: quantity must be a positive integer")

// ErrInvalidLocationCombination indicates the wrong presence or absence of
// source/destination for the movement type.
var ErrInvalidLocationCombination = errors.New("stock: source/destination do not match movement type")

// ErrSameSourceAndDestination indicates a transfer onto itself.
var ErrSameSourceAndDestination = errors.New("stock: transfer source and destination must differ")

// ErrUnknownMovementType indicates an unrecognised movement type.
var ErrUnknownMovementType = errors.New("stock: unknown movement type")

// ErrUnknownItem indicates the referenced item does not exist.
var ErrUnknownItem = errors.New("stock: unknown item")

// ErrUnknownLocation indicates a referenced location does not exist.
var ErrUnknownLocation = errors.New("stock: unknown location")

// ErrWouldGoNegative is returned by the balance store when a delta would take
// a quantity below its allowed minimum.
var ErrWouldGoNegative = errors.New("stock: balance would go negative")

// InsufficientStockError reports a debit that exceeds the live balance at the
// source location. It is only produced inside the locked re-check.
type InsufficientStockError struct {
	LocationID int64
	Available  int64
	Requested  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock: insufficient stock at location %d: available %d, requested %d", e.LocationID, e.Available, e.Requested)
}

// debitLocation returns the location debited by the movement, 0 when none.
func (in MovementInput) debitLocation() int64 {
	switch in.Type {
	case MovementTypeShipment, MovementTypeTransfer:
		return in.SourceLocationID
	}
	return 0
}

// creditLocation returns the location credited by the movement, 0 when none.
func (in MovementInput) creditLocation() int64 {
	switch in.Type {
	case MovementTypeReceipt, MovementTypeTransfer:
		return in.DestLocationID
	}
	return 0
}

// balanceKeys returns the location ids whose balances the movement touches,
// sorted ascending. Lock acquisition must follow this order so that two
// transfers over the same pair of locations can never deadlock.
func (in MovementInput) balanceKeys() []int64 {
	debit, credit := in.debitLocation(), in.creditLocation()
	switch {
	case debit == 0:
		return []int64{credit}
	case credit == 0:
		return []int64{debit}
	case debit < credit:
		return []int64{debit, credit}
	default:
		return []int64{credit, debit}
	}
}

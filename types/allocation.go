package types

import (
	"errors"
	"fmt"
	"math"
)

// MaxQuantity is the largest quantity any ledger holds. Quantities are
// unsigned but bounded to the signed 64-bit range so every backend can
// persist them in a BIGINT column.
const MaxQuantity uint64 = math.MaxInt64

var (
	// ErrOverflow is returned when an addition would exceed MaxQuantity.
	ErrOverflow = errors.New("dyson: quantity overflow")

	// ErrExhausted is returned when a consumption exceeds what is available.
	ErrExhausted = errors.New("dyson: quantity exhausted")
)

// AddQuantity returns a+b, failing with ErrOverflow past MaxQuantity.
func AddQuantity(a, b uint64) (uint64, error) {
	if a > MaxQuantity || b > MaxQuantity-a {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return a + b, nil
}

// SubQuantity returns a-b, failing with ErrExhausted when b > a.
func SubQuantity(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d available, %d requested", ErrExhausted, a, b)
	}
	return a - b, nil
}

// Allocation is the committed-vs-consumed pair every ledger is built on.
// The invariant Consumed <= Committed holds for every value produced by
// Commit and Consume.
//
// JSON field names follow the external contract: a resource or sector
// allocation serializes as {"allocated": n, "used": m}.
type Allocation struct {
	Committed uint64 `json:"allocated" bson:"allocated"`
	Consumed  uint64 `json:"used"      bson:"used"`
}

// Available returns Committed - Consumed, or 0 for an invalid pair.
func (a Allocation) Available() uint64 {
	if a.Consumed > a.Committed {
		return 0
	}
	return a.Committed - a.Consumed
}

// Valid reports whether the pair satisfies Consumed <= Committed and both
// sides are within MaxQuantity.
func (a Allocation) Valid() bool {
	return a.Consumed <= a.Committed && a.Committed <= MaxQuantity
}

// Commit returns a copy with Committed increased by n.
func (a Allocation) Commit(n uint64) (Allocation, error) {
	committed, err := AddQuantity(a.Committed, n)
	if err != nil {
		return a, err
	}
	a.Committed = committed
	return a, nil
}

// Consume returns a copy with Consumed increased by n. It fails with
// ErrExhausted when n exceeds Available.
func (a Allocation) Consume(n uint64) (Allocation, error) {
	if n > a.Available() {
		return a, fmt.Errorf("%w: %d available, %d requested", ErrExhausted, a.Available(), n)
	}
	a.Consumed += n
	return a, nil
}

// IsZero reports whether nothing has been committed or consumed.
func (a Allocation) IsZero() bool { return a.Committed == 0 && a.Consumed == 0 }

package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAllocationArithmetic(t *testing.T) {
	tests := []struct {
		name      string
		op        func() (Allocation, error)
		expected  Allocation
		expectErr error
	}{
		{"Commit from zero", func() (Allocation, error) { return Allocation{}.Commit(500000) }, Allocation{Committed: 500000}, nil},
		{"Consume within", func() (Allocation, error) {
			return Allocation{Committed: 500000}.Consume(100000)
		}, Allocation{Committed: 500000, Consumed: 100000}, nil},
		{"Consume exactly available", func() (Allocation, error) {
			return Allocation{Committed: 10, Consumed: 4}.Consume(6)
		}, Allocation{Committed: 10, Consumed: 10}, nil},
		{"Consume beyond", func() (Allocation, error) {
			return Allocation{Committed: 500000, Consumed: 100000}.Consume(1000000000)
		}, Allocation{Committed: 500000, Consumed: 100000}, ErrExhausted},
		{"Consume from empty", func() (Allocation, error) { return Allocation{}.Consume(1) }, Allocation{}, ErrExhausted},
		{"Commit overflow", func() (Allocation, error) {
			return Allocation{Committed: MaxQuantity}.Commit(1)
		}, Allocation{Committed: MaxQuantity}, ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if !errors.Is(err, tt.expectErr) {
				t.Fatalf("error: got %v, want %v", err, tt.expectErr)
			}
			if got != tt.expected {
				t.Errorf("got %+v, want %+v", got, tt.expected)
			}
			if !got.Valid() {
				t.Errorf("result %+v violates consumed <= committed", got)
			}
		})
	}
}

func TestAllocationAvailable(t *testing.T) {
	if got := (Allocation{Committed: 500000, Consumed: 100000}).Available(); got != 400000 {
		t.Errorf("Available: got %d, want 400000", got)
	}
	if got := (Allocation{Committed: 1, Consumed: 2}).Available(); got != 0 {
		t.Errorf("Available on invalid pair: got %d, want 0", got)
	}
}

func TestAllocationJSONContract(t *testing.T) {
	data, err := json.Marshal(Allocation{Committed: 500000, Consumed: 100000})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"allocated":500000,"used":100000}` {
		t.Errorf("got %s", data)
	}
}

func TestQuantityHelpers(t *testing.T) {
	if _, err := AddQuantity(MaxQuantity, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("AddQuantity: expected ErrOverflow, got %v", err)
	}
	if v, err := AddQuantity(2, 3); err != nil || v != 5 {
		t.Errorf("AddQuantity(2,3): got %d, %v", v, err)
	}
	if _, err := SubQuantity(1000000, 2000000); !errors.Is(err, ErrExhausted) {
		t.Errorf("SubQuantity: expected ErrExhausted, got %v", err)
	}
	if v, err := SubQuantity(1000000, 500000); err != nil || v != 500000 {
		t.Errorf("SubQuantity: got %d, %v", v, err)
	}
}

func TestPrincipalIsZero(t *testing.T) {
	if !Principal("  ").IsZero() {
		t.Error("expected blank principal to be zero")
	}
	if Principal("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM").IsZero() {
		t.Error("expected address principal to be non-zero")
	}
}

package investment

import (
	"context"

	"github.com/xraph/dyson/types"
)

// Store persists investor balances and the running total. PutInvestment and
// SetTotal are only ever called together inside one transaction.
type Store interface {
	GetInvestment(ctx context.Context, investor types.Principal) (*Investment, error)
	PutInvestment(ctx context.Context, inv *Investment) error
	ListInvestments(ctx context.Context) ([]*Investment, error)

	GetTotalInvestment(ctx context.Context) (uint64, error)
	SetTotalInvestment(ctx context.Context, total uint64) error
}

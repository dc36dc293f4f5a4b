// Package investment models per-investor capital contributions.
package investment

import "github.com/xraph/dyson/types"

// Investment is the contributed capital balance of one investor.
type Investment struct {
	types.Entity
	Investor types.Principal `json:"investor"`
	Amount   uint64          `json:"amount"`
}

// Clone returns a copy of the investment record.
func (i *Investment) Clone() *Investment {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

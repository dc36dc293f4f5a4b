// Package journal models the append-only audit journal. One entry is written
// in the same transaction as every committed mutation.
package journal

import (
	"time"

	"github.com/xraph/dyson/id"
	"github.com/xraph/dyson/types"
)

// Entry describes one committed mutation.
type Entry struct {
	ID        id.EntryID      `json:"id"`
	Sequence  uint64          `json:"sequence"`
	Module    string          `json:"module"`
	Operation string          `json:"operation"`
	Caller    types.Principal `json:"caller"`
	Subject   string          `json:"subject,omitempty"`
	Amount    uint64          `json:"amount,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	At        time.Time       `json:"at"`
}

package journal

import (
	"context"

	"github.com/xraph/dyson/types"
)

// Store appends and lists journal entries.
type Store interface {
	AppendEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)
}

// ListOpts filters and pages journal listings. Entries are returned in
// sequence order.
type ListOpts struct {
	Module string
	Caller types.Principal
	Limit  int
	Offset int
}

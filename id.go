package dyson

import "github.com/xraph/dyson/id"

// ID is the identifier type for journal entries and audit events.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix

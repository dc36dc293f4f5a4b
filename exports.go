package dyson

import "github.com/xraph/dyson/types"

// Re-export common types for convenience so users don't have to import types package.

// Principal is re-exported from types package.
type Principal = types.Principal

// Allocation is re-exported from types package.
type Allocation = types.Allocation

// Entity is re-exported from types package.
type Entity = types.Entity

// MaxQuantity is re-exported from types package.
const MaxQuantity = types.MaxQuantity

// Re-export Entity constructor
var NewEntity = types.NewEntity

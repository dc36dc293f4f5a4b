package types

import "strings"

// Principal is the pre-authenticated identity of a caller, for example a
// wallet address such as "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM".
// Dyson never verifies it; the authentication layer that hands it over does.
type Principal string

// String returns the principal as a plain string.
func (p Principal) String() string { return string(p) }

// IsZero reports whether the principal is empty or whitespace only.
func (p Principal) IsZero() bool { return strings.TrimSpace(string(p)) == "" }

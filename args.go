package dyson

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/types"
)

// args decodes positional call arguments. It accepts native Go values as
// well as the shapes encoding/json produces for them.
type args []any

func (a args) arity(n int) error {
	if len(a) != n {
		return ValidationError{Field: "args", Message: fmt.Sprintf("expected %d arguments, got %d", n, len(a))}
	}
	return nil
}

func (a args) str(i int, field string) (string, error) {
	switch v := a[i].(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", argError(field, "a string", a[i])
	}
}

func (a args) principal(i int, field string) (types.Principal, error) {
	s, err := a.str(i, field)
	if err != nil {
		return "", err
	}
	return types.Principal(s), nil
}

func (a args) boolean(i int, field string) (bool, error) {
	switch v := a[i].(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, argError(field, "a boolean", a[i])
		}
		return b, nil
	default:
		return false, argError(field, "a boolean", a[i])
	}
}

func (a args) uint(i int, field string) (uint64, error) {
	n, ok := toQuantity(a[i])
	if !ok {
		return 0, argError(field, "an unsigned integer", a[i])
	}
	return n, nil
}

func (a args) requirements(i int, field string) ([]construction.Requirement, error) {
	switch v := a[i].(type) {
	case nil:
		return nil, nil
	case []construction.Requirement:
		return v, nil
	case []map[string]any:
		out := make([]construction.Requirement, 0, len(v))
		for j, m := range v {
			r, err := requirementFromMap(m, fmt.Sprintf("%s[%d]", field, j))
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	case []any:
		out := make([]construction.Requirement, 0, len(v))
		for j, item := range v {
			name := fmt.Sprintf("%s[%d]", field, j)
			switch r := item.(type) {
			case construction.Requirement:
				out = append(out, r)
			case map[string]any:
				req, err := requirementFromMap(r, name)
				if err != nil {
					return nil, err
				}
				out = append(out, req)
			default:
				return nil, argError(name, "a {resource, amount} object", item)
			}
		}
		return out, nil
	default:
		return nil, argError(field, "a list of {resource, amount} objects", a[i])
	}
}

func requirementFromMap(m map[string]any, field string) (construction.Requirement, error) {
	resource, ok := m["resource"].(string)
	if !ok {
		return construction.Requirement{}, argError(field+".resource", "a string", m["resource"])
	}
	amount, ok := toQuantity(m["amount"])
	if !ok {
		return construction.Requirement{}, argError(field+".amount", "an unsigned integer", m["amount"])
	}
	return construction.Requirement{Resource: resource, Amount: amount}, nil
}

// toQuantity converts integer-valued inputs to a quantity. Strings may carry
// a leading "u" as in "u1000".
func toQuantity(v any) (uint64, bool) {
	var n uint64
	switch x := v.(type) {
	case uint64:
		n = x
	case uint:
		n = uint64(x)
	case uint32:
		n = uint64(x)
	case int:
		if x < 0 {
			return 0, false
		}
		n = uint64(x)
	case int64:
		if x < 0 {
			return 0, false
		}
		n = uint64(x)
	case int32:
		if x < 0 {
			return 0, false
		}
		n = uint64(x)
	case float64:
		if x < 0 || x != math.Trunc(x) || x >= math.MaxInt64 {
			return 0, false
		}
		n = uint64(x)
	case json.Number:
		u, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		n = u
	case string:
		u, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(x), "u"), 10, 64)
		if err != nil {
			return 0, false
		}
		n = u
	default:
		return 0, false
	}
	return n, n <= types.MaxQuantity
}

func argError(field, want string, got any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf("expected %s, got %T", want, got)}
}

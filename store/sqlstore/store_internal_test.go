package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		numbered bool
		query    string
		expected string
	}{
		{"QuestionMarksKept", false, "SELECT 1 WHERE a = ? AND b = ?", "SELECT 1 WHERE a = ? AND b = ?"},
		{"Numbered", true, "SELECT 1 WHERE a = ? AND b = ?", "SELECT 1 WHERE a = $1 AND b = $2"},
		{"NoPlaceholders", true, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{dialect: Dialect{Name: "test", NumberedPlaceholders: tt.numbered}}
			assert.Equal(t, tt.expected, s.rebind(tt.query))
		})
	}
}

func TestPageClause(t *testing.T) {
	q, args := pageClause("SELECT x FROM t", nil, 0, 0)
	assert.Equal(t, "SELECT x FROM t", q)
	assert.Empty(t, args)

	q, args = pageClause("SELECT x FROM t", []any{"a"}, 5, 10)
	assert.Equal(t, "SELECT x FROM t LIMIT ? OFFSET ?", q)
	assert.Equal(t, []any{"a", 5, 10}, args)

	_, args = pageClause("SELECT x FROM t", nil, 0, 3)
	assert.Len(t, args, 2, "an offset without a limit still emits LIMIT")
}

func TestQuantityBounds(t *testing.T) {
	_, err := quantity(1 << 63)
	assert.Error(t, err)

	v, err := quantity(42)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

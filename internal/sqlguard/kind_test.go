package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementKind_ReadOnly(t *testing.T) {
	for k := KindUnknown; k <= KindOther; k++ {
		want := k == KindSelect || k == KindSetOperation
		assert.Equal(t, want, k.ReadOnly(), k.String())
	}
	assert.False(t, StatementKind(99).ReadOnly())
	assert.Equal(t, "UNKNOWN", StatementKind(99).String())
}

func TestPositionAtRune(t *testing.T) {
	tests := []struct {
		text  string
		index int
		want  Position
	}{
		{"SELECT 1", 0, Position{Line: 1, Column: 1}},
		{"SELECT 1", 7, Position{Line: 1, Column: 8}},
		{"SELECT\n  x", 9, Position{Line: 2, Column: 3}},
		{"é\nx", 2, Position{Line: 2, Column: 1}},
		{"ab", 10, Position{Line: 1, Column: 3}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, *positionAtRune(tt.text, tt.index), tt.text)
	}
}

func TestPositionAtByte(t *testing.T) {
	assert.Equal(t, Position{Line: 2, Column: 1}, *positionAtByte("é\nx", 3))
	assert.Equal(t, Position{Line: 1, Column: 1}, *positionAtByte("abc", -4))
	assert.Equal(t, Position{Line: 1, Column: 4}, *positionAtByte("abc", 40))
}

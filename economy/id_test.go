package economy_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/economy-engine/economy"
)

func TestEncodeBase62(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{9, "9"},
		{10, "A"},
		{35, "Z"},
		{36, "a"},
		{61, "z"},
		{62, "10"},
		{3843, "zz"},
		{3844, "100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, economy.EncodeBase62(tt.n), "n=%d", tt.n)
	}

	// Largest value fits the fixed buffer.
	assert.Len(t, economy.EncodeBase62(^uint64(0)), 11)
}

func TestGenerateID_Deterministic(t *testing.T) {
	const ts = 1741608000

	a := economy.GenerateID(1, 350, "x", ts)
	b := economy.GenerateID(1, 350, "x", ts)
	assert.Equal(t, a, b)
	assert.Equal(t, economy.OperationID("1trbnc1C3"), a)

	assert.True(t, strings.HasPrefix(string(a), economy.EncodeBase62(ts)),
		"id starts with the base-62 timestamp")

	suffix := strings.TrimPrefix(string(a), economy.EncodeBase62(ts))
	assert.NotEmpty(t, suffix)
	assert.LessOrEqual(t, len(suffix), 3, "16-bit digest encodes to at most 3 digits")
}

func TestGenerateID_InputsChangeID(t *testing.T) {
	const ts = 1741608000
	base := economy.GenerateID(1, 350, "x", ts)

	assert.NotEqual(t, base, economy.GenerateID(1, 350, "x", ts+1))
	assert.NotEqual(t, base, economy.GenerateID(2, 350, "x", ts))
	assert.NotEqual(t, base, economy.GenerateID(1, 351, "x", ts))
	assert.NotEqual(t, base, economy.GenerateID(1, 350, "y", ts))
}

func TestGenerateID_SortsByTimestamp(t *testing.T) {
	// Timestamps of equal base-62 width sort lexically by time.
	earlier := economy.GenerateID(1, 350, "x", 1741608000)
	later := economy.GenerateID(1, 350, "x", 1741608100)

	assert.Less(t, string(earlier)[:6], string(later)[:6])
}

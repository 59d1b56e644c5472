package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMillibar(t *testing.T) {
	tests := []struct {
		name        string
		raw, offset int64
		want        int64
	}{
		{name: "atmosphere", raw: 1000, want: 0},
		{name: "full vacuum", raw: 0, want: -1000},
		{name: "with offset", raw: 1002, offset: 2, want: 0},
		{name: "negative offset", raw: 900, offset: -50, want: -50},
		{name: "int32 max", raw: 2147483647, offset: -2147483648, want: 4294966295},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMillibar(tt.raw, tt.offset))
			assert.Equal(t, (tt.raw-tt.offset)-AtmosphericReference, ToMillibar(tt.raw, tt.offset))
		})
	}
}

func TestZeroOffset(t *testing.T) {
	for _, raw := range []int64{0, 998, 1000, 1234, -7} {
		assert.Equal(t, int64(0), ToMillibar(raw, ZeroOffset(raw)), "raw %d", raw)
	}
}

func TestRoundMbar_HalfToEven(t *testing.T) {
	assert.Equal(t, int64(2), roundMbar(2.5))
	assert.Equal(t, int64(4), roundMbar(3.5))
	assert.Equal(t, int64(-2), roundMbar(-2.5))
	assert.Equal(t, int64(3), roundMbar(2.6))
	assert.Equal(t, int64(-1), roundMbar(-0.6))
}

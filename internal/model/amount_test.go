package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatEq(want, got float64) bool {
	const eps = 0.0001
	return math.Abs(want-got) < eps
}

func TestAmount_ToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		pounds int64
		pence  int64
		want   float64
	}{
		{"zero all", 0, 0, 0.0},
		{"pence only #1", 0, 99, 0.99},
		{"pence only #2", 0, 100, 1.0},
		{"pence only #3", 0, 1234, 12.34},
		{"pounds only", 20, 0, 20.0},
		{"both", 18, 50, 18.50},
		{"pence overflow normalized", 1, 2345, 24.45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAmount(tt.pounds, tt.pence)
			assert.True(t, floatEq(tt.want, a.ToFloat64()),
				"want %f, got %f", tt.want, a.ToFloat64())
		})
	}
}

func TestFromFloat(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		wantPence int64
		wantErr   bool
	}{
		{"zero", 0.0, 0, false},
		{"whole pounds", 20.0, 2000, false},
		{"with pence", 18.99, 1899, false},
		{"rounding up", 10.005, 1001, false},
		{"one penny", 0.01, 1, false},
		{"negative", -1.0, 0, true},
		{"overflow", 1e18, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := FromFloat(tt.amount)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPence, a.TotalPence())
		})
	}
}

func TestAmount_String(t *testing.T) {
	tests := []struct {
		pounds int64
		pence  int64
		want   string
	}{
		{0, 0, "0.00"},
		{2, 0, "2.00"},
		{18, 5, "18.05"},
		{0, 99, "0.99"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, NewAmount(tt.pounds, tt.pence).String())
		})
	}
}

func TestAmount_PGNumericRoundTrip(t *testing.T) {
	for _, pence := range []int64{0, 1, 99, 100, 1850, 123456} {
		a := FromPence(pence)
		got, err := FromPGNumeric(a.ToPGNumeric())
		require.NoError(t, err)
		assert.Equal(t, pence, got.TotalPence())
	}
}

func TestFromPence_negativeFloorsAtZero(t *testing.T) {
	assert.Equal(t, int64(0), FromPence(-100).TotalPence())
}

package costs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCost(t *testing.T) {
	tests := []struct {
		name   string
		input  int64
		output int64
		model  string
		want   float64
	}{
		{name: "gpt-4o", input: 1_000_000, output: 1_000_000, model: "gpt-4o", want: 12.5},
		{name: "mini fractional", input: 1234, output: 567, model: "gpt-4o-mini", want: 0.000525},
		{name: "llama", input: 2_000_000, output: 0, model: "llama-3.3-70b", want: 1.7},
		{name: "unknown model is free", input: 5_000_000, output: 5_000_000, model: "mystery", want: 0},
		{name: "no tokens", model: "gpt-4.1", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cost(tt.input, tt.output, tt.model), 1e-9)
		})
	}
}

func TestCostRoundsToSixDecimals(t *testing.T) {
	// 1 input token of llama3.1-8b costs 1e-7 USD.
	assert.Equal(t, 0.0, Cost(1, 0, "llama3.1-8b"))
	assert.Equal(t, 0.000001, Cost(10, 0, "llama3.1-8b"))
}

func TestPriceFor(t *testing.T) {
	p, ok := PriceFor("gpt-4.1-mini")
	assert.True(t, ok)
	assert.Equal(t, ModelPrice{Input: 0.40, Output: 1.60}, p)

	_, ok = PriceFor("claude")
	assert.False(t, ok)
}

// Package costs reports LLM token usage and its estimated cost in USD and BRL.
package costs

import "math"

// ModelPrice is the USD price per one million tokens.
type ModelPrice struct {
	Input  float64
	Output float64
}

var modelPrices = map[string]ModelPrice{
	"llama-3.3-70b": {Input: 0.85, Output: 1.20},
	"gpt-4o":        {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
	"gpt-4.1":       {Input: 2.00, Output: 8.00},
	"gpt-4.1-mini":  {Input: 0.40, Output: 1.60},
	"llama3.1-8b":   {Input: 0.10, Output: 0.10},
}

// PriceFor returns the price of model. Unknown models are free.
func PriceFor(model string) (ModelPrice, bool) {
	p, ok := modelPrices[model]
	return p, ok
}

// Cost estimates the USD cost of a token count, rounded to 6 decimals.
func Cost(inputTokens, outputTokens int64, model string) float64 {
	p := modelPrices[model]
	usd := (float64(inputTokens)*p.Input + float64(outputTokens)*p.Output) / 1_000_000
	return roundTo(usd, 6)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

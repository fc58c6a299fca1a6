// Package cost estimates and computes API spend per request.
package cost

import (
	"github.com/prepforge/prepforge/internal/model"
)

// Rates holds per-model token pricing (per million tokens).
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens computes the cost of a single model call from token counts. Unknown
// models cost zero.
func (c *Calculator) Tokens(provider, modelName string, input, output int) float64 {
	var table map[string]ModelRate
	switch provider {
	case "anthropic":
		table = c.rates.Anthropic
	case "openai":
		table = c.rates.OpenAI
	default:
		return 0
	}

	rate, ok := table[modelName]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// Usage carries the token counts of one model call.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
}

// Cost computes the measured cost of one call including prompt caching:
// cache writes are billed at 1.25x the input rate, reads at 0.1x. Unknown
// providers and models cost zero.
func (c *Calculator) Cost(provider, modelName string, u Usage) float64 {
	var table map[string]ModelRate
	switch provider {
	case "anthropic":
		table = c.rates.Anthropic
	case "openai":
		table = c.rates.OpenAI
	default:
		return 0
	}

	rate, ok := table[modelName]
	if !ok {
		return 0
	}
	return (float64(u.Input)/1e6)*rate.Input +
		(float64(u.Output)/1e6)*rate.Output +
		(float64(u.CacheWrite)/1e6)*rate.Input*1.25 +
		(float64(u.CacheRead)/1e6)*rate.Input*0.1
}

// Per-request estimates reported to clients. These are fixed per mode rather
// than measured, so responses are stable across identical requests.
const (
	estimateFast          = 0.02
	estimateVerified      = 0.04
	estimateComprehensive = 0.08
	estimateExplainSimple = 0.015
	estimateOptimize      = 0.02
)

// Estimate returns the flat per-request cost estimate for an analysis mode.
func Estimate(mode model.Mode) float64 {
	switch mode {
	case model.ModeVerified:
		return estimateVerified
	case model.ModeComprehensive:
		return estimateComprehensive
	default:
		return estimateFast
	}
}

// EstimateExplainSimple returns the flat cost estimate for a simplified
// explanation request.
func EstimateExplainSimple() float64 {
	return estimateExplainSimple
}

// EstimateOptimize returns the flat cost estimate for an optimization request.
func EstimateOptimize() float64 {
	return estimateOptimize
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
		OpenAI: map[string]ModelRate{
			"gpt-4o":      {Input: 2.50, Output: 10.00},
			"gpt-4o-mini": {Input: 0.15, Output: 0.60},
		},
	}
}

package models

const tokensPerMillion = 1_000_000

// Pricing holds per-million-token rates in USD.
type Pricing struct {
	InputPerMillion  float64 `mapstructure:"input_per_million"`
	OutputPerMillion float64 `mapstructure:"output_per_million"`
}

// Cost returns the USD cost of the given token counts.
func (p Pricing) Cost(inputTokens, outputTokens uint64) float64 {
	in := float64(inputTokens) / tokensPerMillion * p.InputPerMillion
	out := float64(outputTokens) / tokensPerMillion * p.OutputPerMillion
	return in + out
}

package models

// Usage holds the token counters reported for a single OCR call.
type Usage struct {
	InputTokens  uint64
	OutputTokens uint64
	TotalTokens  uint64
}

// Extraction is the text recovered from one document.
type Extraction struct {
	Text  string
	Usage Usage
}

// Outcome is the result of one task. Exactly one of Extraction or Failure is set.
type Outcome struct {
	Extraction *Extraction
	Failure    string
}

// Succeeded wraps an extraction as a successful outcome.
func Succeeded(e Extraction) Outcome {
	return Outcome{Extraction: &e}
}

// Failed wraps a formatted error message as a failed outcome.
func Failed(msg string) Outcome {
	return Outcome{Failure: msg}
}

// OK reports whether the outcome carries an extraction.
func (o Outcome) OK() bool {
	return o.Extraction != nil
}

// ResultEntry is one collected task result.
type ResultEntry struct {
	Index    int
	Document Document
	Outcome  Outcome
}

// UsageTotals aggregates usage over all successful entries.
type UsageTotals struct {
	InputTokens  uint64
	OutputTokens uint64
	TotalTokens  uint64
	CostUSD      float64
}

package models

import "time"

// Run is the Firestore record written after each batch.
// It tracks the counts and usage of a single invocation.
type Run struct {
	RunID         string    `firestore:"runId,omitempty"`
	Pattern       string    `firestore:"pattern,omitempty"`
	OutputURI     string    `firestore:"outputUri,omitempty"`
	Model         string    `firestore:"model,omitempty"`
	Status        string    `firestore:"status,omitempty"`
	DocumentCount int       `firestore:"documentCount"`
	Succeeded     int       `firestore:"succeeded"`
	Failed        int       `firestore:"failed"`
	Images        int       `firestore:"images"`
	PDFs          int       `firestore:"pdfs"`
	PDFPages      int       `firestore:"pdfPages"`
	InputTokens   int64     `firestore:"inputTokens"`
	OutputTokens  int64     `firestore:"outputTokens"`
	TotalTokens   int64     `firestore:"totalTokens"`
	CostUSD       float64   `firestore:"costUsd"`
	Failures      []string  `firestore:"failures,omitempty"`
	CreatedAt     time.Time `firestore:"createdAt,omitempty"`
}

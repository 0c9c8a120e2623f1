package gcp

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/geminiocr/internal/models"
)

// OCRModelID is the single model used for every extraction.
const OCRModelID = "gemini-3-flash-preview"

// OCRUserPrompt is sent alongside every document.
const OCRUserPrompt = "Extract all text from this document. " +
	"Maintain the layout using Markdown. " +
	"If there are tables, format them as GitHub-flavored Markdown tables."

// loadDocument reads the document bytes before any remote call is attempted.
func loadDocument(doc models.Document) ([]byte, string, error) {
	mimeType, ok := doc.MIMEType()
	if !ok {
		return nil, "", fmt.Errorf("unsupported file type: %s", doc.Ext)
	}
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", models.ErrNotFound, doc.Path)
		}
		return nil, "", fmt.Errorf("failed to read %s: %w", doc.Path, err)
	}
	slog.Debug("Loaded document.", "name", doc.Name, "sizeMB", fmt.Sprintf("%.2f", float64(len(data))/1024/1024), "mimeType", mimeType)
	return data, mimeType, nil
}

// finishExtraction attaches usage counters to the model text, which is kept verbatim.
func finishExtraction(doc models.Document, text string, usage models.Usage) (*models.Extraction, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: no text extracted from %s", models.ErrRemoteService, doc.Name)
	}
	slog.Debug("Extracted text.",
		"name", doc.Name,
		"words", len(strings.Fields(text)),
		"inputTokens", usage.InputTokens,
		"outputTokens", usage.OutputTokens,
		"totalTokens", usage.TotalTokens,
	)
	return &models.Extraction{Text: text, Usage: usage}, nil
}

func toUint(v int32) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

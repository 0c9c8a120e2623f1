package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/Lllllllleong/geminiocr/internal/models"
)

// RunRecorder stores a record of each finished batch.
type RunRecorder interface {
	Record(ctx context.Context, run models.Run) error
}

// Notifier hands the finished output to a downstream system.
type Notifier interface {
	Trigger(ctx context.Context, payload models.WorkflowPayload) (string, error)
}

// BatchConfig holds the resolved settings for a batch run.
type BatchConfig struct {
	Workers int
	Model   string
	Pricing models.Pricing
}

// BatchFunction holds the dependencies for one discover-extract-write run.
type BatchFunction struct {
	extractor Extractor
	writer    ArtifactWriter
	recorder  RunRecorder
	notifier  Notifier
	console   io.Writer
	config    BatchConfig
}

// BatchOption configures optional collaborators.
type BatchOption func(*BatchFunction)

// WithRunRecorder stores a run record after the output is written.
func WithRunRecorder(r RunRecorder) BatchOption {
	return func(f *BatchFunction) { f.recorder = r }
}

// WithNotifier triggers a downstream hand-off after the output is written.
func WithNotifier(n Notifier) BatchOption {
	return func(f *BatchFunction) { f.notifier = n }
}

// WithConsole sets where progress lines for the user are printed.
func WithConsole(w io.Writer) BatchOption {
	return func(f *BatchFunction) { f.console = w }
}

// NewBatch creates a BatchFunction. The worker count must already be resolved.
func NewBatch(extractor Extractor, writer ArtifactWriter, config BatchConfig, opts ...BatchOption) (*BatchFunction, error) {
	if config.Workers <= 0 {
		return nil, fmt.Errorf("%w: max workers must be positive, got %d", models.ErrInvalidConfig, config.Workers)
	}
	if writer == nil {
		return nil, fmt.Errorf("%w: artifact writer must be provided", models.ErrInvalidConfig)
	}
	f := &BatchFunction{
		extractor: extractor,
		writer:    writer,
		console:   io.Discard,
		config:    config,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Process discovers documents, runs the pipeline and writes the ordered output.
// Any error returned is fatal for the run; per-document failures are in the response.
func (f *BatchFunction) Process(ctx context.Context, req *models.BatchRequest) (*models.BatchResponse, error) {
	logCtx := slog.With("runId", req.RunID, "pattern", req.Pattern)
	logCtx.Info("Starting batch.")

	pipeline, err := NewPipeline(f.extractor, f.config.Workers)
	if err != nil {
		return nil, err
	}

	docs, err := Discover(req.Pattern)
	if err != nil {
		logCtx.Error("Discovery failed", "error", err)
		return nil, err
	}
	inventory := TakeInventory(docs)
	logCtx.Info("Found documents matching pattern.",
		"count", len(docs), "images", inventory.Images, "pdfs", inventory.PDFs, "pdfPages", inventory.PDFPages)

	fmt.Fprintf(f.console, "Found %d documents to process\n", len(docs))
	fmt.Fprintf(f.console, "Processing with %d parallel workers...\n", f.config.Workers)

	pipeline.OnComplete = func(entry models.ResultEntry, completed, total int) {
		if entry.Outcome.OK() {
			fmt.Fprintf(f.console, "  [%d/%d] ✓ %s (%s tokens)\n", completed, total, entry.Document.Name,
				formatTokens(entry.Outcome.Extraction.Usage.TotalTokens))
			return
		}
		fmt.Fprintf(f.console, "  [%d/%d] ✗ %s\n", completed, total, entry.Document.Name)
	}

	result, err := pipeline.Run(ctx, docs)
	if err != nil {
		return nil, err
	}

	usage := Aggregate(result.Successes, f.config.Pricing)
	content := Render(result.Successes, result.Failures)

	if err := f.writer.Write(ctx, req.Output, content); err != nil {
		logCtx.Error("Failed to write output", "error", err, "output", req.Output)
		return nil, err
	}
	logCtx.Info("Output written.", "output", req.Output, "bytes", len(content))

	resp := &models.BatchResponse{
		RunID:     req.RunID,
		OutputURI: req.Output,
		Total:     len(docs),
		Successes: result.Successes,
		Failures:  result.Failures,
		Usage:     usage,
		Inventory: inventory,
	}

	// The output is already persisted; hand-off failures are logged, not fatal.
	if f.recorder != nil {
		if err := f.recorder.Record(ctx, f.runRecord(req, resp)); err != nil {
			logCtx.Warn("Failed to store run record", "error", err)
		} else {
			resp.RunStored = true
		}
	}
	if f.notifier != nil {
		payload := models.WorkflowPayload{
			RunID:     req.RunID,
			OutputURI: req.Output,
			Succeeded: len(resp.Successes),
			Failed:    len(resp.Failures),
		}
		if execution, err := f.notifier.Trigger(ctx, payload); err != nil {
			logCtx.Warn("Failed to trigger workflow", "error", err)
		} else {
			resp.HandedOff = true
			logCtx.Info("Hand-off to workflow complete.", "execution", execution)
		}
	}

	return resp, nil
}

func (f *BatchFunction) runRecord(req *models.BatchRequest, resp *models.BatchResponse) models.Run {
	status := "SUCCEEDED"
	if len(resp.Failures) > 0 {
		status = "PARTIAL"
		if len(resp.Successes) == 0 {
			status = "FAILED"
		}
	}
	return models.Run{
		RunID:         req.RunID,
		Pattern:       req.Pattern,
		OutputURI:     req.Output,
		Model:         f.config.Model,
		Status:        status,
		DocumentCount: resp.Total,
		Succeeded:     len(resp.Successes),
		Failed:        len(resp.Failures),
		Images:        resp.Inventory.Images,
		PDFs:          resp.Inventory.PDFs,
		PDFPages:      resp.Inventory.PDFPages,
		InputTokens:   clampInt64(resp.Usage.InputTokens),
		OutputTokens:  clampInt64(resp.Usage.OutputTokens),
		TotalTokens:   clampInt64(resp.Usage.TotalTokens),
		CostUSD:       resp.Usage.CostUSD,
		Failures:      FailureLines(resp.Failures),
		CreatedAt:     time.Now().UTC(),
	}
}

func clampInt64(n uint64) int64 {
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

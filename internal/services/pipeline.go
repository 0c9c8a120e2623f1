package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Lllllllleong/geminiocr/internal/models"
	"golang.org/x/sync/errgroup"
)

// Extractor runs OCR on a single document. Implementations must be safe for
// concurrent use; one call is made per document and never retried.
type Extractor interface {
	Extract(ctx context.Context, doc models.Document) (*models.Extraction, error)
}

// PipelineResult holds the collected entries, each list ascending by index.
type PipelineResult struct {
	Successes []models.ResultEntry
	Failures  []models.ResultEntry
}

// Pipeline dispatches OCR calls across a bounded worker pool and restores
// discovery order once every task has reported back.
type Pipeline struct {
	extractor Extractor
	workers   int

	// OnComplete, if set, is called from the collecting goroutine after each entry.
	OnComplete func(entry models.ResultEntry, completed, total int)
}

// NewPipeline creates a Pipeline with an explicit worker count.
func NewPipeline(extractor Extractor, workers int) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("%w: extractor must be provided", models.ErrInvalidConfig)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("%w: max workers must be positive, got %d", models.ErrInvalidConfig, workers)
	}
	return &Pipeline{extractor: extractor, workers: workers}, nil
}

// Run processes docs and returns one entry per document. Per-document errors are
// reported as failures; the only error returned is a configuration error.
// Cancelling ctx stops dispatch; undispatched documents are reported as failures.
func (p *Pipeline) Run(ctx context.Context, docs []models.Document) (*PipelineResult, error) {
	if p.workers <= 0 {
		return nil, fmt.Errorf("%w: max workers must be positive, got %d", models.ErrInvalidConfig, p.workers)
	}

	tasks := make([]models.Task, len(docs))
	for i, doc := range docs {
		tasks[i] = models.Task{Index: i, Document: doc}
	}

	workers := min(p.workers, max(len(tasks), 1))
	logCtx := slog.With("tasks", len(tasks), "workers", workers)
	logCtx.Info("Starting pipeline.")

	completed := make(chan models.ResultEntry, len(tasks))
	go func() {
		var eg errgroup.Group
		eg.SetLimit(workers)
		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				completed <- failureEntry(task, fmt.Errorf("not dispatched: %w", err))
				continue
			}
			eg.Go(func() error {
				completed <- p.execute(ctx, task)
				return nil
			})
			logCtx.Debug("Submitted task.", "task", task.Index+1, "name", task.Document.Name)
		}
		_ = eg.Wait() // errors are carried in the entries
		close(completed)
	}()

	result := &PipelineResult{}
	count := 0
	for entry := range completed {
		count++
		if entry.Outcome.OK() {
			result.Successes = append(result.Successes, entry)
			logCtx.Info("Completed document.",
				"progress", fmt.Sprintf("%d/%d", entry.Index+1, len(tasks)),
				"name", entry.Document.Name,
				"tokens", entry.Outcome.Extraction.Usage.TotalTokens,
			)
		} else {
			result.Failures = append(result.Failures, entry)
			logCtx.Error("Failed to process document.", "name", entry.Document.Name, "error", entry.Outcome.Failure)
		}
		if p.OnComplete != nil {
			p.OnComplete(entry, count, len(tasks))
		}
	}

	byIndex := func(a, b models.ResultEntry) int { return a.Index - b.Index }
	slices.SortStableFunc(result.Successes, byIndex)
	slices.SortStableFunc(result.Failures, byIndex)

	logCtx.Info("Pipeline drained.", "succeeded", len(result.Successes), "failed", len(result.Failures))
	return result, nil
}

// execute runs one task and always yields an entry; errors and panics become failures.
func (p *Pipeline) execute(ctx context.Context, task models.Task) (entry models.ResultEntry) {
	defer func() {
		if r := recover(); r != nil {
			entry = failureEntry(task, fmt.Errorf("panic: %v", r))
		}
	}()

	extraction, err := p.extractor.Extract(ctx, task.Document)
	if err != nil {
		return failureEntry(task, err)
	}
	if extraction == nil {
		return failureEntry(task, fmt.Errorf("%w: no result returned", models.ErrRemoteService))
	}
	return models.ResultEntry{
		Index:    task.Index,
		Document: task.Document,
		Outcome:  models.Succeeded(*extraction),
	}
}

func failureEntry(task models.Task, err error) models.ResultEntry {
	return models.ResultEntry{
		Index:    task.Index,
		Document: task.Document,
		Outcome:  models.Failed(fmt.Sprintf("Failed to process %s: %v", task.Document.Name, err)),
	}
}

package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/geminiocr/internal/models"
)

type fakeRecorder struct {
	runs []models.Run
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, run models.Run) error {
	r.runs = append(r.runs, run)
	return r.err
}

type fakeNotifier struct {
	payloads []models.WorkflowPayload
	err      error
}

func (n *fakeNotifier) Trigger(_ context.Context, payload models.WorkflowPayload) (string, error) {
	n.payloads = append(n.payloads, payload)
	if n.err != nil {
		return "", n.err
	}
	return "executions/123", nil
}

type memoryWriter struct {
	files map[string]string
	err   error
}

func (w *memoryWriter) Write(_ context.Context, dest string, content []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.files == nil {
		w.files = make(map[string]string)
	}
	w.files[dest] = string(content)
	return nil
}

func scanDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestNewBatch_InvalidConfig(t *testing.T) {
	if _, err := NewBatch(&fakeExtractor{}, &memoryWriter{}, BatchConfig{Workers: 0}); !errors.Is(err, models.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for zero workers, got %v", err)
	}
	if _, err := NewBatch(&fakeExtractor{}, nil, BatchConfig{Workers: 2}); !errors.Is(err, models.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil writer, got %v", err)
	}
}

func TestBatchProcess(t *testing.T) {
	dir := scanDir(t, "page10.png", "page2.png", "page1.png", "notes.txt")
	writeTestPDF(t, filepath.Join(dir, "page3.pdf"), 4)
	ext := &fakeExtractor{fail: map[string]bool{"page2.png": true}}
	writer := &memoryWriter{}
	recorder := &fakeRecorder{}
	notifier := &fakeNotifier{}
	var console bytes.Buffer

	batch, err := NewBatch(ext, writer, BatchConfig{Workers: 3, Model: "test-model", Pricing: defaultPricing},
		WithRunRecorder(recorder), WithNotifier(notifier), WithConsole(&console))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := batch.Process(context.Background(), &models.BatchRequest{
		RunID:   "run-1",
		Pattern: filepath.Join(dir, "*"),
		Output:  "out.md",
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if resp.Total != 4 || len(resp.Successes) != 3 || len(resp.Failures) != 1 {
		t.Fatalf("unexpected counts: total=%d successes=%d failures=%d", resp.Total, len(resp.Successes), len(resp.Failures))
	}

	want := "<!-- Source: page1.png -->\n\ntext of page1.png" +
		"\n\n---\n\n" +
		"<!-- Source: page3.pdf -->\n\ntext of page3.pdf" +
		"\n\n---\n\n" +
		"<!-- Source: page10.png -->\n\ntext of page10.png" +
		"\n\n---\n\n" +
		"## Failed Documents\n\n" +
		"[ERROR: Failed to process page2.png: OCR extraction failed: quota exceeded]\n\n"
	if diff := cmp.Diff(want, writer.files["out.md"]); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	if resp.Usage.InputTokens != 300 || resp.Usage.OutputTokens != 30 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
	if diff := cmp.Diff(models.Inventory{Images: 3, PDFs: 1, PDFPages: 4}, resp.Inventory); diff != "" {
		t.Errorf("inventory mismatch (-want +got):\n%s", diff)
	}

	for _, line := range []string{
		"Found 4 documents to process",
		"Processing with 3 parallel workers...",
		"] ✓ page3.pdf (110 tokens)",
		"] ✗ page2.png",
		"[4/4] ",
	} {
		if !strings.Contains(console.String(), line) {
			t.Errorf("console missing %q:\n%s", line, console.String())
		}
	}

	if !resp.RunStored || len(recorder.runs) != 1 {
		t.Fatalf("expected one stored run, got %d", len(recorder.runs))
	}
	run := recorder.runs[0]
	if run.Status != "PARTIAL" || run.Model != "test-model" || run.DocumentCount != 4 || run.Failed != 1 {
		t.Errorf("unexpected run record: %+v", run)
	}
	if run.Images != 3 || run.PDFs != 1 || run.PDFPages != 4 {
		t.Errorf("run record is missing the inventory: %+v", run)
	}

	if !resp.HandedOff {
		t.Error("expected hand-off")
	}
	wantPayload := []models.WorkflowPayload{{RunID: "run-1", OutputURI: "out.md", Succeeded: 3, Failed: 1}}
	if diff := cmp.Diff(wantPayload, notifier.payloads); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchProcess_DiscoveryErrors(t *testing.T) {
	dir := scanDir(t, "readme.txt")
	tests := []struct {
		name    string
		pattern string
		wantErr error
	}{
		{name: "no match", pattern: filepath.Join(dir, "*.png"), wantErr: models.ErrNoMatch},
		{name: "unsupported only", pattern: filepath.Join(dir, "*"), wantErr: models.ErrNoSupportedDocuments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &fakeExtractor{}
			writer := &memoryWriter{}
			batch, err := NewBatch(ext, writer, BatchConfig{Workers: 2, Pricing: defaultPricing})
			if err != nil {
				t.Fatal(err)
			}
			_, err = batch.Process(context.Background(), &models.BatchRequest{Pattern: tt.pattern, Output: "out.md"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if ext.calls.Load() != 0 {
				t.Errorf("expected no OCR calls, got %d", ext.calls.Load())
			}
			if len(writer.files) != 0 {
				t.Errorf("expected no output written, got %v", writer.files)
			}
		})
	}
}

func TestBatchProcess_WriteFailureIsFatal(t *testing.T) {
	dir := scanDir(t, "a.png")
	writeErr := errors.New("disk full")
	recorder := &fakeRecorder{}
	batch, err := NewBatch(&fakeExtractor{}, &memoryWriter{err: writeErr}, BatchConfig{Workers: 1, Pricing: defaultPricing},
		WithRunRecorder(recorder))
	if err != nil {
		t.Fatal(err)
	}
	_, err = batch.Process(context.Background(), &models.BatchRequest{Pattern: filepath.Join(dir, "*"), Output: "out.md"})
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
	if len(recorder.runs) != 0 {
		t.Error("run must not be recorded when the output was not written")
	}
}

func TestBatchProcess_HandOffFailuresAreNotFatal(t *testing.T) {
	dir := scanDir(t, "a.png", "b.png")
	recorder := &fakeRecorder{err: errors.New("firestore down")}
	notifier := &fakeNotifier{err: errors.New("workflow missing")}
	batch, err := NewBatch(&fakeExtractor{fail: map[string]bool{"a.png": true, "b.png": true}}, &memoryWriter{},
		BatchConfig{Workers: 2, Pricing: defaultPricing}, WithRunRecorder(recorder), WithNotifier(notifier))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := batch.Process(context.Background(), &models.BatchRequest{Pattern: filepath.Join(dir, "*"), Output: "out.md"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.RunStored || resp.HandedOff {
		t.Errorf("expected failed hand-offs to be reported: stored=%v handedOff=%v", resp.RunStored, resp.HandedOff)
	}
	if got := recorder.runs[0].Status; got != "FAILED" {
		t.Errorf("expected FAILED status, got %s", got)
	}
}

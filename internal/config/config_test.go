package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/Lllllllleong/geminiocr/internal/gcp"
	"github.com/Lllllllleong/geminiocr/internal/models"
)

// isolate clears the environment variables Load reads and moves the test
// somewhere without a config file.
func isolate(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_OCR_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY",
		"GEMINI_OCR_PROJECT", "GOOGLE_CLOUD_PROJECT",
		"GEMINI_OCR_LOCATION", "GOOGLE_CLOUD_LOCATION",
		"GEMINI_OCR_MODEL", "GEMINI_OCR_MAX_WORKERS", "GEMINI_OCR_USE_VERTEX",
		"GOOGLE_GENAI_USE_VERTEXAI",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("max-workers", 0, "")
	fs.String("api-key", "", "")
	fs.String("model", "", "")
	fs.Bool("use-vertex", false, "")
	fs.String("log-format", "text", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != gcp.OCRModelID {
		t.Errorf("expected default model %s, got %s", gcp.OCRModelID, cfg.Model)
	}
	if diff := cmp.Diff(models.Pricing{InputPerMillion: 0.50, OutputPerMillion: 3.00}, cfg.Pricing); diff != "" {
		t.Errorf("pricing mismatch (-want +got):\n%s", diff)
	}
	if cfg.MaxWorkers != nil {
		t.Errorf("expected no explicit worker count, got %d", *cfg.MaxWorkers)
	}
	if cfg.UseVertex {
		t.Error("expected API key backend by default")
	}
	if cfg.Workflow.Location != "us-central1" {
		t.Errorf("unexpected workflow location %q", cfg.Workflow.Location)
	}
}

func TestLoad_APIKeyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "gemini only", env: map[string]string{"GEMINI_API_KEY": "gem"}, want: "gem"},
		{name: "google wins over gemini", env: map[string]string{"GOOGLE_API_KEY": "goo", "GEMINI_API_KEY": "gem"}, want: "goo"},
		{name: "prefixed wins", env: map[string]string{"GEMINI_OCR_API_KEY": "own", "GOOGLE_API_KEY": "goo"}, want: "own"},
		{name: "none", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load("", nil)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.APIKey != tt.want {
				t.Errorf("APIKey = %q, want %q", cfg.APIKey, tt.want)
			}
		})
	}
}

func TestLoad_UseVertex(t *testing.T) {
	for _, value := range []string{"true", "1", "YES", " yes "} {
		t.Run(value, func(t *testing.T) {
			isolate(t)
			t.Setenv("GOOGLE_GENAI_USE_VERTEXAI", value)
			t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")
			t.Setenv("GOOGLE_CLOUD_LOCATION", "europe-west4")
			cfg, err := Load("", nil)
			if err != nil {
				t.Fatal(err)
			}
			if !cfg.UseVertex || cfg.Project != "my-project" || cfg.Location != "europe-west4" {
				t.Errorf("unexpected vertex settings: %+v", cfg)
			}
		})
	}

	t.Run("false", func(t *testing.T) {
		isolate(t)
		t.Setenv("GOOGLE_GENAI_USE_VERTEXAI", "false")
		cfg, err := Load("", nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.UseVertex {
			t.Error("expected vertex to be disabled")
		}
	})
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "from-env")
	t.Setenv("GEMINI_OCR_MAX_WORKERS", "2")

	fs := testFlags()
	if err := fs.Parse([]string{"--api-key", "from-flag", "--max-workers", "9", "--use-vertex"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("", fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "from-flag" {
		t.Errorf("APIKey = %q, want from-flag", cfg.APIKey)
	}
	if cfg.MaxWorkers == nil || *cfg.MaxWorkers != 9 {
		t.Errorf("expected 9 workers, got %v", cfg.MaxWorkers)
	}
	if !cfg.UseVertex {
		t.Error("expected --use-vertex to select vertex")
	}
}

func TestLoad_UnsetFlagsKeepDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("", testFlags())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxWorkers != nil {
		t.Errorf("expected no explicit worker count, got %d", *cfg.MaxWorkers)
	}
	if cfg.Model != gcp.OCRModelID {
		t.Errorf("expected default model, got %q", cfg.Model)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "ocr.yaml")
	content := `
api_key: file-key
max_workers: 6
no_clobber: true
pricing:
  input_per_million: 1.25
  output_per_million: 5
firestore:
  collection: ocr-runs
workflow:
  id: post-ocr
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "file-key" || !cfg.NoClobber {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if cfg.MaxWorkers == nil || *cfg.MaxWorkers != 6 {
		t.Errorf("expected 6 workers, got %v", cfg.MaxWorkers)
	}
	if diff := cmp.Diff(models.Pricing{InputPerMillion: 1.25, OutputPerMillion: 5}, cfg.Pricing); diff != "" {
		t.Errorf("pricing mismatch (-want +got):\n%s", diff)
	}
	if cfg.Firestore.Collection != "ocr-runs" || cfg.Workflow.ID != "post-ocr" || cfg.Workflow.Location != "us-central1" {
		t.Errorf("unexpected hand-off settings: %+v %+v", cfg.Firestore, cfg.Workflow)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("zero workers", func(t *testing.T) {
		isolate(t)
		fs := testFlags()
		if err := fs.Parse([]string{"--max-workers", "0"}); err != nil {
			t.Fatal(err)
		}
		if _, err := Load("", fs); !errors.Is(err, models.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("bad log format", func(t *testing.T) {
		isolate(t)
		fs := testFlags()
		if err := fs.Parse([]string{"--log-format", "xml"}); err != nil {
			t.Fatal(err)
		}
		if _, err := Load("", fs); !errors.Is(err, models.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		isolate(t)
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); !errors.Is(err, models.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestResolveWorkers(t *testing.T) {
	explicit := 3
	if got := (&Config{MaxWorkers: &explicit}).ResolveWorkers(); got != 3 {
		t.Errorf("ResolveWorkers() = %d, want 3", got)
	}
	if got := (&Config{}).ResolveWorkers(); got < MinDefaultWorkers {
		t.Errorf("ResolveWorkers() = %d, want at least %d", got, MinDefaultWorkers)
	}
}

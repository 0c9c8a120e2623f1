package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/geminiocr/internal/config"
	"github.com/Lllllllleong/geminiocr/internal/gcp"
	"github.com/Lllllllleong/geminiocr/internal/logging"
	"github.com/Lllllllleong/geminiocr/internal/models"
	"github.com/Lllllllleong/geminiocr/internal/services"
	"github.com/Lllllllleong/geminiocr/version"
)

var (
	cfgFile   string
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "gemini-ocr <glob-pattern> <output-file>",
	Short: "Extract text from documents with Gemini into one markdown file",
	Long: `Extract text from images (PNG, JPG, JPEG) and PDFs with Gemini and
append the results, in natural sort order, to a single markdown document.

Documents are processed in parallel; the output always follows the
discovery order. Failed documents are listed at the end of the output.

The output may be a local path or a gs://bucket/object URI.

Examples:
  gemini-ocr "*.png" output.md
  gemini-ocr "docs/*.pdf" chapter-3.md --max-workers=8
  gemini-ocr "scans/**/*.jpg" notes.md -vv
  gemini-ocr "*.pdf" output.md --use-vertex --project=my-project --location=us-central1

Output format:
  <!-- Source: filename.png --> before each document's text,
  with horizontal rules (---) between documents.`,
	Args:          cobra.ExactArgs(2),
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBatch,
}

func init() {
	flags := rootCmd.Flags()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", gcp.GetEnv("GEMINI_OCR_CONFIG", ""), "config file (default: ./gemini-ocr.yaml or ~/.gemini-ocr/gemini-ocr.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "verbose output (-v INFO, -vv DEBUG, -vvv TRACE)")

	flags.Int("max-workers", 0, "maximum number of parallel OCR requests (default: number of CPU cores, at least 4)")
	flags.String("api-key", "", "Gemini API key (default: GOOGLE_API_KEY or GEMINI_API_KEY)")
	flags.Bool("use-vertex", false, "use Vertex AI instead of the Gemini Developer API")
	flags.String("project", "", "Google Cloud project ID (required for Vertex AI)")
	flags.String("location", "", "Google Cloud location (required for Vertex AI)")
	flags.String("credentials-file", "", "service account key file for Vertex AI")
	flags.String("model", "", "model identifier (default: "+gcp.OCRModelID+")")
	flags.String("log-format", "text", "log format: text or json")
	flags.Bool("no-clobber", false, "fail instead of overwriting an existing output")
	flags.String("firestore-collection", "", "store a run record in this Firestore collection")
	flags.String("workflow-id", "", "trigger this Cloud Workflow after the output is written")
	flags.String("workflow-location", "", "location of the workflow (default: us-central1)")

	rootCmd.AddCommand(versionCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logging.Init(logging.LevelForVerbosity(verbosity), cfg.LogFormat, cmd.ErrOrStderr())
	log := logging.New("cli")

	extractor, err := newExtractor(ctx, cfg)
	if err != nil {
		return err
	}
	defer extractor.Close()

	writer, closeWriter, err := newArtifactWriter(ctx, cfg, args[1])
	if err != nil {
		return err
	}
	defer closeWriter()

	opts := []services.BatchOption{services.WithConsole(cmd.OutOrStdout())}
	if cfg.Firestore.Collection != "" {
		recorder, err := gcp.NewRunRecorder(ctx, cfg.Project, cfg.Firestore.Collection)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
		}
		defer recorder.Close()
		opts = append(opts, services.WithRunRecorder(recorder))
	}
	if cfg.Workflow.ID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, cfg.Project, cfg.Workflow.Location, cfg.Workflow.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
		}
		defer trigger.Close()
		opts = append(opts, services.WithNotifier(trigger))
	}

	batch, err := services.NewBatch(extractor, writer, services.BatchConfig{
		Workers: cfg.ResolveWorkers(),
		Model:   extractor.Model(),
		Pricing: cfg.Pricing,
	}, opts...)
	if err != nil {
		return err
	}

	req := &models.BatchRequest{
		RunID:   uuid.New().String(),
		Pattern: args[0],
		Output:  args[1],
	}
	log.Debug("Starting run.", "runId", req.RunID, "vertex", cfg.UseVertex)

	resp, err := batch.Process(ctx, req)
	if err != nil {
		return err
	}
	services.WriteSummary(cmd.OutOrStdout(), resp, cfg.Pricing)
	return nil
}

// closableExtractor is an extractor that owns a client connection.
type closableExtractor interface {
	services.Extractor
	Model() string
	Close() error
}

func newExtractor(ctx context.Context, cfg *config.Config) (closableExtractor, error) {
	if cfg.UseVertex {
		return gcp.NewVertexClient(ctx, cfg.Project, cfg.Location, cfg.Model, cfg.CredentialsFile)
	}
	return gcp.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
}

func newArtifactWriter(ctx context.Context, cfg *config.Config, dest string) (services.ArtifactWriter, func(), error) {
	local := services.LocalWriter{NoClobber: cfg.NoClobber}
	if !gcp.IsGCSURI(dest) {
		return local, func() {}, nil
	}
	if _, _, err := gcp.ParseGCSURI(dest); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidConfig, err)
	}
	remote, err := gcp.NewGCSWriter(ctx, cfg.NoClobber)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	writer := services.RoutingWriter{Local: local, Remote: remote, IsRemote: gcp.IsGCSURI}
	return writer, func() { _ = remote.Close() }, nil
}

// reportError prints a fatal error with a remediation hint.
func reportError(w io.Writer, err error) {
	switch {
	case errors.Is(err, models.ErrAuthentication):
		fmt.Fprintf(w, "✗ Authentication Error: %v\n", err)
		fmt.Fprintln(w, "\nGet your API key from: https://aistudio.google.com/app/apikey")
	case errors.Is(err, models.ErrRemoteService):
		fmt.Fprintf(w, "✗ Error: %v\n", err)
		fmt.Fprintln(w, "\nTroubleshooting:")
		fmt.Fprintln(w, "  - Verify your API key is valid")
		fmt.Fprintln(w, "  - Check your API quota at https://aistudio.google.com/app/apikey")
		fmt.Fprintln(w, "  - Ensure you have network connectivity")
	default:
		fmt.Fprintf(w, "✗ Error: %v\n", err)
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/geminiocr/internal/gcp"
	"github.com/Lllllllleong/geminiocr/internal/models"
)

// MinDefaultWorkers is the floor applied when the worker count is not given.
const MinDefaultWorkers = 4

// Config is the resolved configuration for one run.
type Config struct {
	APIKey          string          `mapstructure:"api_key"`
	UseVertex       bool            `mapstructure:"-"`
	Project         string          `mapstructure:"project"`
	Location        string          `mapstructure:"location"`
	CredentialsFile string          `mapstructure:"credentials_file"`
	Model           string          `mapstructure:"model"`
	MaxWorkers      *int            `mapstructure:"-"` // nil when not specified
	Pricing         models.Pricing  `mapstructure:"pricing"`
	LogFormat       string          `mapstructure:"log_format"`
	NoClobber       bool            `mapstructure:"no_clobber"`
	Firestore       FirestoreConfig `mapstructure:"firestore"`
	Workflow        WorkflowConfig  `mapstructure:"workflow"`
}

// FirestoreConfig enables the run ledger when Collection is set.
type FirestoreConfig struct {
	Collection string `mapstructure:"collection"`
}

// WorkflowConfig enables the post-run hand-off when ID is set.
type WorkflowConfig struct {
	ID       string `mapstructure:"id"`
	Location string `mapstructure:"location"`
}

// flagKeys maps config keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"api_key":              "api-key",
	"project":              "project",
	"location":             "location",
	"credentials_file":     "credentials-file",
	"model":                "model",
	"max_workers":          "max-workers",
	"log_format":           "log-format",
	"no_clobber":           "no-clobber",
	"use_vertex":           "use-vertex",
	"firestore.collection": "firestore-collection",
	"workflow.id":          "workflow-id",
	"workflow.location":    "workflow-location",
}

// Load reads defaults, an optional config file, environment variables and flags,
// in increasing order of precedence. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GEMINI_OCR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Google's own variables, in priority order after the prefixed one.
	_ = v.BindEnv("api_key", "GEMINI_OCR_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("project", "GEMINI_OCR_PROJECT", "GOOGLE_CLOUD_PROJECT")
	_ = v.BindEnv("location", "GEMINI_OCR_LOCATION", "GOOGLE_CLOUD_LOCATION")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("gemini-ocr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gemini-ocr")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: error reading config file: %v", models.ErrInvalidConfig, err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", models.ErrInvalidConfig, err)
	}
	cfg.UseVertex = v.GetBool("use_vertex") || truthy(os.Getenv("GOOGLE_GENAI_USE_VERTEXAI"))
	if v.IsSet("max_workers") {
		n := v.GetInt("max_workers")
		cfg.MaxWorkers = &n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", gcp.OCRModelID)
	v.SetDefault("pricing.input_per_million", 0.50)
	v.SetDefault("pricing.output_per_million", 3.00)
	v.SetDefault("log_format", "text")
	v.SetDefault("workflow.location", "us-central1")
}

// Validate rejects settings that would make the run meaningless.
func (c *Config) Validate() error {
	if c.MaxWorkers != nil && *c.MaxWorkers <= 0 {
		return fmt.Errorf("%w: max workers must be positive, got %d", models.ErrInvalidConfig, *c.MaxWorkers)
	}
	if c.Pricing.InputPerMillion < 0 || c.Pricing.OutputPerMillion < 0 {
		return fmt.Errorf("%w: pricing rates must not be negative", models.ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format must be text or json, got %q", models.ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// ResolveWorkers returns the explicit worker count, or the host parallelism
// with a floor of MinDefaultWorkers.
func (c *Config) ResolveWorkers() int {
	if c.MaxWorkers != nil {
		return *c.MaxWorkers
	}
	return max(runtime.NumCPU(), MinDefaultWorkers)
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

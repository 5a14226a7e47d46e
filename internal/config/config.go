package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/seanblong/pdfchat/internal/chunker"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	Provider         string               `yaml:"provider"`
	APIKey           string               `yaml:"providerApiKey" envconfig:"PROVIDER_API_KEY"`
	Model            string               `yaml:"providerModel" envconfig:"PROVIDER_MODEL"`
	ProjectID        string               `yaml:"providerProjectID" envconfig:"PROVIDER_PROJECT_ID"`
	Location         string               `yaml:"providerLocation" envconfig:"PROVIDER_LOCATION"`
	BaseURL          string               `yaml:"providerBaseURL" envconfig:"PROVIDER_BASE_URL"`
	LogLevel         string               `yaml:"logLevel" split_words:"true"`
	Port             int                  `yaml:"port" split_words:"true"`
	ChunkSize        int                  `yaml:"chunkSize" split_words:"true"`
	ChunkOverlap     int                  `yaml:"chunkOverlap" split_words:"true"`
	MaxContextChunks int                  `yaml:"maxContextChunks" split_words:"true"`
	QuestionCount    int                  `yaml:"questionCount" split_words:"true"`
	MaxUploadMB      int                  `yaml:"maxUploadMB" envconfig:"MAX_UPLOAD_MB"`
	SettingsFile     string               `yaml:"settingsFile" split_words:"true"`
	Indexer          IndexerSpecification `yaml:"indexer"`

	flags *pflag.FlagSet `ignored:"true"`
}

type IndexerSpecification struct {
	Root    string `yaml:"root"`
	Output  string `yaml:"output"`
	Workers int    `yaml:"workers"`
}

const envPrefix = "PDFCHAT"

const (
	MinQuestionCount = 1
	MaxQuestionCount = 20
)

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// ChunkerConfig returns the chunking settings.
func (s Specification) ChunkerConfig() chunker.Config {
	return chunker.Config{MaxChunkSize: s.ChunkSize, Overlap: s.ChunkOverlap}
}

// MaxUploadBytes returns the upload limit in bytes.
func (s Specification) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// Load => defaults < YAML < env < flags.
// configPath may be ""; if so we auto-discover. args are the command line
// arguments without the program name.
func Load(configPath string, fs *pflag.FlagSet, args []string) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg, args)

	// config file
	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/pdfchat.yaml",
				"config/config.yaml",
				"./pdfchat.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	if err := fs.Parse(args); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return Specification{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (s Specification) Validate() error {
	if err := s.ChunkerConfig().Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if s.QuestionCount < MinQuestionCount || s.QuestionCount > MaxQuestionCount {
		return fmt.Errorf("question count must be between %d and %d, got %d", MinQuestionCount, MaxQuestionCount, s.QuestionCount)
	}
	if s.MaxContextChunks <= 0 {
		return fmt.Errorf("max context chunks must be positive, got %d", s.MaxContextChunks)
	}
	if s.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", s.MaxUploadMB)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	return nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification, args []string) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range args {
		if a == "--config" {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("provider", c.Provider, "Provider (gemini, vertexai, openai, stub)")
	fs.String("provider-api-key", c.APIKey, "Default provider API key when a request carries none")
	fs.String("provider-model", c.Model, "Default generation model")
	fs.String("provider-project-id", c.ProjectID, "Provider project ID")
	fs.String("provider-location", c.Location, "Provider location/region")
	fs.String("provider-base-url", c.BaseURL, "Base URL for OpenAI-compatible providers")

	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "API server port")

	fs.Int("chunk-size", c.ChunkSize, "Maximum chunk size in characters")
	fs.Int("chunk-overlap", c.ChunkOverlap, "Overlap between consecutive chunks in characters")
	fs.Int("max-context-chunks", c.MaxContextChunks, "Chunks passed to the model as chat context")
	fs.Int("question-count", c.QuestionCount, "Default number of generated questions (1-20)")
	fs.Int("max-upload-mb", c.MaxUploadMB, "Maximum PDF upload size in megabytes")
	fs.String("settings-file", c.SettingsFile, "YAML file for saved settings; empty keeps them in memory")

	fs.String("indexer-root", c.Indexer.Root, "Directory scanned for PDFs")
	fs.String("indexer-output", c.Indexer.Output, "Directory manifests are written to")
	fs.Int("indexer-workers", c.Indexer.Workers, "Number of extraction workers (0 = auto)")

	// Used later for usage/help
	// create a shallow copy of fs (so Usage can be called safely without mutating caller)
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("provider", &c.Provider)
	setStr("provider-api-key", &c.APIKey)
	setStr("provider-model", &c.Model)
	setStr("provider-project-id", &c.ProjectID)
	setStr("provider-location", &c.Location)
	setStr("provider-base-url", &c.BaseURL)

	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)

	setInt("chunk-size", &c.ChunkSize)
	setInt("chunk-overlap", &c.ChunkOverlap)
	setInt("max-context-chunks", &c.MaxContextChunks)
	setInt("question-count", &c.QuestionCount)
	setInt("max-upload-mb", &c.MaxUploadMB)
	setStr("settings-file", &c.SettingsFile)

	setStr("indexer-root", &c.Indexer.Root)
	setStr("indexer-output", &c.Indexer.Output)
	setInt("indexer-workers", &c.Indexer.Workers)
}

func setDefaults(c *Specification) {
	c.LogLevel = "info"
	c.Provider = "gemini"
	c.Model = "gemini-1.5-flash"
	c.Port = 8080
	c.ChunkSize = chunker.DefaultMaxChunkSize
	c.ChunkOverlap = chunker.DefaultOverlap
	c.MaxContextChunks = 5
	c.QuestionCount = 10
	c.MaxUploadMB = 25
	c.Indexer.Root = "."
	c.Indexer.Output = "manifests"
}

package types

import "time"

// HTTPConfig holds shared HTTP settings used by collaborators that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-reconciler/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond caps the request rate per host. Zero disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// CatalogueConfig holds settings for the proceedings catalogue client.
type CatalogueConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the catalogue root (default http://ceurspt.wikidata.dbis.rwth-aachen.de).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
}

// LookupConfig holds settings for the authoritative bibliographic lookup.
type LookupConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the DBLP root (default https://dblp.org).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// MaxHits bounds the number of hits requested per query (default 10).
	MaxHits int `json:"max_hits" yaml:"max_hits" mapstructure:"max_hits"`

	// CacheTTL is how long a query result is reused (default 1h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// LLMProvider selects the LLM extractor backend.
type LLMProvider string

const (
	ProviderNone   LLMProvider = "none"
	ProviderOpenAI LLMProvider = "openai"
	ProviderClaude LLMProvider = "claude"
)

// ConverterBackend selects the PDF-to-text tool used by the LLM extractor.
type ConverterBackend string

const (
	ConverterDocconv    ConverterBackend = "docconv"
	ConverterMarkitdown ConverterBackend = "markitdown"
)

// LLMConfig holds settings for the LLM extractor.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects openai, claude, or none (disables the source).
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Converter selects the PDF-to-text backend.
	Converter ConverterBackend `json:"converter" yaml:"converter" mapstructure:"converter"`
}

// GraphConfig holds the property-graph store connection.
type GraphConfig struct {
	// URI is the Bolt URI (e.g. "bolt://localhost:7687"). Empty disables projection.
	URI string `json:"uri" yaml:"uri" mapstructure:"uri"`

	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	Database string `json:"database,omitempty" yaml:"database,omitempty" mapstructure:"database"`

	// Timeout bounds connectivity checks and each paper's write transaction.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ReviewConfig holds settings for the review audit store.
type ReviewConfig struct {
	// DBPath is the SQLite database path. Empty disables recording.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// PipelineConfig holds batch-run settings.
type PipelineConfig struct {
	// Workers is the number of papers resolved concurrently (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// SourceTimeout bounds each collaborator call for one paper (default 60s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout" mapstructure:"source_timeout"`

	// Project enables graph projection of each assembled paper.
	Project bool `json:"project" yaml:"project" mapstructure:"project"`
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups all settings.
type Config struct {
	LogMode   string          `json:"log_mode" yaml:"log_mode" mapstructure:"log_mode"`
	Catalogue CatalogueConfig `json:"catalogue" yaml:"catalogue" mapstructure:"catalogue"`
	Lookup    LookupConfig    `json:"lookup" yaml:"lookup" mapstructure:"lookup"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Graph     GraphConfig     `json:"graph" yaml:"graph" mapstructure:"graph"`
	Review    ReviewConfig    `json:"review" yaml:"review" mapstructure:"review"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogMode: "dev",
		Catalogue: CatalogueConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: "paper-reconciler/0.1", RequestsPerSecond: 4},
			BaseURL:    "http://ceurspt.wikidata.dbis.rwth-aachen.de",
		},
		Lookup: LookupConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "paper-reconciler/0.1", RequestsPerSecond: 1},
			BaseURL:    "https://dblp.org",
			MaxHits:    10,
			CacheTTL:   time.Hour,
		},
		LLM: LLMConfig{
			HTTPConfig: HTTPConfig{Timeout: 120 * time.Second, UserAgent: "paper-reconciler/0.1"},
			Provider:   ProviderNone,
			Model:      "gpt-4o-mini",
			MaxRetries: 3,
			Converter:  ConverterDocconv,
		},
		Graph: GraphConfig{
			User:    "neo4j",
			Timeout: 30 * time.Second,
		},
		Review: ReviewConfig{
			DBPath: "reconciler/review.db",
		},
		Pipeline: PipelineConfig{
			Workers:       1,
			SourceTimeout: 60 * time.Second,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
	}
}

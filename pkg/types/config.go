// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by collaborators that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-assistant/0.1").
	UserAgent string `mapstructure:"user_agent" json:"user_agent" yaml:"user_agent"`
}

// SourceTimeouts bounds each adapter call independently.
type SourceTimeouts struct {
	Document time.Duration `mapstructure:"document" json:"document" yaml:"document" validate:"gt=0"`
	Memory   time.Duration `mapstructure:"memory" json:"memory" yaml:"memory" validate:"gt=0"`
	Web      time.Duration `mapstructure:"web" json:"web" yaml:"web" validate:"gt=0"`
	Academic time.Duration `mapstructure:"academic" json:"academic" yaml:"academic" validate:"gt=0"`
}

// For returns the timeout configured for id.
func (t SourceTimeouts) For(id SourceID) time.Duration {
	switch id {
	case SourceDocument:
		return t.Document
	case SourceMemory:
		return t.Memory
	case SourceWeb:
		return t.Web
	case SourceAcademic:
		return t.Academic
	}
	return 0
}

// SourceConfidence holds the trust priors reported by sources with a fixed
// confidence. DOCUMENT is absent because its confidence comes from the index.
type SourceConfidence struct {
	Memory   float64 `mapstructure:"memory" json:"memory" yaml:"memory" validate:"gte=0,lte=1"`
	Web      float64 `mapstructure:"web" json:"web" yaml:"web" validate:"gte=0,lte=1"`
	Academic float64 `mapstructure:"academic" json:"academic" yaml:"academic" validate:"gte=0,lte=1"`
}

// Table converts the configuration into a ConfidenceTable.
func (c SourceConfidence) Table() ConfidenceTable {
	return ConfidenceTable{
		SourceMemory:   c.Memory,
		SourceWeb:      c.Web,
		SourceAcademic: c.Academic,
	}
}

// SourcesConfig groups the per-source adapter settings.
type SourcesConfig struct {
	Confidence SourceConfidence `mapstructure:"confidence" json:"confidence" yaml:"confidence"`
	Timeout    SourceTimeouts   `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// DraftAnswers asks each adapter to draft a short answer from its own
	// evidence with the LLM.
	DraftAnswers bool `mapstructure:"draft_answers" json:"draft_answers" yaml:"draft_answers"`
}

// DocumentConfig holds settings for the document index.
type DocumentConfig struct {
	// IndexDir holds documents.db.
	IndexDir  string `mapstructure:"index_dir" json:"index_dir" yaml:"index_dir" validate:"required"`
	MaxChunks int    `mapstructure:"max_chunks" json:"max_chunks" yaml:"max_chunks" validate:"gt=0"`

	// ChunkSize is the soft upper bound, in characters, of an indexed chunk.
	ChunkSize int `mapstructure:"chunk_size" json:"chunk_size" yaml:"chunk_size" validate:"gte=200"`
}

// MemoryBackend selects the conversation store.
type MemoryBackend string

const (
	MemorySQLite MemoryBackend = "sqlite"
	MemoryCache  MemoryBackend = "cache"
)

// MemoryConfig holds settings for conversation memory.
type MemoryConfig struct {
	Backend     MemoryBackend `mapstructure:"backend" json:"backend" yaml:"backend" validate:"oneof=sqlite cache"`
	IndexDir    string        `mapstructure:"index_dir" json:"index_dir" yaml:"index_dir"`
	MaxMessages int           `mapstructure:"max_messages" json:"max_messages" yaml:"max_messages" validate:"gt=0"`

	// TTL expires sessions in the cache backend.
	TTL time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`

	// MaxMessageLength bounds each stored turn; longer turns are summarized.
	MaxMessageLength int `mapstructure:"max_message_length" json:"max_message_length" yaml:"max_message_length" validate:"gte=50"`
}

// WebConfig holds settings for the Firecrawl web search backend.
type WebConfig struct {
	APIKey            string  `mapstructure:"api_key" json:"api_key,omitempty" yaml:"api_key,omitempty"`
	MaxResults        int     `mapstructure:"max_results" json:"max_results" yaml:"max_results" validate:"gt=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
}

// AcademicConfig holds settings for the academic search backends.
type AcademicConfig struct {
	MaxResults int `mapstructure:"max_results" json:"max_results" yaml:"max_results" validate:"gt=0"`

	EnableArxiv           bool `mapstructure:"enable_arxiv" json:"enable_arxiv" yaml:"enable_arxiv"`
	EnableSemanticScholar bool `mapstructure:"enable_semantic_scholar" json:"enable_semantic_scholar" yaml:"enable_semantic_scholar"`
	EnableOpenAlex        bool `mapstructure:"enable_openalex" json:"enable_openalex" yaml:"enable_openalex"`

	// OpenAlexMailto is sent as the mailto parameter for the OpenAlex polite pool.
	OpenAlexMailto string `mapstructure:"openalex_mailto" json:"openalex_mailto,omitempty" yaml:"openalex_mailto,omitempty" validate:"omitempty,email"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `mapstructure:"semantic_scholar_api_key" json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`
}

// LLMProvider identifies the model API.
type LLMProvider string

const (
	ProviderAnthropic  LLMProvider = "anthropic"
	ProviderOpenRouter LLMProvider = "openrouter"
)

// LLMConfig holds settings for the evaluation and synthesis model.
type LLMConfig struct {
	Provider LLMProvider `mapstructure:"provider" json:"provider" yaml:"provider" validate:"oneof=anthropic openrouter"`

	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model   string `mapstructure:"model" json:"model" yaml:"model" validate:"required"`
	APIKey  string `mapstructure:"api_key" json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`

	Temperature float64 `mapstructure:"temperature" json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens" yaml:"max_tokens" validate:"gt=0"`

	// MaxRetries is the number of retries on HTTP 429.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries" validate:"gte=0"`
}

// SynthesisConfig bounds schema-violation retries.
type SynthesisConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts" yaml:"max_attempts" validate:"gte=1,lte=10"`
}

// LogConfig selects log level and destination.
type LogConfig struct {
	Level       string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	File        string `mapstructure:"file" json:"file,omitempty" yaml:"file,omitempty"`
	Development bool   `mapstructure:"development" json:"development" yaml:"development"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" json:"addr" yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
	CORSOrigins  []string      `mapstructure:"cors_origins" json:"cors_origins" yaml:"cors_origins"`
}

// Config groups every setting of the research assistant.
type Config struct {
	// QueryTimeout is the overall per-query deadline.
	QueryTimeout time.Duration `mapstructure:"query_timeout" json:"query_timeout" yaml:"query_timeout" validate:"gt=0"`

	Sources   SourcesConfig   `mapstructure:"sources" json:"sources" yaml:"sources"`
	Document  DocumentConfig  `mapstructure:"document" json:"document" yaml:"document"`
	Memory    MemoryConfig    `mapstructure:"memory" json:"memory" yaml:"memory"`
	Web       WebConfig       `mapstructure:"web" json:"web" yaml:"web"`
	Academic  AcademicConfig  `mapstructure:"academic" json:"academic" yaml:"academic"`
	LLM       LLMConfig       `mapstructure:"llm" json:"llm" yaml:"llm"`
	Synthesis SynthesisConfig `mapstructure:"synthesis" json:"synthesis" yaml:"synthesis"`
	Log       LogConfig       `mapstructure:"log" json:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" json:"server" yaml:"server"`
	HTTP      HTTPConfig      `mapstructure:"http" json:"http" yaml:"http"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config registers defaults, decodes, and validates the research
// assistant configuration held by viper.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// EnvPrefix is prepended to every environment override
// (RESEARCH_ASSISTANT_LLM_MODEL overrides llm.model).
const EnvPrefix = "RESEARCH_ASSISTANT"

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("query_timeout", 90*time.Second)

	conf := types.DefaultConfidenceTable()
	v.SetDefault("sources.confidence.memory", conf[types.SourceMemory])
	v.SetDefault("sources.confidence.web", conf[types.SourceWeb])
	v.SetDefault("sources.confidence.academic", conf[types.SourceAcademic])
	v.SetDefault("sources.timeout.document", 10*time.Second)
	v.SetDefault("sources.timeout.memory", 5*time.Second)
	v.SetDefault("sources.timeout.web", 30*time.Second)
	v.SetDefault("sources.timeout.academic", 30*time.Second)
	v.SetDefault("sources.draft_answers", false)

	v.SetDefault("document.index_dir", "data/index")
	v.SetDefault("document.max_chunks", 5)
	v.SetDefault("document.chunk_size", 1500)

	v.SetDefault("memory.backend", string(types.MemorySQLite))
	v.SetDefault("memory.index_dir", "data/index")
	v.SetDefault("memory.max_messages", 10)
	v.SetDefault("memory.ttl", 24*time.Hour)
	v.SetDefault("memory.max_message_length", 2000)

	v.SetDefault("web.api_key", "")
	v.SetDefault("web.max_results", 5)
	v.SetDefault("web.requests_per_second", 2.0)

	v.SetDefault("academic.max_results", 5)
	v.SetDefault("academic.enable_arxiv", true)
	v.SetDefault("academic.enable_semantic_scholar", true)
	v.SetDefault("academic.semantic_scholar_api_key", "")
	v.SetDefault("academic.enable_openalex", false)
	v.SetDefault("academic.openalex_mailto", "")

	v.SetDefault("llm.provider", string(types.ProviderAnthropic))
	v.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.max_retries", 3)

	v.SetDefault("synthesis.max_attempts", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "research-assistant/0.1")
}

// BindEnv enables environment overrides with EnvPrefix.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config, fills API keys from s where the
// configuration leaves them empty, and validates the result.
func Load(v *viper.Viper, s secrets.Set) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.Web.APIKey = s.Get(secrets.FirecrawlAPIKey, cfg.Web.APIKey)
	cfg.Academic.SemanticScholarAPIKey = s.Get(secrets.SemanticScholarAPIKey, cfg.Academic.SemanticScholarAPIKey)
	switch cfg.LLM.Provider {
	case types.ProviderOpenRouter:
		cfg.LLM.APIKey = s.Get(secrets.OpenRouterAPIKey, cfg.LLM.APIKey)
	default:
		cfg.LLM.APIKey = s.Get(secrets.AnthropicAPIKey, cfg.LLM.APIKey)
	}
	if cfg.Memory.IndexDir == "" {
		cfg.Memory.IndexDir = cfg.Document.IndexDir
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks cfg against its struct tags.
func Validate(cfg types.Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL", field)
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

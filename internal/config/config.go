// Package config loads the counselor's runtime configuration from a JSON or
// YAML file, the environment and built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/search"
)

// Environment variables read by ApplyEnv.
const (
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvSearchAPIKey   = "GOOGLE_SEARCH_API_KEY"
	EnvSearchEngineID = "GOOGLE_SEARCH_CX"
)

// Config is the runtime configuration. Zero values mean "use the default"
// except for IncludeRawContent, which is a pointer so false can be set.
type Config struct {
	GeminiAPIKey   string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	SearchAPIKey   string `json:"search_api_key,omitempty" yaml:"search_api_key,omitempty"`
	SearchEngineID string `json:"search_engine_id,omitempty" yaml:"search_engine_id,omitempty"`

	MinRecommendations  int    `json:"min_recommendations,omitempty" yaml:"min_recommendations,omitempty" validate:"gte=1"`
	QueriesPerJob       int    `json:"queries_per_job,omitempty" yaml:"queries_per_job,omitempty" validate:"gte=1"`
	MaxSearchResults    int    `json:"max_search_results,omitempty" yaml:"max_search_results,omitempty" validate:"gte=1,lte=10"`
	SearchDepth         string `json:"search_depth,omitempty" yaml:"search_depth,omitempty" validate:"oneof=basic thorough advanced"`
	IncludeRawContent   *bool  `json:"include_raw_content,omitempty" yaml:"include_raw_content,omitempty"`
	MaxSearchesPerQuery int    `json:"max_searches_per_query,omitempty" yaml:"max_searches_per_query,omitempty" validate:"gte=1"`
	ResearchConcurrency int    `json:"research_concurrency,omitempty" yaml:"research_concurrency,omitempty" validate:"gte=1"`
	AutoResearchJobs    int    `json:"auto_research_jobs,omitempty" yaml:"auto_research_jobs,omitempty" validate:"gte=0"`

	Models map[string]string `json:"models,omitempty" yaml:"models,omitempty" validate:"dive,keys,oneof=lite standard advanced,endkeys,required"`

	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"oneof=json pretty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	raw := true
	return Config{
		MinRecommendations:  10,
		QueriesPerJob:       5,
		MaxSearchResults:    2,
		SearchDepth:         "thorough",
		IncludeRawContent:   &raw,
		MaxSearchesPerQuery: 2,
		ResearchConcurrency: 4,
		AutoResearchJobs:    0,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// LoadConfig reads a JSON or YAML file, chosen by extension.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return &cfg, nil
}

// Load builds the effective configuration: defaults, then the file at path
// (if any), then the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = *loaded
	}
	cfg = cfg.MergeWithDefaults(Defaults())
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MergeWithDefaults returns a copy with unset fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	mergeInt := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}
	mergeString(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	mergeString(&result.SearchAPIKey, defaults.SearchAPIKey)
	mergeString(&result.SearchEngineID, defaults.SearchEngineID)
	mergeString(&result.SearchDepth, defaults.SearchDepth)
	mergeString(&result.LogLevel, defaults.LogLevel)
	mergeString(&result.LogFormat, defaults.LogFormat)
	mergeInt(&result.MinRecommendations, defaults.MinRecommendations)
	mergeInt(&result.QueriesPerJob, defaults.QueriesPerJob)
	mergeInt(&result.MaxSearchResults, defaults.MaxSearchResults)
	mergeInt(&result.MaxSearchesPerQuery, defaults.MaxSearchesPerQuery)
	mergeInt(&result.ResearchConcurrency, defaults.ResearchConcurrency)
	mergeInt(&result.AutoResearchJobs, defaults.AutoResearchJobs)

	if result.IncludeRawContent == nil && defaults.IncludeRawContent != nil {
		v := *defaults.IncludeRawContent
		result.IncludeRawContent = &v
	}
	if len(defaults.Models) > 0 {
		models := make(map[string]string, len(defaults.Models)+len(result.Models))
		for k, v := range defaults.Models {
			models[k] = v
		}
		for k, v := range result.Models {
			models[k] = v
		}
		result.Models = models
	}
	return result
}

// ApplyEnv fills API credentials from the environment when set there.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.GeminiAPIKey, EnvGeminiAPIKey)
	set(&c.SearchAPIKey, EnvSearchAPIKey)
	set(&c.SearchEngineID, EnvSearchEngineID)
}

var validate = validator.New()

// Validate checks value ranges. Credentials are checked where they are used.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// RawContent reports whether search results carry full page text.
func (c *Config) RawContent() bool {
	return c.IncludeRawContent != nil && *c.IncludeRawContent
}

// Depth returns the parsed search depth.
func (c *Config) Depth() search.Depth {
	d, err := search.ParseDepth(c.SearchDepth)
	if err != nil {
		return search.DepthThorough
	}
	return d
}

// SearchOptions returns the per-call search parameters.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		MaxResults:        c.MaxSearchResults,
		Depth:             c.Depth(),
		IncludeRawContent: c.RawContent(),
	}
}

// Masked returns a copy safe for display, with credentials shortened.
func (c *Config) Masked() Config {
	out := *c
	out.GeminiAPIKey = mask(c.GeminiAPIKey)
	out.SearchAPIKey = mask(c.SearchAPIKey)
	return out
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****" + secret[len(secret)-2:]
	}
}

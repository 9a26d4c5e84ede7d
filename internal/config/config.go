package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
	APIPrefix   string `json:"api_prefix"`
	LogLevel    string `json:"log_level"`

	// CORS
	CORSOrigins []string `json:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	// Rate Limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	// Message screening
	MaxMessageLength  int      `json:"max_message_length"`
	SensitiveKeywords []string `json:"sensitive_keywords"`

	// Language model
	Provider         string        `json:"provider"` // "openai" | "anthropic"
	OpenAIAPIKey     string        `json:"openai_api_key"`
	OpenAIBaseURL    string        `json:"openai_base_url"`
	OpenAIModel      string        `json:"openai_model"`
	AnthropicAPIKey  string        `json:"anthropic_api_key"`
	AnthropicBaseURL string        `json:"anthropic_base_url"`
	AnthropicModel   string        `json:"anthropic_model"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	SystemPrompt     string        `json:"system_prompt"`
	ModelTimeout     time.Duration `json:"model_timeout"`

	// Tools
	ToolTimeout    time.Duration `json:"tool_timeout"`
	ParallelTools  bool          `json:"parallel_tools"`
	WeatherBaseURL string        `json:"weather_base_url"`
	SearchBaseURL  string        `json:"search_base_url"`
	SearchBackend  string        `json:"search_backend"` // "duckduckgo" | "elasticsearch"

	// Elasticsearch search backend
	ElasticsearchHost        string   `json:"elasticsearch_host"`
	ElasticsearchPort        int      `json:"elasticsearch_port"`
	ElasticsearchScheme      string   `json:"elasticsearch_scheme"`
	ElasticsearchUser        string   `json:"elasticsearch_user"`
	ElasticsearchPassword    string   `json:"elasticsearch_password"`
	ElasticsearchVerifyCerts bool     `json:"elasticsearch_verify_certs"`
	ElasticsearchMaxRetries  int      `json:"elasticsearch_max_retries"`
	SearchIndex              string   `json:"search_index"`
	SearchFields             []string `json:"search_fields"`

	// Audit
	EnableAuditLogging           bool   `json:"enable_audit_logging"`
	GCPProjectID                 string `json:"gcp_project_id"`
	GoogleApplicationCredentials string `json:"google_application_credentials"`
	BigQueryLocation             string `json:"bigquery_location"`
	AuditDataset                 string `json:"audit_dataset"`
	AuditTable                   string `json:"audit_table"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:                     DefaultHost,
		Port:                     DefaultPort,
		Environment:              DefaultEnvironment,
		APIPrefix:                DefaultAPIPrefix,
		LogLevel:                 DefaultLogLevel,
		CORSOrigins:              DefaultCORSOrigins,
		APIKeyHeader:             "X-API-Key",
		RateLimitPerMinute:       DefaultRateLimitPerMinute,
		MaxMessageLength:         DefaultMaxMessageLength,
		Provider:                 DefaultProvider,
		OpenAIModel:              DefaultOpenAIModel,
		AnthropicModel:           DefaultAnthropicModel,
		Temperature:              DefaultTemperature,
		MaxTokens:                DefaultMaxTokens,
		SystemPrompt:             DefaultSystemPrompt,
		ModelTimeout:             DefaultModelTimeout,
		ToolTimeout:              DefaultToolTimeout,
		WeatherBaseURL:           DefaultWeatherBaseURL,
		SearchBaseURL:            DefaultSearchBaseURL,
		SearchBackend:            DefaultSearchBackend,
		ElasticsearchPort:        DefaultElasticsearchPort,
		ElasticsearchScheme:      DefaultElasticsearchScheme,
		ElasticsearchVerifyCerts: true,
		ElasticsearchMaxRetries:  DefaultElasticsearchMaxRetries,
		SearchIndex:              DefaultSearchESIndex,
		SearchFields:             DefaultSearchESFields,
		EnableAuditLogging:       true,
		BigQueryLocation:         DefaultBigQueryLocation,
		AuditTable:               DefaultAuditTable,
	}

	// Load from JSON config file if specified
	if path := getEnv("TOOLRELAY_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// Environment overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.SearchBackend {
	case SearchBackendDuckDuckGo, SearchBackendElasticsearch:
	default:
		return fmt.Errorf("unknown search backend %q", c.SearchBackend)
	}
	if c.SearchBackend == SearchBackendElasticsearch && c.ElasticsearchHost == "" {
		return fmt.Errorf("elasticsearch search backend requires elasticsearch_host")
	}
	if c.ModelTimeout <= 0 {
		return fmt.Errorf("model_timeout must be positive")
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// ModelAPIKey returns the credential for the selected provider.
func (c *Config) ModelAPIKey() string {
	if c.Provider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// ModelName returns the model ID for the selected provider.
func (c *Config) ModelName() string {
	if c.Provider == ProviderAnthropic {
		return c.AnthropicModel
	}
	return c.OpenAIModel
}

// AuditExportEnabled reports whether audit events are streamed to BigQuery.
func (c *Config) AuditExportEnabled() bool {
	return c.EnableAuditLogging && c.GCPProjectID != "" && c.AuditDataset != ""
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw struct {
		*Config
		ModelTimeout string `json:"model_timeout"`
		ToolTimeout  string `json:"tool_timeout"`
	}
	raw.Config = cfg
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ModelTimeout != "" {
		d, err := time.ParseDuration(raw.ModelTimeout)
		if err != nil {
			return fmt.Errorf("model_timeout: %w", err)
		}
		cfg.ModelTimeout = d
	}
	if raw.ToolTimeout != "" {
		d, err := time.ParseDuration(raw.ToolTimeout)
		if err != nil {
			return fmt.Errorf("tool_timeout: %w", err)
		}
		cfg.ToolTimeout = d
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("TOOLRELAY_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("TOOLRELAY_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("TOOLRELAY_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("TOOLRELAY_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("TOOLRELAY_API_PREFIX"); ok {
		cfg.APIPrefix = v
	}
	if v := getEnv("TOOLRELAY_API_KEYS", ""); v != "" {
		cfg.APIKeys = splitList(v)
	}
	if v := getEnv("ENABLE_AUTH", ""); v != "" {
		cfg.EnableAuth = parseBool(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = r
		}
	}
	if v := getEnv("CORS_ORIGINS", ""); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := getEnv("MAX_MESSAGE_LENGTH", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxMessageLength = n
		}
	}
	if v := getEnv("SENSITIVE_KEYWORDS", ""); v != "" {
		cfg.SensitiveKeywords = splitList(v)
	}

	if v := getEnv("LLM_PROVIDER", ""); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	if v := getEnv("OPENAI_API_KEY", ""); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := getEnv("OPENAI_BASE_URL", ""); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := getEnv("OPENAI_MODEL", ""); v != "" {
		cfg.OpenAIModel = v
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := getEnv("ANTHROPIC_BASE_URL", ""); v != "" {
		cfg.AnthropicBaseURL = v
	}
	if v := getEnv("ANTHROPIC_MODEL", ""); v != "" {
		cfg.AnthropicModel = v
	}
	if v := getEnv("LLM_TEMPERATURE", ""); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = t
		}
	}
	if v := getEnv("LLM_MAX_TOKENS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens = n
		}
	}
	if v := getEnv("SYSTEM_PROMPT", ""); v != "" {
		cfg.SystemPrompt = v
	}
	if v := getEnv("MODEL_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ModelTimeout = d
		}
	}

	if v := getEnv("TOOL_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ToolTimeout = d
		}
	}
	if v := getEnv("PARALLEL_TOOLS", ""); v != "" {
		cfg.ParallelTools = parseBool(v)
	}
	if v := getEnv("WEATHER_BASE_URL", ""); v != "" {
		cfg.WeatherBaseURL = v
	}
	if v := getEnv("SEARCH_BASE_URL", ""); v != "" {
		cfg.SearchBaseURL = v
	}
	if v := getEnv("SEARCH_BACKEND", ""); v != "" {
		cfg.SearchBackend = strings.ToLower(v)
	}

	if v := getEnv("ELASTICSEARCH_HOST", ""); v != "" {
		cfg.ElasticsearchHost = v
	}
	if v := getEnv("ELASTICSEARCH_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ElasticsearchPort = p
		}
	}
	if v := getEnv("ELASTICSEARCH_SCHEME", ""); v != "" {
		cfg.ElasticsearchScheme = v
	}
	if v := getEnv("ELASTICSEARCH_USER", ""); v != "" {
		cfg.ElasticsearchUser = v
	}
	if v := getEnv("ELASTICSEARCH_PASSWORD", ""); v != "" {
		cfg.ElasticsearchPassword = v
	}
	if v := getEnv("ELASTICSEARCH_VERIFY_CERTS", ""); v != "" {
		cfg.ElasticsearchVerifyCerts = parseBool(v)
	}
	if v := getEnv("ELASTICSEARCH_MAX_RETRIES", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ElasticsearchMaxRetries = n
		}
	}
	if v := getEnv("ELASTICSEARCH_INDEX", ""); v != "" {
		cfg.SearchIndex = v
	}
	if v := getEnv("ELASTICSEARCH_SEARCH_FIELDS", ""); v != "" {
		cfg.SearchFields = splitList(v)
	}

	if v := getEnv("ENABLE_AUDIT_LOGGING", ""); v != "" {
		cfg.EnableAuditLogging = parseBool(v)
	}
	if v := getEnv("GCP_PROJECT_ID", ""); v != "" {
		cfg.GCPProjectID = v
	}
	if v := getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""); v != "" {
		cfg.GoogleApplicationCredentials = v
	}
	if v := getEnv("AUDIT_BIGQUERY_DATASET", ""); v != "" {
		cfg.AuditDataset = v
	}
	if v := getEnv("AUDIT_BIGQUERY_TABLE", ""); v != "" {
		cfg.AuditTable = v
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

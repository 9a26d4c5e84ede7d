package config

import "time"

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = ""
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60
	DefaultMaxMessageLength   = 8000

	DefaultProvider         = ProviderOpenAI
	DefaultOpenAIModel      = "gpt-4o-mini"
	DefaultAnthropicModel   = "claude-sonnet-4-6"
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 1024
	DefaultModelTimeout     = 60 * time.Second
	DefaultToolTimeout      = 15 * time.Second
	DefaultWeatherBaseURL   = "https://wttr.in"
	DefaultSearchBaseURL    = "https://api.duckduckgo.com"
	DefaultSearchBackend    = SearchBackendDuckDuckGo
	DefaultSearchESIndex    = "web-pages"
	DefaultAuditTable       = "chat_audit"
	DefaultBigQueryLocation = "US"

	DefaultElasticsearchPort       = 9200
	DefaultElasticsearchScheme     = "http"
	DefaultElasticsearchMaxRetries = 3

	DefaultSystemPrompt = `You are a helpful assistant. You can call tools to look up the current weather, search the web, evaluate arithmetic and tell the current time in any timezone.
Use a tool whenever it gives a more accurate answer than your own knowledge, then answer the user in plain language.
If a tool returns an error, explain the problem to the user or try a different approach.`
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	SearchBackendDuckDuckGo    = "duckduckgo"
	SearchBackendElasticsearch = "elasticsearch"
)

var DefaultCORSOrigins = []string{"*"}

var DefaultSearchESFields = []string{"title^2", "content"}

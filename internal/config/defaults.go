package config

const (
	defaultDataDir                = "~/.local/share/jobdraft"
	defaultLogDir                 = "~/.local/share/jobdraft/logs"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultTemperature            = 0.7
	defaultMaxTokens              = 2500
	defaultAttemptTimeoutSeconds  = 30
	defaultMinGeneratedChars      = 200
	defaultCooldownSeconds        = 60
	defaultMinConfidence          = 0.7
	defaultFetchTimeoutSeconds    = 15
	defaultFetchMaxBodyChars      = 8000
	defaultNotifyTimeoutSeconds   = 10
	defaultFetchUserAgent         = "jobdraft/dev (+https://github.com/jobdraft/jobdraft)"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultProviderReferer        = "https://github.com/jobdraft/jobdraft"
	defaultProviderTitle          = "jobdraft"
	defaultOpenRouterBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel        = "google/gemini-3-flash-preview"
	defaultOpenAIModel            = "gpt-4o-mini"
	defaultGeminiModel            = "gemini-2.5-flash"
	defaultProviderPriorityStride = 10
)

// OfficialOpenRouterURL is the public OpenRouter chat completion endpoint used
// when a provider of kind openrouter does not set base_url.
const OfficialOpenRouterURL = defaultOpenRouterBaseURL

// Provider kinds understood by the client factory.
const (
	KindOpenRouter = "openrouter"
	KindOpenAI     = "openai"
	KindGemini     = "gemini"
)

// Default returns a Config populated with repository defaults. No providers
// are configured by default; normalize adds env-backed entries when the
// well-known API key variables are present.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Generation: Generation{
			Temperature:            defaultTemperature,
			MaxTokens:              defaultMaxTokens,
			AttemptTimeoutSeconds:  defaultAttemptTimeoutSeconds,
			MinGeneratedChars:      defaultMinGeneratedChars,
			DefaultCooldownSeconds: defaultCooldownSeconds,
		},
		Classifier: Classifier{
			MinConfidence: defaultMinConfidence,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			MaxBodyChars:   defaultFetchMaxBodyChars,
			UserAgent:      defaultFetchUserAgent,
		},
		Notify: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultModelForKind(kind string) string {
	switch kind {
	case KindOpenAI:
		return defaultOpenAIModel
	case KindGemini:
		return defaultGeminiModel
	default:
		return defaultOpenRouterModel
	}
}

func defaultKeyEnvForKind(kind string) string {
	switch kind {
	case KindOpenAI:
		return "OPENAI_API_KEY"
	case KindGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENROUTER_API_KEY"
	}
}

package relay

// Config holds the relay constants. It is read-only after startup.
type Config struct {
	ResourceID   string `envconfig:"RELAY_RESOURCE_ID" default:"telegram-bot"`
	ThreadPrefix string `envconfig:"RELAY_THREAD_PREFIX" default:"telegram-"`
	MaxSteps     int    `envconfig:"RELAY_MAX_STEPS" default:"5"`
	FallbackText string `envconfig:"RELAY_FALLBACK_TEXT" default:"I find myself at a loss for words. Most unusual."`
}

// TelegramConfig configures delivery to the Telegram Bot API.
type TelegramConfig struct {
	BotToken   string `envconfig:"TELEGRAM_BOT_TOKEN"`
	APIBaseURL string `envconfig:"TELEGRAM_API_BASE_URL" default:"https://api.telegram.org"`
	ParseMode  string `envconfig:"TELEGRAM_PARSE_MODE" default:"Markdown"`
	// Timeout in seconds; 0 keeps the http.Client default of no timeout.
	Timeout int `envconfig:"TELEGRAM_TIMEOUT" default:"0"`
}

const (
	DefaultResourceID   = "telegram-bot"
	DefaultThreadPrefix = "telegram-"
	DefaultFallbackText = "I find myself at a loss for words. Most unusual."
	DefaultAPIBaseURL   = "https://api.telegram.org"
	DefaultParseMode    = "Markdown"
)

func (c Config) withDefaults() Config {
	if c.ResourceID == "" {
		c.ResourceID = DefaultResourceID
	}
	if c.ThreadPrefix == "" {
		c.ThreadPrefix = DefaultThreadPrefix
	}
	if c.FallbackText == "" {
		c.FallbackText = DefaultFallbackText
	}
	return c
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	AppURL   string `envconfig:"APP_URL"`

	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	ProductsCSV string `envconfig:"PRODUCTS_CSV"`

	EvolutionAPIURL  string        `envconfig:"EVOLUTION_API_URL"`
	EvolutionAPIKey  string        `envconfig:"EVOLUTION_API_KEY"`
	EvolutionTimeout time.Duration `envconfig:"EVOLUTION_TIMEOUT" default:"15s"`

	N8NWebhookURL    string `envconfig:"N8N_WEBHOOK_URL"`
	N8NWebhookSecret string `envconfig:"N8N_WEBHOOK_SECRET"`

	JWTSecret         string `envconfig:"JWT_SECRET"`
	AdminUsername     string `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	ReplyWorkers     int           `envconfig:"REPLY_WORKERS" default:"4"`
	ReplyQueueSize   int           `envconfig:"REPLY_QUEUE_SIZE" default:"256"`
	ReplyMaxAttempts int           `envconfig:"REPLY_MAX_ATTEMPTS" default:"3"`
	ReplyBackoff     time.Duration `envconfig:"REPLY_BACKOFF" default:"2s"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL"`

	TelegramBotToken    string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramAlertChatID int64  `envconfig:"TELEGRAM_ALERT_CHAT_ID"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) EvolutionConfigured() bool {
	return c.EvolutionAPIURL != "" && c.EvolutionAPIKey != ""
}

// WebhookURL is the public address the gateway should push events to. It is
// empty when APP_URL is unset or points at a loopback host.
func (c *Config) WebhookURL() string {
	if c.AppURL == "" {
		return ""
	}
	if strings.Contains(c.AppURL, "localhost") || strings.Contains(c.AppURL, "127.0.0.1") {
		return ""
	}
	return strings.TrimRight(c.AppURL, "/") + "/api/webhooks/evolution"
}

package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	SessionSigningKey string        `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	SessionIdle       time.Duration `mapstructure:"SESSION_IDLE"`
	GeminiAPIKey      string        `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL     string        `mapstructure:"GEMINI_BASE_URL"`
	GeminiAPIVersion  string        `mapstructure:"GEMINI_API_VERSION"`
	GeminiChatModel   string        `mapstructure:"GEMINI_CHAT_MODEL"`
	GeminiTTSModel    string        `mapstructure:"GEMINI_TTS_MODEL"`
	GeminiVoice       string        `mapstructure:"GEMINI_VOICE"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	KafkaBrokers      []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic        string        `mapstructure:"KAFKA_TOPIC"`
	MaxUploadBytes    int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	TLSEnabled        bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile       string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile        string        `mapstructure:"TLS_KEY_FILE"`
}

// devSigningKey signs session tokens in development when no key is set.
const devSigningKey = "luminous-dev-signing-key-change-me"

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"SESSION_SIGNING_KEY", "SESSION_TTL", "SESSION_IDLE",
	"GEMINI_API_KEY", "GEMINI_BASE_URL", "GEMINI_API_VERSION", "GEMINI_CHAT_MODEL", "GEMINI_TTS_MODEL", "GEMINI_VOICE",
	"REDIS_URL", "KAFKA_BROKERS", "KAFKA_TOPIC", "MAX_UPLOAD_BYTES",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_IDLE", "2h")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/")
	v.SetDefault("GEMINI_API_VERSION", "v1beta")
	v.SetDefault("GEMINI_CHAT_MODEL", "gemini-3-flash-preview")
	v.SetDefault("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts")
	v.SetDefault("GEMINI_VOICE", "Kore")
	v.SetDefault("KAFKA_TOPIC", "portal.events")
	v.SetDefault("MAX_UPLOAD_BYTES", 10*1024*1024)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if cfg.SessionSigningKey == "" && cfg.IsDev() {
		cfg.SessionSigningKey = devSigningKey
		log.Println("WARNING: SESSION_SIGNING_KEY is not set; using the development key.")
	}
	if cfg.GeminiAPIKey == "" {
		log.Println("WARNING: GEMINI_API_KEY is not set; the assistant answers offline.")
	}

	return cfg, nil
}

// splitList accepts both a parsed list and a single comma separated value.
func splitList(parsed []string, raw string) []string {
	if len(parsed) > 0 {
		raw = strings.Join(parsed, ",")
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AIEnabled reports whether the Gemini gateway is configured.
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Validate checks that the configuration is safe to run. Outside development
// a session signing key of at least 32 bytes is required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.SessionSigningKey == "" {
			return fmt.Errorf("SESSION_SIGNING_KEY is required when ENV=%q", c.Env)
		}
		if len(c.SessionSigningKey) < 32 {
			return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 bytes, got %d", len(c.SessionSigningKey))
		}
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("SESSION_IDLE must be positive, got %s", c.SessionIdle)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}

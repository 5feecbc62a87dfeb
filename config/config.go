package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		PublicBaseURL  string   `yaml:"public_base_url"`
		BodyLimitMB    int      `yaml:"body_limit_mb"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret     string        `yaml:"jwt_secret"`
		SessionTTL    time.Duration `yaml:"session_ttl"`
		SealingKey    string        `yaml:"sealing_key"`
		ServiceToken  string        `yaml:"service_token"`
		OperatorEmail string        `yaml:"operator_email"`
	} `yaml:"auth"`
	Storage struct {
		AccountID       string `yaml:"account_id"`
		AccessKeyID     string `yaml:"access_key_id"`
		AccessKeySecret string `yaml:"access_key_secret"`
		Bucket          string `yaml:"bucket"`
		CDNBaseURL      string `yaml:"cdn_base_url"`
		LocalDir        string `yaml:"local_dir"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`
	Notifier struct {
		WebhookURL    string   `yaml:"webhook_url"`
		WebhookToken  string   `yaml:"webhook_token"`
		TelegramToken string   `yaml:"telegram_token"`
		TelegramChat  int64    `yaml:"telegram_chat"`
		KafkaBrokers  []string `yaml:"kafka_brokers"`
		KafkaTopic    string   `yaml:"kafka_topic"`
	} `yaml:"notifier"`
	Assistant struct {
		URL          string `yaml:"url"`
		APIKey       string `yaml:"api_key"`
		Model        string `yaml:"model"`
		SystemPrompt string `yaml:"system_prompt"`
		MaxHistory   int    `yaml:"max_history"`
	} `yaml:"assistant"`
	Schedule struct {
		ActivationEnabled bool   `yaml:"activation_enabled"`
		ActivationCron    string `yaml:"activation_cron"`
	} `yaml:"schedule"`
	BalanceFeed struct {
		URL      string        `yaml:"url"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"balance_feed"`
	RateLimit struct {
		ChatPerMinute  int `yaml:"chat_per_minute"`
		ApplyPerMinute int `yaml:"apply_per_minute"`
	} `yaml:"rate_limit"`
	LogFile string `yaml:"log_file"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	str("LISTEN_ADDR", &cfg.Server.Addr)
	str("PUBLIC_BASE_URL", &cfg.Server.PublicBaseURL)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	str("DATABASE_URL", &cfg.Database.DSN)

	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.SessionTTL = d
		}
	}
	str("CREDENTIAL_SEALING_KEY", &cfg.Auth.SealingKey)
	str("SERVICE_TOKEN", &cfg.Auth.ServiceToken)
	str("OPERATOR_EMAIL", &cfg.Auth.OperatorEmail)

	str("CLOUDFLARE_ACCOUNT_ID", &cfg.Storage.AccountID)
	str("R2_ACCESS_KEY_ID", &cfg.Storage.AccessKeyID)
	str("R2_ACCESS_KEY_SECRET", &cfg.Storage.AccessKeySecret)
	str("R2_BUCKET_NAME", &cfg.Storage.Bucket)
	str("CDN_BASE_URL", &cfg.Storage.CDNBaseURL)
	str("UPLOAD_DIR", &cfg.Storage.LocalDir)

	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)

	str("NOTIFY_WEBHOOK_URL", &cfg.Notifier.WebhookURL)
	str("NOTIFY_WEBHOOK_TOKEN", &cfg.Notifier.WebhookToken)
	str("TELEGRAM_BOT_TOKEN", &cfg.Notifier.TelegramToken)
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Notifier.TelegramChat = id
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Notifier.KafkaBrokers = splitList(v)
	}
	str("KAFKA_TOPIC", &cfg.Notifier.KafkaTopic)

	str("ASSISTANT_URL", &cfg.Assistant.URL)
	str("ASSISTANT_API_KEY", &cfg.Assistant.APIKey)
	str("ASSISTANT_MODEL", &cfg.Assistant.Model)

	if v := os.Getenv("ACTIVATION_CRON"); v != "" {
		cfg.Schedule.ActivationCron = v
		cfg.Schedule.ActivationEnabled = true
	}

	str("BALANCE_FEED_URL", &cfg.BalanceFeed.URL)
	if v := os.Getenv("BALANCE_FEED_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BalanceFeed.Interval = d
		}
	}

	str("LOG_FILE", &cfg.LogFile)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.PublicBaseURL == "" {
		cfg.Server.PublicBaseURL = "http://localhost" + cfg.Server.Addr
	}
	if cfg.Server.BodyLimitMB == 0 {
		cfg.Server.BodyLimitMB = 10
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "uploads"
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "portal:changes"
	}
	if cfg.Notifier.KafkaTopic == "" {
		cfg.Notifier.KafkaTopic = "portal.events"
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "google/gemini-2.5-flash"
	}
	if cfg.Assistant.MaxHistory == 0 {
		cfg.Assistant.MaxHistory = 20
	}
	if cfg.Schedule.ActivationCron == "" {
		cfg.Schedule.ActivationCron = "0 0 * * 0"
	}
	if cfg.BalanceFeed.Interval == 0 {
		cfg.BalanceFeed.Interval = time.Minute
	}
	if cfg.RateLimit.ChatPerMinute == 0 {
		cfg.RateLimit.ChatPerMinute = 20
	}
	if cfg.RateLimit.ApplyPerMinute == 0 {
		cfg.RateLimit.ApplyPerMinute = 5
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Auth.SealingKey == "" {
		return fmt.Errorf("auth.sealing_key is required")
	}
	if c.Auth.ServiceToken == "" {
		return fmt.Errorf("auth.service_token is required")
	}
	if c.Storage.Bucket != "" && (c.Storage.AccountID == "" || c.Storage.AccessKeyID == "" || c.Storage.AccessKeySecret == "") {
		return fmt.Errorf("storage.account_id and access keys are required when storage.bucket is set")
	}
	if c.Notifier.TelegramToken != "" && c.Notifier.TelegramChat == 0 {
		return fmt.Errorf("notifier.telegram_chat is required with a telegram token")
	}
	if c.RateLimit.ChatPerMinute < 0 || c.RateLimit.ApplyPerMinute < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	return nil
}

// UseR2 reports whether uploads go to a bucket rather than local disk.
func (c *Config) UseR2() bool {
	return c.Storage.Bucket != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

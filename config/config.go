package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	AppEnv   string `mapstructure:"APP_ENV"`
	Store    string `mapstructure:"STORE"`
	DBURL    string `mapstructure:"DATABASE_URL"`
	Timezone string `mapstructure:"TIMEZONE"`

	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	QueueBackend      string `mapstructure:"QUEUE_BACKEND"`
	KafkaBrokers      string `mapstructure:"KAFKA_BROKERS"`
	QueueMaxAttempts  int    `mapstructure:"QUEUE_MAX_ATTEMPTS"`
	WorkerConcurrency int    `mapstructure:"WORKER_CONCURRENCY"`
	RunWorkers        bool   `mapstructure:"RUN_WORKERS"`

	AccessSecret  string        `mapstructure:"ACCESS_SECRET"`
	RefreshSecret string        `mapstructure:"REFRESH_SECRET"`
	AccessTTL     time.Duration `mapstructure:"ACCESS_TTL"`
	RefreshTTL    time.Duration `mapstructure:"REFRESH_TTL"`

	OpenAIKey     string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`

	SendGridKey        string `mapstructure:"SENDGRID_API_KEY"`
	EmailFrom          string `mapstructure:"EMAIL_FROM"`
	FrontendURL        string `mapstructure:"FRONTEND_URL"`
	FCMCredentialsFile string `mapstructure:"FCM_CREDENTIALS_FILE"`

	MetricsUser string `mapstructure:"METRICS_USER"`
	MetricsPass string `mapstructure:"METRICS_PASS"`
	PprofSecret string `mapstructure:"PPROF_SECRET"`

	// Clock times ("15:04") in Timezone.
	ScheduleStreakDecay string `mapstructure:"SCHEDULE_STREAK_DECAY"`
	ScheduleReminders   string `mapstructure:"SCHEDULE_REMINDERS"`
	SchedulePrompts     string `mapstructure:"SCHEDULE_PROMPTS"`
}

var keys = []string{
	"PORT", "APP_ENV", "STORE", "DATABASE_URL", "TIMEZONE",
	"REDIS_ADDR", "QUEUE_BACKEND", "KAFKA_BROKERS", "QUEUE_MAX_ATTEMPTS", "WORKER_CONCURRENCY", "RUN_WORKERS",
	"ACCESS_SECRET", "REFRESH_SECRET", "ACCESS_TTL", "REFRESH_TTL",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"SENDGRID_API_KEY", "EMAIL_FROM", "FRONTEND_URL", "FCM_CREDENTIALS_FILE",
	"METRICS_USER", "METRICS_PASS", "PPROF_SECRET",
	"SCHEDULE_STREAK_DECAY", "SCHEDULE_REMINDERS", "SCHEDULE_PROMPTS",
}

// Load reads .env (if present), then app.env from path, then the environment.
// A missing app.env is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("PORT", "3333")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE", "postgres")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("QUEUE_BACKEND", "memory")
	v.SetDefault("QUEUE_MAX_ATTEMPTS", 5)
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("RUN_WORKERS", true)
	v.SetDefault("ACCESS_TTL", 15*time.Minute)
	v.SetDefault("REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("EMAIL_FROM", "support@mindwell.app")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("FCM_CREDENTIALS_FILE", "./serviceAccountKey.json")
	v.SetDefault("SCHEDULE_STREAK_DECAY", "00:05")
	v.SetDefault("SCHEDULE_REMINDERS", "18:00")
	v.SetDefault("SCHEDULE_PROMPTS", "00:01")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return fmt.Errorf("ACCESS_SECRET and REFRESH_SECRET must be set")
	}

	switch c.Store {
	case "postgres":
		if c.DBURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORE=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	switch c.QueueBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when QUEUE_BACKEND=redis")
		}
	case "kafka":
		if len(c.Brokers()) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must be set when QUEUE_BACKEND=kafka")
		}
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal service.
type Config struct {
	AppName    string
	AppEnv     string
	AppPort    string
	AppVersion string
	BaseURL    string

	// CORSOrigins is a comma separated allow list passed to the CORS middleware.
	CORSOrigins string

	DataDir           string
	JournalPath       string
	WriteRetries      int
	WriteRetryDelay   time.Duration
	AdminPassword     string
	AdminPasswordHash string

	SessionTimeout       time.Duration
	SessionMaxCount      int
	SessionSweepInterval time.Duration
	SessionSampleRate    float64

	AdminLimit   RateLimit
	StudentLimit RateLimit
	PublicLimit  RateLimit

	RedisURL           string
	StatisticsCacheTTL time.Duration
	NATSURL            string
	EventSubject       string

	LogLevel string
	LogFile  string
}

// RateLimit describes one admission policy.
type RateLimit struct {
	MaxRequests int
	Window      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Assignment Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("data.dir", "./data")
	v.SetDefault("write.retries", 3)
	v.SetDefault("write.retry_delay", "1s")
	v.SetDefault("session.timeout", "1h")
	v.SetDefault("session.max", 100)
	v.SetDefault("session.sweep_interval", "5m")
	v.SetDefault("session.sample_rate", 0.1)
	v.SetDefault("ratelimit.admin.max", 100)
	v.SetDefault("ratelimit.admin.window", "1m")
	v.SetDefault("ratelimit.student.max", 30)
	v.SetDefault("ratelimit.student.window", "1m")
	v.SetDefault("ratelimit.public.max", 60)
	v.SetDefault("ratelimit.public.window", "1m")
	v.SetDefault("statistics.cache_ttl", "1m")
	v.SetDefault("events.subject", "submission.created")
	v.SetDefault("log.level", "info")

	durations := map[string]time.Duration{}
	for _, key := range []string{
		"write.retry_delay",
		"session.timeout",
		"session.sweep_interval",
		"ratelimit.admin.window",
		"ratelimit.student.window",
		"ratelimit.public.window",
		"statistics.cache_ttl",
	} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:    v.GetString("app.name"),
		AppEnv:     v.GetString("app.env"),
		AppPort:    v.GetString("app.port"),
		AppVersion: v.GetString("app.version"),
		BaseURL:    strings.TrimRight(v.GetString("app.base_url"), "/"),

		CORSOrigins: strings.TrimSpace(v.GetString("cors.origins")),

		DataDir:           v.GetString("data.dir"),
		JournalPath:       v.GetString("data.journal"),
		WriteRetries:      v.GetInt("write.retries"),
		WriteRetryDelay:   durations["write.retry_delay"],
		AdminPassword:     v.GetString("admin.password"),
		AdminPasswordHash: v.GetString("admin.password_hash"),

		SessionTimeout:       durations["session.timeout"],
		SessionMaxCount:      v.GetInt("session.max"),
		SessionSweepInterval: durations["session.sweep_interval"],
		SessionSampleRate:    v.GetFloat64("session.sample_rate"),

		AdminLimit:   RateLimit{MaxRequests: v.GetInt("ratelimit.admin.max"), Window: durations["ratelimit.admin.window"]},
		StudentLimit: RateLimit{MaxRequests: v.GetInt("ratelimit.student.max"), Window: durations["ratelimit.student.window"]},
		PublicLimit:  RateLimit{MaxRequests: v.GetInt("ratelimit.public.max"), Window: durations["ratelimit.public.window"]},

		RedisURL:           v.GetString("redis.url"),
		StatisticsCacheTTL: durations["statistics.cache_ttl"],
		NATSURL:            v.GetString("nats.url"),
		EventSubject:       v.GetString("events.subject"),

		LogLevel: strings.ToLower(v.GetString("log.level")),
		LogFile:  v.GetString("log.file"),
	}

	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return Config{}, fmt.Errorf("admin password or password hash must be provided")
	}

	if cfg.WriteRetries <= 0 {
		cfg.WriteRetries = 3
	}

	if cfg.SessionSampleRate <= 0 || cfg.SessionSampleRate > 1 {
		cfg.SessionSampleRate = 0.1
	}

	return cfg, nil
}

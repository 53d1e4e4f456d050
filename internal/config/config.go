package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       App       `mapstructure:"app"`
	Database  Database  `mapstructure:"database"`
	Redis     Redis     `mapstructure:"redis"`
	OpenAI    OpenAI    `mapstructure:"openai"`
	Render    Render    `mapstructure:"render"`
	Storage   Storage   `mapstructure:"storage"`
	Poller    Poller    `mapstructure:"poller"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
}

type App struct {
	Env      string `mapstructure:"env"`
	Port     int    `mapstructure:"port"`
	BaseURL  string `mapstructure:"base_url"`
	LogLevel string `mapstructure:"log_level"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

type Redis struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	EventsChannel string `mapstructure:"events_channel"`
}

type OpenAI struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

type Render struct {
	APIURL            string        `mapstructure:"api_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"rps"`
}

type Storage struct {
	Local           bool          `mapstructure:"local"`
	LocalPath       string        `mapstructure:"local_path"`
	S3Region        string        `mapstructure:"s3_region"`
	S3Bucket        string        `mapstructure:"s3_bucket"`
	S3AccessKey     string        `mapstructure:"s3_access_key"`
	S3SecretKey     string        `mapstructure:"s3_secret_key"`
	SignedURLExpiry time.Duration `mapstructure:"signed_url_expiry"`
}

type Poller struct {
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxAge      time.Duration `mapstructure:"max_age"`
}

type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// env lists the environment variables read for each key, in priority order.
var env = map[string][]string{
	"app.env":                   {"APP_ENV", "NODE_ENV"},
	"app.port":                  {"PORT"},
	"app.base_url":              {"BASE_URL"},
	"app.log_level":             {"LOG_LEVEL"},
	"database.url":              {"DATABASE_URL"},
	"redis.addr":                {"REDIS_ADDR"},
	"redis.password":            {"REDIS_PASSWORD"},
	"redis.events_channel":      {"EVENTS_CHANNEL"},
	"openai.api_key":            {"OPENAI_API_KEY"},
	"openai.model":              {"OPENAI_MODEL"},
	"openai.temperature":        {"OPENAI_TEMPERATURE"},
	"render.api_url":            {"FAST_WAN_API_URL"},
	"render.api_key":            {"FAST_WAN_API_KEY"},
	"render.model":              {"FAST_WAN_MODEL"},
	"render.timeout":            {"FAST_WAN_TIMEOUT"},
	"render.rps":                {"FAST_WAN_RPS"},
	"storage.local":             {"USE_LOCAL_STORAGE"},
	"storage.local_path":        {"LOCAL_VIDEO_STORAGE_PATH"},
	"storage.s3_region":         {"AWS_S3_REGION"},
	"storage.s3_bucket":         {"AWS_S3_FILES_BUCKET"},
	"storage.s3_access_key":     {"AWS_S3_IAM_ACCESS_KEY"},
	"storage.s3_secret_key":     {"AWS_S3_IAM_SECRET_KEY"},
	"storage.signed_url_expiry": {"SIGNED_URL_EXPIRY"},
	"poller.interval":           {"POLL_INTERVAL"},
	"poller.concurrency":        {"POLL_CONCURRENCY"},
	"poller.max_age":            {"POLL_MAX_AGE"},
	"ratelimit.rps":             {"RATE_LIMIT_RPS"},
	"ratelimit.burst":           {"RATE_LIMIT_BURST"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.base_url", "")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.events_channel", "video-ads:events")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.8)
	v.SetDefault("render.api_url", "https://api.fast-wan.com")
	v.SetDefault("render.api_key", "")
	v.SetDefault("render.model", "wan-2.2")
	v.SetDefault("render.timeout", "60s")
	v.SetDefault("render.rps", 0)
	v.SetDefault("storage.local", false)
	v.SetDefault("storage.local_path", "./public/generated-videos")
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_access_key", "")
	v.SetDefault("storage.s3_secret_key", "")
	v.SetDefault("storage.signed_url_expiry", "1h")
	v.SetDefault("poller.interval", "30s")
	v.SetDefault("poller.concurrency", 4)
	v.SetDefault("poller.max_age", "0s")
	v.SetDefault("ratelimit.rps", 1)
	v.SetDefault("ratelimit.burst", 5)
}

// Load builds the configuration from the environment. Call godotenv.Load first
// to pick up a local .env file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, names := range env {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if strings.EqualFold(c.App.Env, "development") {
		c.Storage.Local = true
	}
	if c.Poller.Concurrency < 1 {
		c.Poller.Concurrency = 1
	}
	return &c, nil
}

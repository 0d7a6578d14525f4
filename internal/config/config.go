// Package config loads screener settings from YAML, .env and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"SkyrocketScreener/internal/model"
	"SkyrocketScreener/internal/saver"
	"SkyrocketScreener/internal/strategy"
)

// PriceRange is a half-open [Min, Max) price band.
type PriceRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultPresets are the built-in price bands.
var DefaultPresets = map[string]PriceRange{
	"skyrocket_under_4": {Min: 0.10, Max: 4.00},
	"penny_stocks":      {Min: 0.10, Max: 5.00},
	"sub_10_dollar":     {Min: 0.50, Max: 10.00},
}

const (
	DefaultPreset     = "skyrocket_under_4"
	DefaultMaxAgeDays = 1.0

	twelveDataPlaceholder = "YOUR_TWELVEDATA_API_KEY"
)

// Config holds all application configuration.
type Config struct {
	Screen struct {
		Timeframe     string        `yaml:"timeframe"`
		PricePreset   string        `yaml:"price_preset"`
		MinPrice      *float64      `yaml:"min_price"` // overrides the preset
		MaxPrice      *float64      `yaml:"max_price"`
		RequestDelay  time.Duration `yaml:"request_delay"`
		QuickFraction float64       `yaml:"quick_fraction"`
		ReuseSample   bool          `yaml:"reuse_sample"`
		TickersFile   string        `yaml:"tickers_file"`
		OutputDir     string        `yaml:"output_dir"`
		Format        string        `yaml:"format"`
	} `yaml:"screen"`
	PricePresets map[string]PriceRange `yaml:"price_presets"`
	Cache        struct {
		Dir           string   `yaml:"dir"`
		MaxAgeDays    *float64 `yaml:"max_age_days"` // 0 disables caching
		Backend       string   `yaml:"backend"`      // file or redis
		RedisAddr     string   `yaml:"redis_addr"`
		RedisPassword string   `yaml:"redis_password"`
		RedisDB       int      `yaml:"redis_db"`
	} `yaml:"cache"`
	DataSource struct {
		TwelveDataAPIKey string        `yaml:"twelvedata_api_key"`
		BreakerFailures  uint32        `yaml:"breaker_failures"`
		BreakerTimeout   time.Duration `yaml:"breaker_timeout"`
	} `yaml:"data_source"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"telegram"`
	Schedule struct {
		ScreenCron string `yaml:"screen_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment variable
// overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// .env never overrides variables that are already set
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"SCREEN_TIMEFRAME":    &c.Screen.Timeframe,
		"SCREEN_PRICE_PRESET": &c.Screen.PricePreset,
		"TICKERS_FILE":        &c.Screen.TickersFile,
		"OUTPUT_DIR":          &c.Screen.OutputDir,
		"CACHE_DIR":           &c.Cache.Dir,
		"CACHE_BACKEND":       &c.Cache.Backend,
		"REDIS_ADDR":          &c.Cache.RedisAddr,
		"REDIS_PASSWORD":      &c.Cache.RedisPassword,
		"TWELVEDATA_API_KEY":  &c.DataSource.TwelveDataAPIKey,
		"TELEGRAM_BOT_TOKEN":  &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":    &c.Telegram.ChatID,
		"CRON_SCREEN":         &c.Schedule.ScreenCron,
		"SQLITE_PATH":         &c.Database.SQLitePath,
		"METRICS_ADDR":        &c.Metrics.Addr,
		"LOG_LEVEL":           &c.Log.Level,
		"HTTPS_PROXY":         &c.Proxy,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("CACHE_MAX_AGE_DAYS"); v != "" {
		days, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CACHE_MAX_AGE_DAYS: %w", err)
		}
		c.Cache.MaxAgeDays = &days
	}
	if v := os.Getenv("SCREEN_REQUEST_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCREEN_REQUEST_DELAY: %w", err)
		}
		c.Screen.RequestDelay = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Screen.Timeframe == "" {
		c.Screen.Timeframe = string(model.Timeframe24Hours)
	}
	if c.Screen.PricePreset == "" {
		c.Screen.PricePreset = DefaultPreset
	}
	if c.Screen.RequestDelay == 0 {
		c.Screen.RequestDelay = 50 * time.Millisecond
	}
	if c.Screen.QuickFraction == 0 {
		c.Screen.QuickFraction = 1.0
	}
	if c.Screen.OutputDir == "" {
		c.Screen.OutputDir = "."
	}
	if c.Screen.Format == "" {
		c.Screen.Format = "csv"
	}
	if c.PricePresets == nil {
		c.PricePresets = make(map[string]PriceRange)
	}
	for name, r := range DefaultPresets {
		if _, ok := c.PricePresets[name]; !ok {
			c.PricePresets[name] = r
		}
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "data/cache"
	}
	if c.Cache.MaxAgeDays == nil {
		d := DefaultMaxAgeDays
		c.Cache.MaxAgeDays = &d
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.DataSource.BreakerFailures == 0 {
		c.DataSource.BreakerFailures = 5
	}
	if c.DataSource.BreakerTimeout == 0 {
		c.DataSource.BreakerTimeout = time.Minute
	}
	if c.Telegram.TopN == 0 {
		c.Telegram.TopN = 5
	}
	if c.Schedule.ScreenCron == "" {
		c.Schedule.ScreenCron = "0 30 16 * * 1-5"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Timeframe returns the configured screening timeframe.
func (c *Config) Timeframe() model.Timeframe {
	return model.Timeframe(c.Screen.Timeframe)
}

// PriceRange resolves the preset and any explicit min/max overrides.
func (c *Config) PriceRange() (PriceRange, error) {
	r, ok := c.PricePresets[c.Screen.PricePreset]
	if !ok && (c.Screen.MinPrice == nil || c.Screen.MaxPrice == nil) {
		return PriceRange{}, fmt.Errorf("unknown price preset %q", c.Screen.PricePreset)
	}
	if c.Screen.MinPrice != nil {
		r.Min = *c.Screen.MinPrice
	}
	if c.Screen.MaxPrice != nil {
		r.Max = *c.Screen.MaxPrice
	}
	return r, nil
}

// CacheMaxAge converts the configured age in days.
func (c *Config) CacheMaxAge() time.Duration {
	if c.Cache.MaxAgeDays == nil {
		return time.Duration(DefaultMaxAgeDays * float64(24*time.Hour))
	}
	return time.Duration(*c.Cache.MaxAgeDays * float64(24*time.Hour))
}

// TwelveDataEnabled reports whether a real Twelve Data key is configured.
func (c *Config) TwelveDataEnabled() bool {
	k := strings.TrimSpace(c.DataSource.TwelveDataAPIKey)
	return k != "" && k != twelveDataPlaceholder
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks the configuration before any screening starts.
func (c *Config) Validate() error {
	if _, err := strategy.Lookup(c.Timeframe()); err != nil {
		return fmt.Errorf("screen.timeframe: %w", err)
	}
	r, err := c.PriceRange()
	if err != nil {
		return fmt.Errorf("screen.price_preset: %w", err)
	}
	if r.Min < 0 || r.Min >= r.Max {
		return fmt.Errorf("screen price range [%.2f, %.2f) is empty", r.Min, r.Max)
	}
	if c.Screen.RequestDelay < 0 {
		return fmt.Errorf("screen.request_delay must not be negative")
	}
	if c.Screen.QuickFraction < 0 {
		return fmt.Errorf("screen.quick_fraction must not be negative")
	}
	if saver.New(c.Screen.Format) == nil {
		return fmt.Errorf("screen.format %q is not one of csv, json, parquet", c.Screen.Format)
	}
	if c.Cache.MaxAgeDays != nil && *c.Cache.MaxAgeDays < 0 {
		return fmt.Errorf("cache.max_age_days must not be negative")
	}
	switch c.Cache.Backend {
	case "file":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of file, redis", c.Cache.Backend)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

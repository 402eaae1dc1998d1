package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"callscribe/internal/browser"
	"callscribe/internal/extract"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	// --- Extraction ---
	NavigationTimeout   time.Duration `mapstructure:"NAVIGATION_TIMEOUT"`
	PageLoadTimeout     time.Duration `mapstructure:"PAGE_LOAD_TIMEOUT"`
	QueryTimeout        time.Duration `mapstructure:"QUERY_TIMEOUT"`
	HarvestTimeout      time.Duration `mapstructure:"HARVEST_TIMEOUT"`
	ElementReadTimeout  time.Duration `mapstructure:"ELEMENT_READ_TIMEOUT"`
	RevealPause         time.Duration `mapstructure:"REVEAL_PAUSE"`
	SettleDelay         time.Duration `mapstructure:"SETTLE_DELAY"`
	MaxAttempts         int           `mapstructure:"MAX_ATTEMPTS"`
	RetryDelay          time.Duration `mapstructure:"RETRY_DELAY"`
	ExpectedHost        string        `mapstructure:"EXPECTED_HOST"`
	// EXPECTED_PATH_PATTERN empty means the final path must equal the requested one,
	// so canonical-path redirects need a pattern.
	ExpectedPathPattern string        `mapstructure:"EXPECTED_PATH_PATTERN"`
	TranscriptContainer string        `mapstructure:"TRANSCRIPT_CONTAINER"`

	// --- Browser ---
	BrowserBin       string `mapstructure:"BROWSER_BIN"`
	BrowserHeadless  bool   `mapstructure:"BROWSER_HEADLESS"`
	BrowserNoSandbox bool   `mapstructure:"BROWSER_NO_SANDBOX"`
	BrowserStealth   bool   `mapstructure:"BROWSER_STEALTH"`
	UserAgent        string `mapstructure:"USER_AGENT"`
	ViewportWidth    int    `mapstructure:"VIEWPORT_WIDTH"`
	ViewportHeight   int    `mapstructure:"VIEWPORT_HEIGHT"`

	// --- HTTP ---
	ServerHost string  `mapstructure:"SERVER_HOST"`
	Port       int     `mapstructure:"PORT"`
	GinMode    string  `mapstructure:"GIN_MODE"`
	RateRPS    float64 `mapstructure:"RATE_RPS"`
	RateBurst  int     `mapstructure:"RATE_BURST"`

	// --- Storage & Telegram ---
	JournalPath      string        `mapstructure:"JOURNAL_PATH"`
	JournalRetention time.Duration `mapstructure:"JOURNAL_RETENTION"`
	TelegramBotToken string        `mapstructure:"TELEGRAM_BOT_TOKEN"`

	// --- Logging ---
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// setDefaults registers every key, which also makes AutomaticEnv pick them up on Unmarshal.
func setDefaults(v *viper.Viper) {
	ex := extract.DefaultOptions()
	br := browser.DefaultOptions()

	v.SetDefault("NAVIGATION_TIMEOUT", ex.NavigationTimeout)
	v.SetDefault("PAGE_LOAD_TIMEOUT", ex.PageLoadTimeout)
	v.SetDefault("QUERY_TIMEOUT", ex.QueryTimeout)
	v.SetDefault("HARVEST_TIMEOUT", ex.HarvestTimeout)
	v.SetDefault("ELEMENT_READ_TIMEOUT", br.ReadTimeout)
	v.SetDefault("REVEAL_PAUSE", ex.RevealPause)
	v.SetDefault("SETTLE_DELAY", ex.SettleDelay)
	v.SetDefault("MAX_ATTEMPTS", ex.MaxAttempts)
	v.SetDefault("RETRY_DELAY", ex.RetryDelay)
	v.SetDefault("EXPECTED_HOST", "")
	v.SetDefault("EXPECTED_PATH_PATTERN", "")
	v.SetDefault("TRANSCRIPT_CONTAINER", ex.TranscriptContainer)

	v.SetDefault("BROWSER_BIN", "")
	v.SetDefault("BROWSER_HEADLESS", br.Headless)
	v.SetDefault("BROWSER_NO_SANDBOX", br.NoSandbox)
	v.SetDefault("BROWSER_STEALTH", br.Stealth)
	v.SetDefault("USER_AGENT", br.UserAgent)
	v.SetDefault("VIEWPORT_WIDTH", br.ViewportWidth)
	v.SetDefault("VIEWPORT_HEIGHT", br.ViewportHeight)

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("PORT", 5000)
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("RATE_RPS", 1.0)
	v.SetDefault("RATE_BURST", 3)

	v.SetDefault("JOURNAL_PATH", "./journal_data")
	v.SetDefault("JOURNAL_RETENTION", 30*24*time.Hour)
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// NewViper returns a viper instance with defaults and environment lookup set
// up. Callers may bind flags into it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (Config, error) {
	return Load(NewViper(), path)
}

// Load reads "config.yaml" from path (if present) into v and decodes the result.
func Load(v *viper.Viper, path string) (config Config, err error) {
	if path != "" {
		v.AddConfigPath(path)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err = v.ReadInConfig(); err != nil {
		// A missing file is fine, env and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.NavigationTimeout <= 0 || c.PageLoadTimeout <= 0 || c.QueryTimeout <= 0 || c.HarvestTimeout <= 0 {
		return fmt.Errorf("NAVIGATION_TIMEOUT, PAGE_LOAD_TIMEOUT, QUERY_TIMEOUT and HARVEST_TIMEOUT must be positive")
	}
	if c.RetryDelay < 0 || c.RevealPause < 0 || c.SettleDelay < 0 {
		return fmt.Errorf("RETRY_DELAY, REVEAL_PAUSE and SETTLE_DELAY must not be negative")
	}
	if c.JournalRetention < 0 {
		return fmt.Errorf("JOURNAL_RETENTION must not be negative")
	}
	if c.ViewportWidth < 0 || c.ViewportHeight < 0 {
		return fmt.Errorf("viewport dimensions must not be negative")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.RateRPS <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("RATE_RPS must be positive and RATE_BURST at least 1")
	}
	if strings.TrimSpace(c.TranscriptContainer) == "" {
		return fmt.Errorf("TRANSCRIPT_CONTAINER is not set")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q, want json or text", c.LogFormat)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.Port)
}

// ExtractOptions builds the engine options.
func (c Config) ExtractOptions() extract.Options {
	opts := extract.DefaultOptions()
	opts.NavigationTimeout = c.NavigationTimeout
	opts.PageLoadTimeout = c.PageLoadTimeout
	opts.QueryTimeout = c.QueryTimeout
	opts.HarvestTimeout = c.HarvestTimeout
	opts.RevealPause = c.RevealPause
	opts.SettleDelay = c.SettleDelay
	opts.MaxAttempts = c.MaxAttempts
	opts.RetryDelay = c.RetryDelay
	opts.ExpectedHost = c.ExpectedHost
	opts.ExpectedPathPattern = c.ExpectedPathPattern
	opts.TranscriptContainer = c.TranscriptContainer
	return opts
}

// BrowserOptions builds the session launcher options.
func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		Bin:            c.BrowserBin,
		Headless:       c.BrowserHeadless,
		NoSandbox:      c.BrowserNoSandbox,
		Stealth:        c.BrowserStealth,
		UserAgent:      c.UserAgent,
		ViewportWidth:  c.ViewportWidth,
		ViewportHeight: c.ViewportHeight,
		ReadTimeout:    c.ElementReadTimeout,
	}
}

// NewLogger builds the application logger writing to out.
func (c Config) NewLogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	if strings.EqualFold(c.LogFormat, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

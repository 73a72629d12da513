package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Gateway   GatewayConfig
	Session   SessionConfig
	Refresh   RefreshConfig
	Notice    NoticeConfig
	Log       LogConfig
	Redis     RedisConfig
	Printing  PrintingConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name       string
	Env        string
	ListenAddr string
	// CORSAllowOrigins lists the browser origins allowed to call the dashboard API.
	CORSAllowOrigins []string
}

// GatewayConfig describes how to reach the inventory backend
type GatewayConfig struct {
	BaseURL       string
	APIPrefix     string
	Timeout       time.Duration
	MaxRetries    int // reads only; writes are never retried
	RetryDelay    time.Duration
	RateLimit     float64 // requests per second, 0 disables pacing
	RateBurst     int
	TLSSkipVerify bool
}

// SessionConfig holds the operator's backend credentials
type SessionConfig struct {
	Email      string
	Password   string
	CookieName string
}

// RefreshConfig controls the post-write refresh loop
type RefreshConfig struct {
	InitialDelay time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	SaleDelay    time.Duration
	StockDelay   time.Duration
}

// NoticeConfig controls operator-facing error notices
type NoticeConfig struct {
	TTL time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// RedisConfig holds the report cache connection settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// PrintingConfig holds PDF export settings
type PrintingConfig struct {
	ChromeRemoteURL string // empty launches a local headless Chrome
	Timeout         time.Duration
	NoSandbox       bool
	OutputDir       string
	Currency        string
}

// StorageConfig holds the S3-compatible report archive settings
type StorageConfig struct {
	Enabled        bool
	Endpoint       string
	Bucket         string
	Region         string
	AccessKey      string
	SecretKey      string
	UsePathStyle   bool
	PresignExpires time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
}

// Load reads ims.toml from the standard locations and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with IMS_ prefix (e.g., IMS_SESSION_PASSWORD)
// 2. ims.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("ims")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ims")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return build(v)
}

// LoadFile reads the given TOML file and environment variables.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("IMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:             v.GetString("app.name"),
			Env:              v.GetString("app.env"),
			ListenAddr:       v.GetString("app.listen_addr"),
			CORSAllowOrigins: v.GetStringSlice("app.cors_allow_origins"),
		},
		Gateway: GatewayConfig{
			BaseURL:       v.GetString("gateway.base_url"),
			APIPrefix:     v.GetString("gateway.api_prefix"),
			Timeout:       v.GetDuration("gateway.timeout"),
			MaxRetries:    v.GetInt("gateway.max_retries"),
			RetryDelay:    v.GetDuration("gateway.retry_delay"),
			RateLimit:     v.GetFloat64("gateway.rate_limit"),
			RateBurst:     v.GetInt("gateway.rate_burst"),
			TLSSkipVerify: v.GetBool("gateway.tls_skip_verify"),
		},
		Session: SessionConfig{
			Email:      v.GetString("session.email"),
			Password:   v.GetString("session.password"),
			CookieName: v.GetString("session.cookie_name"),
		},
		Refresh: RefreshConfig{
			InitialDelay: v.GetDuration("refresh.initial_delay"),
			PollInterval: v.GetDuration("refresh.poll_interval"),
			MaxAttempts:  v.GetInt("refresh.max_attempts"),
			SaleDelay:    v.GetDuration("refresh.sale_delay"),
			StockDelay:   v.GetDuration("refresh.stock_delay"),
		},
		Notice: NoticeConfig{
			TTL: v.GetDuration("notice.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Printing: PrintingConfig{
			ChromeRemoteURL: v.GetString("printing.chrome_remote_url"),
			Timeout:         v.GetDuration("printing.timeout"),
			NoSandbox:       v.GetBool("printing.no_sandbox"),
			OutputDir:       v.GetString("printing.output_dir"),
			Currency:        v.GetString("printing.currency"),
		},
		Storage: StorageConfig{
			Enabled:        v.GetBool("storage.enabled"),
			Endpoint:       v.GetString("storage.endpoint"),
			Bucket:         v.GetString("storage.bucket"),
			Region:         v.GetString("storage.region"),
			AccessKey:      v.GetString("storage.access_key"),
			SecretKey:      v.GetString("storage.secret_key"),
			UsePathStyle:   v.GetBool("storage.use_path_style"),
			PresignExpires: v.GetDuration("storage.presign_expires"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ims-dashboard"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.ListenAddr == "" {
		cfg.App.ListenAddr = "127.0.0.1:8090"
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "http://localhost:8000"
	}
	if cfg.Gateway.APIPrefix == "" {
		cfg.Gateway.APIPrefix = "/api/v1"
	}
	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = 30 * time.Second
	}
	if cfg.Gateway.MaxRetries == 0 {
		cfg.Gateway.MaxRetries = 2
	}
	if cfg.Gateway.RetryDelay == 0 {
		cfg.Gateway.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Gateway.RateLimit == 0 {
		cfg.Gateway.RateLimit = 10
	}
	if cfg.Gateway.RateBurst == 0 {
		cfg.Gateway.RateBurst = 5
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "token"
	}
	if cfg.Refresh.InitialDelay == 0 {
		cfg.Refresh.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Refresh.PollInterval == 0 {
		cfg.Refresh.PollInterval = 500 * time.Millisecond
	}
	if cfg.Refresh.MaxAttempts == 0 {
		cfg.Refresh.MaxAttempts = 5
	}
	if cfg.Refresh.SaleDelay == 0 {
		cfg.Refresh.SaleDelay = time.Second
	}
	if cfg.Refresh.StockDelay == 0 {
		cfg.Refresh.StockDelay = 500 * time.Millisecond
	}
	if cfg.Notice.TTL == 0 {
		cfg.Notice.TTL = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 5 * time.Minute
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 60 * time.Second
	}
	if cfg.Printing.OutputDir == "" {
		cfg.Printing.OutputDir = "./reports"
	}
	if cfg.Printing.Currency == "" {
		cfg.Printing.Currency = "RWF"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpires == 0 {
		cfg.Storage.PresignExpires = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.Gateway.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateway.base_url must be an absolute URL, got %q", c.Gateway.BaseURL)
	}
	if !strings.HasPrefix(c.Gateway.APIPrefix, "/") {
		return fmt.Errorf("gateway.api_prefix must start with '/'")
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("gateway.max_retries cannot be negative")
	}
	if c.Refresh.MaxAttempts < 1 {
		return fmt.Errorf("refresh.max_attempts must be at least 1")
	}

	if c.App.Env == "production" {
		if u.Scheme != "https" {
			return fmt.Errorf("gateway.base_url must use https in production")
		}
		if c.Gateway.TLSSkipVerify {
			return fmt.Errorf("gateway.tls_skip_verify must be false in production")
		}
		if c.Session.Password == "" {
			return fmt.Errorf("session.password is required in production")
		}
		for _, origin := range c.App.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("app.cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// APIBase returns the base URL joined with the API prefix
func (g GatewayConfig) APIBase() string {
	return strings.TrimRight(g.BaseURL, "/") + g.APIPrefix
}

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"dispute-analytics/internal/logging"
	"dispute-analytics/internal/version"
)

// Config materialises application configuration.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Logging       logging.Config          `mapstructure:"logging"`
	Upstream      UpstreamConfig          `mapstructure:"upstream"`
	DefaultTenant string                  `mapstructure:"default_tenant"`
	Tenants       map[string]TenantConfig `mapstructure:"tenants"`
	Rates         RatesConfig             `mapstructure:"rates"`
	Analytics     AnalyticsConfig         `mapstructure:"analytics"`
	Persistence   PersistenceConfig       `mapstructure:"persistence"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Scheduler     SchedulerConfig         `mapstructure:"scheduler"`
	Alerting      AlertingConfig          `mapstructure:"alerting"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Export        ExportConfig            `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// UpstreamConfig governs how the commerce API is paged and retried.
type UpstreamConfig struct {
	APIVersion     string        `mapstructure:"api_version"`
	AuthHeader     string        `mapstructure:"auth_header"`
	PageLimit      int           `mapstructure:"page_limit"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	BackoffUnit    time.Duration `mapstructure:"backoff_unit"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// TenantConfig identifies one merchant's store and credentials.
type TenantConfig struct {
	ShopDomain  string `mapstructure:"shop_domain"`
	BaseURL     string `mapstructure:"base_url"`
	AccessToken string `mapstructure:"access_token"`
}

// ResolveBaseURL prefers an explicit base URL over the shop domain.
func (t TenantConfig) ResolveBaseURL() string {
	if t.BaseURL != "" {
		return strings.TrimRight(t.BaseURL, "/")
	}
	domain := strings.TrimSpace(t.ShopDomain)
	if domain == "" {
		return ""
	}
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return strings.TrimRight(domain, "/")
	}
	return "https://" + strings.TrimRight(domain, "/")
}

// RatesConfig captures exchange-rate connectivity.
type RatesConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ReportingCurrency string        `mapstructure:"reporting_currency"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

// AnalyticsConfig tunes the assembled payload.
type AnalyticsConfig struct {
	MinutesSavedPerDispute int `mapstructure:"minutes_saved_per_dispute"`
	CountryLimit           int `mapstructure:"country_limit"`
	RepeatDisputerLimit    int `mapstructure:"repeat_disputer_limit"`
}

// PersistenceConfig selects where dispute copies are written.
type PersistenceConfig struct {
	Driver    string `mapstructure:"driver"`
	BoltPath  string `mapstructure:"bolt_path"`
	QueueSize int    `mapstructure:"queue_size"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs sync cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
}

// AlertingConfig defines health alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Cooldown time.Duration  `mapstructure:"cooldown"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// HTTPConfig configures the dashboard-facing API.
type HTTPConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ExportConfig sets default export targets and chart size.
type ExportConfig struct {
	CSVPath     string `mapstructure:"csv_path"`
	PNGPath     string `mapstructure:"png_path"`
	ChartWidth  int    `mapstructure:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height"`
}

// Persistence drivers.
const (
	DriverNone     = "none"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("DISPUTEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "disputewatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 14)

	v.SetDefault("upstream.api_version", "2024-07")
	v.SetDefault("upstream.auth_header", "X-Shopify-Access-Token")
	v.SetDefault("upstream.page_limit", 250)
	v.SetDefault("upstream.page_delay", "1200ms")
	v.SetDefault("upstream.backoff_unit", "1200ms")
	v.SetDefault("upstream.max_attempts", 5)
	v.SetDefault("upstream.request_timeout", "30s")
	v.SetDefault("upstream.user_agent", version.UserAgent())

	v.SetDefault("default_tenant", "default")

	v.SetDefault("rates.base_url", "https://open.er-api.com/v6/latest")
	v.SetDefault("rates.reporting_currency", "USD")
	v.SetDefault("rates.request_timeout", "10s")

	v.SetDefault("analytics.minutes_saved_per_dispute", 45)
	v.SetDefault("analytics.country_limit", 10)
	v.SetDefault("analytics.repeat_disputer_limit", 5)

	v.SetDefault("persistence.driver", DriverNone)
	v.SetDefault("persistence.bolt_path", "disputes.db")
	v.SetDefault("persistence.queue_size", 64)

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x64737075))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.run_on_start", true)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "24h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "5m")

	v.SetDefault("export.chart_width", 1280)
	v.SetDefault("export.chart_height", 720)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Upstream.PageLimit <= 0 || c.Upstream.PageLimit > 250 {
		return fmt.Errorf("upstream.page_limit must be between 1 and 250")
	}
	if c.Upstream.PageDelay < 0 {
		return fmt.Errorf("upstream.page_delay cannot be negative")
	}
	if c.Upstream.MaxAttempts <= 0 {
		return fmt.Errorf("upstream.max_attempts must be greater than zero")
	}
	if c.Upstream.RequestTimeout <= 0 {
		return fmt.Errorf("upstream.request_timeout must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	for id, tenant := range c.Tenants {
		if tenant.ResolveBaseURL() == "" {
			return fmt.Errorf("tenants.%s: shop_domain or base_url must be set", id)
		}
	}
	switch c.Persistence.Driver {
	case DriverNone, "":
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("persistence.driver=postgres requires database.dsn")
		}
	case DriverBolt:
		if c.Persistence.BoltPath == "" {
			return fmt.Errorf("persistence.driver=bolt requires persistence.bolt_path")
		}
	default:
		return fmt.Errorf("persistence.driver %q is not supported", c.Persistence.Driver)
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}

// TenantIDs lists configured tenants in stable order.
func (c *Config) TenantIDs() []string {
	ids := make([]string, 0, len(c.Tenants))
	for id := range c.Tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveTenant returns the requested tenant id, or the default when empty.
func (c *Config) ResolveTenant(id string) string {
	if id != "" {
		return id
	}
	return c.DefaultTenant
}

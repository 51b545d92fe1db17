package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-flow/internal/domain"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int      `mapstructure:"idle_timeout"`  // in seconds
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

// StoreConfig selects the repository backend
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory or postgres
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// EthereumConfig holds the chain node configuration
type EthereumConfig struct {
	WebSocketURL string       `mapstructure:"websocket_url"`
	ChainID      domain.Chain `mapstructure:"chain_id"`
}

// WatcherConfig holds resubscription tuning for the chain watcher
type WatcherConfig struct {
	ResubscribeInitialInterval time.Duration `mapstructure:"resubscribe_initial_interval"`
	ResubscribeMaxInterval     time.Duration `mapstructure:"resubscribe_max_interval"`
}

// PriceFeedConfig holds market data configuration
type PriceFeedConfig struct {
	BaseURL     string            `mapstructure:"base_url"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Symbols     map[string]string `mapstructure:"symbols"` // generic symbol -> feed symbol
	Concurrency int               `mapstructure:"concurrency"`
}

// PortfolioAlertSweeperConfig holds the evaluation schedule
type PortfolioAlertSweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// NotifierConfig holds channel transport configuration
type NotifierConfig struct {
	Timeout               time.Duration `mapstructure:"timeout"`
	AllowInsecureWebhooks bool          `mapstructure:"allow_insecure_webhooks"`
	WebhookSigningSecret  string        `mapstructure:"webhook_signing_secret"`
}

// SMTPConfig holds the email relay configuration
type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	From        string `mapstructure:"from"`
	FromName    string `mapstructure:"from_name"`
	UseTLS      bool   `mapstructure:"use_tls"`
	UseStartTLS bool   `mapstructure:"use_starttls"`
}

// Enabled reports whether an email relay is configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// NATSConfig holds NATS JetStream configuration for live-update fan-out
type NATSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// BillingConfig holds the plan payment settings. Billing is off without a payment address.
type BillingConfig struct {
	PaymentAddress string            `mapstructure:"payment_address"`
	Prices         map[string]string `mapstructure:"prices"` // plan -> price in ETH
}

// PlanPrices parses the configured ETH prices
func (c BillingConfig) PlanPrices() (map[domain.Plan]decimal.Decimal, error) {
	prices := make(map[domain.Plan]decimal.Decimal, len(c.Prices))
	for plan, raw := range c.Prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid billing price for plan %q: %w", plan, err)
		}
		prices[domain.Plan(plan)] = price
	}
	return prices, nil
}

// HoldingConfig seeds one portfolio position
type HoldingConfig struct {
	Symbol string `mapstructure:"symbol"`
	Amount string `mapstructure:"amount"`
}

// FlowEngineConfig holds configuration for flow-engine
type FlowEngineConfig struct {
	BaseConfig            `mapstructure:",squash"`
	Server                ServerConfig                `mapstructure:"server"`
	Store                 StoreConfig                 `mapstructure:"store"`
	Database              DatabaseConfig              `mapstructure:"database"`
	Ethereum              EthereumConfig              `mapstructure:"ethereum"`
	Watcher               WatcherConfig               `mapstructure:"watcher"`
	PriceFeed             PriceFeedConfig             `mapstructure:"price_feed"`
	PortfolioAlertSweeper PortfolioAlertSweeperConfig `mapstructure:"portfolio_alert_sweeper"`
	Notifier              NotifierConfig              `mapstructure:"notifier"`
	SMTP                  SMTPConfig                  `mapstructure:"smtp"`
	NATS                  NATSConfig                  `mapstructure:"nats"`
	Billing               BillingConfig               `mapstructure:"billing"`
	Holdings              []HoldingConfig             `mapstructure:"holdings"`
}

// LoadFlowEngineConfig loads configuration for flow-engine
func LoadFlowEngineConfig(configFile string, envPath string) (*FlowEngineConfig, error) {
	v := configureViper("flow-engine", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("store.driver", StoreDriverMemory)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("ethereum.chain_id", string(domain.ChainEthereumMainnet))
	v.SetDefault("watcher.resubscribe_initial_interval", "1s")
	v.SetDefault("watcher.resubscribe_max_interval", "30s")
	v.SetDefault("price_feed.base_url", "https://api.binance.com")
	v.SetDefault("price_feed.timeout", "10s")
	v.SetDefault("price_feed.concurrency", 4)
	v.SetDefault("price_feed.symbols", map[string]string{
		"ETH":  "ETHUSDT",
		"BTC":  "BTCUSDT",
		"PEPE": "PEPEUSDT",
		"LINK": "LINKUSDT",
	})
	v.SetDefault("portfolio_alert_sweeper.interval", "60s")
	v.SetDefault("notifier.timeout", "10s")
	v.SetDefault("smtp.host", "smtp.sendgrid.net")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "apikey")
	v.SetDefault("smtp.use_starttls", true)
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "FLOW_EVENTS")
	v.SetDefault("nats.connection_name", "flow-engine")
	v.SetDefault("billing.prices", map[string]string{
		string(domain.PlanMonthly):   "0.1",
		string(domain.PlanBimonthly): "0.18",
	})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var cfg FlowEngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the required fields
func (c *FlowEngineConfig) Validate() error {
	if c.Ethereum.WebSocketURL == "" {
		return errors.New("ethereum.websocket_url is required")
	}
	if !domain.IsValidChain(c.Ethereum.ChainID) {
		return fmt.Errorf("unsupported ethereum.chain_id %q", c.Ethereum.ChainID)
	}
	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Database.Host == "" {
			return errors.New("database.host is required")
		}
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.PortfolioAlertSweeper.Interval <= 0 {
		return errors.New("portfolio_alert_sweeper.interval must be positive")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	if _, err := c.Billing.PlanPrices(); err != nil {
		return err
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("FF_FLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit binding is needed so Unmarshal sees env-only keys
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.cors_origins",
		// Store
		"store.driver",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Ethereum
		"ethereum.websocket_url",
		"ethereum.chain_id",
		"watcher.resubscribe_initial_interval",
		"watcher.resubscribe_max_interval",
		// Price feed
		"price_feed.base_url",
		"price_feed.timeout",
		"price_feed.concurrency",
		// Sweeper
		"portfolio_alert_sweeper.interval",
		// Notifier
		"notifier.timeout",
		"notifier.allow_insecure_webhooks",
		"notifier.webhook_signing_secret",
		// SMTP
		"smtp.host",
		"smtp.port",
		"smtp.username",
		"smtp.password",
		"smtp.from",
		"smtp.from_name",
		"smtp.use_tls",
		"smtp.use_starttls",
		// NATS
		"nats.enabled",
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Billing
		"billing.payment_address",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files win
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerTimeouts converts the second based server timeouts into durations
func (c ServerConfig) ServerTimeouts() (read, write, idle time.Duration) {
	return time.Duration(c.ReadTimeout) * time.Second,
		time.Duration(c.WriteTimeout) * time.Second,
		time.Duration(c.IdleTimeout) * time.Second
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "PAYMENTS"

type Config struct {
	HTTP        HTTPConfig     `mapstructure:"http"`
	Store       StoreConfig    `mapstructure:"store"`
	Provider    ProviderConfig `mapstructure:"provider"`
	Outbox      OutboxConfig   `mapstructure:"outbox"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	SystemActor string         `mapstructure:"system_actor"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Requests per second allowed per client IP; zero disables limiting.
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateBurst       int     `mapstructure:"rate_burst"`
	MetricsEnabled  bool    `mapstructure:"metrics_enabled"`
	MaxWebhookBytes int64   `mapstructure:"max_webhook_bytes"`
}

type StoreConfig struct {
	// Driver is sqlite or memory.
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type ProviderConfig struct {
	// Name is stripe or sandbox.
	Name    string        `mapstructure:"name"`
	Timeout time.Duration `mapstructure:"timeout"`
	Stripe  StripeConfig  `mapstructure:"stripe"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
}

type StripeConfig struct {
	SecretKey        string `mapstructure:"secret_key"`
	WebhookSecret    string `mapstructure:"webhook_secret"`
	MandateIPAddress string `mapstructure:"mandate_ip_address"`
	MandateUserAgent string `mapstructure:"mandate_user_agent"`
}

type SandboxConfig struct {
	SuccessRate float64       `mapstructure:"success_rate"`
	Latency     time.Duration `mapstructure:"latency"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	BackoffMax   time.Duration `mapstructure:"backoff_max"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.rate_limit", 0)
	v.SetDefault("http.rate_burst", 20)
	v.SetDefault("http.metrics_enabled", true)
	v.SetDefault("http.max_webhook_bytes", 1<<16)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "payments.db")

	v.SetDefault("provider.name", "sandbox")
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.stripe.secret_key", "")
	v.SetDefault("provider.stripe.webhook_secret", "")
	v.SetDefault("provider.stripe.mandate_ip_address", "127.0.0.1")
	v.SetDefault("provider.stripe.mandate_user_agent", "payment-orchestrator/1.0")
	v.SetDefault("provider.sandbox.success_rate", 0.7)
	v.SetDefault("provider.sandbox.latency", 0)

	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.backoff_base", time.Second)
	v.SetDefault("outbox.backoff_max", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("system_actor", "SYSTEM")
}

// Load reads defaults, then the optional YAML file at path, then PAYMENTS_*
// environment variables (PAYMENTS_PROVIDER_STRIPE_SECRET_KEY and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Provider.Name {
	case "stripe":
		if !strings.HasPrefix(c.Provider.Stripe.SecretKey, "sk_") {
			errs = append(errs, errors.New("provider.stripe.secret_key must start with sk_"))
		}
	case "sandbox":
		if r := c.Provider.Sandbox.SuccessRate; r < 0 || r > 1 {
			errs = append(errs, fmt.Errorf("provider.sandbox.success_rate %v is outside [0,1]", r))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider.name %q", c.Provider.Name))
	}

	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider.timeout must be positive"))
	}
	if c.Outbox.PollInterval <= 0 {
		errs = append(errs, errors.New("outbox.poll_interval must be positive"))
	}
	if c.Outbox.BatchSize <= 0 {
		errs = append(errs, errors.New("outbox.batch_size must be positive"))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate_limit must not be negative"))
	}
	if strings.TrimSpace(c.SystemActor) == "" {
		errs = append(errs, errors.New("system_actor is required"))
	}

	return errors.Join(errs...)
}

package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Session  SessionConfig  `mapstructure:"session"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
	// Production forces Secure cookies.
	Production     bool     `mapstructure:"production"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type BackendConfig struct {
	CartURL     string        `mapstructure:"cart_url"`
	CheckoutURL string        `mapstructure:"checkout_url"`
	Channel     string        `mapstructure:"channel"`
	Currency    string        `mapstructure:"currency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	CartIDCookie  string `mapstructure:"cart_id_cookie"`
	AccessCookie  string `mapstructure:"access_cookie"`
	RefreshCookie string `mapstructure:"refresh_cookie"`
	MaxAge        int    `mapstructure:"max_age"`
	// ClientCookie holds the browser nonce; empty turns off creation collapsing.
	ClientCookie string `mapstructure:"client_cookie"`
	ClientMaxAge int    `mapstructure:"client_max_age"`
}

type CheckoutConfig struct {
	DebounceMS     int           `mapstructure:"debounce_ms"`
	PickupCacheTTL time.Duration `mapstructure:"pickup_cache_ttl"`
	IdleTTL        time.Duration `mapstructure:"idle_ttl"`
}

func (c CheckoutConfig) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

type DatabaseConfig struct {
	// Empty disables the completion ledger.
	PostgresURL string `mapstructure:"postgres_url"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	// Empty logs events instead of publishing them.
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.production", false)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("backend.cart_url", "http://localhost:9000/api")
	v.SetDefault("backend.checkout_url", "http://localhost:9000/api")
	v.SetDefault("backend.channel", "web")
	v.SetDefault("backend.currency", "USD")
	v.SetDefault("backend.timeout", 15*time.Second)

	v.SetDefault("session.cart_id_cookie", "cart_id")
	v.SetDefault("session.access_cookie", "cart_token")
	v.SetDefault("session.refresh_cookie", "cart_refresh_token")
	v.SetDefault("session.max_age", 60*60*24*30)
	v.SetDefault("session.client_cookie", "cart_client")
	v.SetDefault("session.client_max_age", 60*60)

	v.SetDefault("checkout.debounce_ms", 450)
	v.SetDefault("checkout.pickup_cache_ttl", 60*time.Second)
	v.SetDefault("checkout.idle_ttl", 30*time.Minute)

	v.SetDefault("database.postgres_url", "")

	v.SetDefault("redis.url", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "storefront-events")

	v.SetDefault("jwt.secret", "your-secret-key")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads configFile when given, then STOREFRONT_* environment
// variables (STOREFRONT_BACKEND_CART_URL for backend.cart_url).
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Backend.CartURL == "" {
		return errors.New("backend.cart_url is required")
	}
	if c.Backend.CheckoutURL == "" {
		c.Backend.CheckoutURL = c.Backend.CartURL
	}
	if c.Checkout.DebounceMS <= 0 {
		return fmt.Errorf("checkout.debounce_ms must be positive, got %d", c.Checkout.DebounceMS)
	}
	if c.Session.CartIDCookie == "" || c.Session.AccessCookie == "" || c.Session.RefreshCookie == "" {
		return errors.New("session cookie names must not be empty")
	}
	if c.Server.Production && c.JWT.SecretKey == "your-secret-key" {
		return errors.New("jwt.secret must be set in production")
	}
	return nil
}

// SecureCookies reports whether session cookies carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return c.Server.Production || c.Server.Mode == "release"
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	LocalStoreMemory = "memory"
	LocalStoreRedis  = "redis"
	LocalStoreSQLite = "sqlite"
)

type Config struct {
	App        AppConfig
	Backend    BackendConfig
	LocalStore LocalStoreConfig
	Pricing    PricingConfig
	Search     SearchConfig
	Catalog    CatalogConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.LocalStore.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the configured CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	parts := strings.Split(a.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// BackendConfig points at the remote storefront API that owns the
// authoritative cart, wishlist, catalog and orders.
type BackendConfig struct {
	BaseURL   string        `envconfig:"STOREFRONT_BACKEND_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"STOREFRONT_BACKEND_USER_AGENT" default:"storefront-client/1.0"`
	Debug     bool          `envconfig:"STOREFRONT_BACKEND_DEBUG" default:"false"`
}

// LocalStoreConfig selects the durable key-value backend that stands in for
// the browser's localStorage: cart, uncheckedCartItems and wishlist live here.
type LocalStoreConfig struct {
	Backend   string `envconfig:"STOREFRONT_LOCALSTORE_BACKEND" default:"sqlite"`
	Namespace string `envconfig:"STOREFRONT_LOCALSTORE_NAMESPACE" default:"sf"`

	SQLitePath string `envconfig:"STOREFRONT_LOCALSTORE_SQLITE_PATH" default:"storefront.db"`

	RedisURL          string        `envconfig:"STOREFRONT_LOCALSTORE_REDIS_URL"`
	RedisAddr         string        `envconfig:"STOREFRONT_LOCALSTORE_REDIS_ADDR"`
	RedisPassword     string        `envconfig:"STOREFRONT_LOCALSTORE_REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"STOREFRONT_LOCALSTORE_REDIS_DB" default:"0"`
	RedisDialTimeout  time.Duration `envconfig:"STOREFRONT_LOCALSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	RedisReadTimeout  time.Duration `envconfig:"STOREFRONT_LOCALSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	RedisWriteTimeout time.Duration `envconfig:"STOREFRONT_LOCALSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (c LocalStoreConfig) validate() error {
	switch c.Backend {
	case LocalStoreMemory, LocalStoreSQLite:
		return nil
	case LocalStoreRedis:
		if c.RedisURL == "" && c.RedisAddr == "" {
			return fmt.Errorf("redis local store requires STOREFRONT_LOCALSTORE_REDIS_URL or _ADDR")
		}
		return nil
	default:
		return fmt.Errorf("unknown local store backend %q", c.Backend)
	}
}

// PricingConfig carries the deployment pricing policy. FlatDiscountPercent
// greater than zero switches the discount computation from the per-line
// method to a flat percentage of the original total.
type PricingConfig struct {
	PlatformFee         decimal.Decimal `envconfig:"STOREFRONT_PRICING_PLATFORM_FEE" default:"23"`
	FlatDiscountPercent decimal.Decimal `envconfig:"STOREFRONT_PRICING_FLAT_DISCOUNT_PERCENT" default:"0"`
}

type SearchConfig struct {
	SuggestLimit  int           `envconfig:"STOREFRONT_SEARCH_SUGGEST_LIMIT" default:"5"`
	DefaultLimit  int           `envconfig:"STOREFRONT_SEARCH_DEFAULT_LIMIT" default:"100"`
	DebounceDelay time.Duration `envconfig:"STOREFRONT_SEARCH_DEBOUNCE_DELAY" default:"300ms"`
}

// CatalogConfig controls placeholder image assignment: product id cycles
// through ImageCount images rendered from ImagePattern.
type CatalogConfig struct {
	ImageCount   int    `envconfig:"STOREFRONT_CATALOG_IMAGE_COUNT" default:"20"`
	ImagePattern string `envconfig:"STOREFRONT_CATALOG_IMAGE_PATTERN" default:"/bangle-%d.jpg"`
}

package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_BACKEND_BASE_URL", "http://localhost:9000/api")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, LocalStoreSQLite, cfg.LocalStore.Backend)
	assert.Equal(t, "storefront.db", cfg.LocalStore.SQLitePath)
	assert.True(t, cfg.Pricing.PlatformFee.Equal(decimal.NewFromInt(23)))
	assert.True(t, cfg.Pricing.FlatDiscountPercent.IsZero())
	assert.Equal(t, 5, cfg.Search.SuggestLimit)
	assert.Equal(t, 20, cfg.Catalog.ImageCount)
}

func TestLoadRequiresBackendURL(t *testing.T) {
	t.Setenv("STOREFRONT_BACKEND_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRedisBackendNeedsAddress(t *testing.T) {
	t.Setenv("STOREFRONT_BACKEND_BASE_URL", "http://localhost:9000/api")
	t.Setenv("STOREFRONT_LOCALSTORE_BACKEND", "redis")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("STOREFRONT_LOCALSTORE_REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LocalStoreRedis, cfg.LocalStore.Backend)
}

func TestLoadRejectsUnknownLocalStore(t *testing.T) {
	t.Setenv("STOREFRONT_BACKEND_BASE_URL", "http://localhost:9000/api")
	t.Setenv("STOREFRONT_LOCALSTORE_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	t.Parallel()

	app := AppConfig{CORSOrigins: "http://localhost:3000, http://localhost:5173"}
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, app.AllowedOrigins())

	empty := AppConfig{CORSOrigins: " , "}
	assert.Equal(t, []string{"*"}, empty.AllowedOrigins())
}

func TestFlatDiscountPolicyParsing(t *testing.T) {
	t.Setenv("STOREFRONT_BACKEND_BASE_URL", "http://localhost:9000/api")
	t.Setenv("STOREFRONT_PRICING_FLAT_DISCOUNT_PERCENT", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Pricing.FlatDiscountPercent.Equal(decimal.NewFromInt(10)))
}

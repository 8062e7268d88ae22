// Package localstore is the durable client-side key-value cache standing in
// for the browser's localStorage: it persists the cart, the soft-deselected
// line set and the wishlist across restarts. Values are opaque byte slices;
// consumers store JSON arrays under fixed keys.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akenterprises/storefront/pkg/config"
	"github.com/akenterprises/storefront/pkg/logger"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("localstore: key not found")

// Store is the persistence surface the sync engines depend on.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg config.LocalStoreConfig, logg *logger.Logger) (Store, error) {
	switch cfg.Backend {
	case config.LocalStoreMemory:
		return NewMemory(), nil
	case config.LocalStoreRedis:
		return OpenRedis(ctx, cfg)
	case config.LocalStoreSQLite:
		return OpenSQLite(cfg)
	default:
		return nil, fmt.Errorf("unknown local store backend %q", cfg.Backend)
	}
}

// GetJSON loads and decodes the value at key into dest. A missing key and a
// corrupt value both report found=false with dest untouched: corrupt
// persisted state self-heals to empty rather than propagating an error.
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("localstore get %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and writes it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstore encode %q: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("localstore set %q: %w", key, err)
	}
	return nil
}

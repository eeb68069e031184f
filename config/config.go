// Package config holds process-wide configuration, populated once at startup
// from environment variables (prefix CHARTCACHE_) and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration is the process-wide settings block.
type Configuration struct {
	// CacheDir is where the local store keeps its data.
	CacheDir string

	// StoreBackend selects the kv implementation: "bolt" or "file".
	StoreBackend string

	// MinCacheBytes/MaxCacheBytes bound the serialized sizes worth caching.
	MinCacheBytes int64
	MaxCacheBytes int64

	// MaxStoreBytes caps the file backend's total payload size. 0 means no
	// quota.
	MaxStoreBytes int64

	// BackendURL is the base URL of the chart data endpoint used on cache
	// miss.
	BackendURL string

	// RequestTimeout bounds each backend round-trip.
	RequestTimeout time.Duration
}

// Config is the global configuration, valid after InitConfig.
var Config Configuration

// InitConfig populates Config from the environment and, when path is
// non-empty, a YAML config file. File values lose to environment values.
func InitConfig(path string) error {
	v := viper.New()
	v.SetEnvPrefix("CHARTCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cache_dir", "./cache")
	v.SetDefault("store_backend", "bolt")
	v.SetDefault("min_cache_bytes", 512*1024)
	v.SetDefault("max_cache_bytes", 5*1024*1024)
	v.SetDefault("max_store_bytes", 0)
	v.SetDefault("backend_url", "http://localhost:8080")
	v.SetDefault("request_timeout", "30s")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	Config = Configuration{
		CacheDir:       v.GetString("cache_dir"),
		StoreBackend:   v.GetString("store_backend"),
		MinCacheBytes:  v.GetInt64("min_cache_bytes"),
		MaxCacheBytes:  v.GetInt64("max_cache_bytes"),
		MaxStoreBytes:  v.GetInt64("max_store_bytes"),
		BackendURL:     v.GetString("backend_url"),
		RequestTimeout: v.GetDuration("request_timeout"),
	}

	switch Config.StoreBackend {
	case "bolt", "file":
	default:
		return fmt.Errorf("unknown store backend %q", Config.StoreBackend)
	}
	return nil
}

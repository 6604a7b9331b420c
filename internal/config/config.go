package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string
	RPCSocket string

	StoreURL string
	StoreKey string
	DBPath   string
}

// Load reads .env when present, then the environment. Missing store and
// notify settings are not errors; they gate those clients into no-op
// behavior, resolved once here rather than checked per call.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Addr:      envOr("BMITRACK_ADDR", ":8080"),
		RPCSocket: envOr("BMITRACK_RPC_SOCKET", "/tmp/bmitrack.sock"),
		StoreURL:  os.Getenv("BMITRACK_STORE_URL"),
		StoreKey:  os.Getenv("BMITRACK_STORE_KEY"),
		DBPath:    os.Getenv("BMITRACK_DB_PATH"),
	}
	return cfg, nil
}

// RemoteStoreEnabled reports whether the hosted row store and function
// dispatch are configured. Both the URL and the access key are required.
func (c *Config) RemoteStoreEnabled() bool {
	return c.StoreURL != "" && c.StoreKey != ""
}

// LocalStoreEnabled reports whether the sqlite fallback store is
// configured. The remote store wins when both are present.
func (c *Config) LocalStoreEnabled() bool {
	return c.DBPath != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import "time"

// Config holds runtime settings for the tracker CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the companion API (e.g. "http://127.0.0.1:8080").
//   - DatabaseDSN: path/DSN of the local SQLite database.
//   - Language: catalog content language.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - AutoSyncInterval: how often a periodic queue drain runs; 0 disables it.
//   - MaxRetryAttempts: per-item replay attempt cap; 0 means retry forever.
//   - RetryBackoff: initial backoff between remote push retries inside one
//     drain; 0 disables in-drain retries (failed items just wait for the
//     next drain trigger).
type Config struct {
	ServerEndpointAddr  string
	DatabaseDSN         string
	Language            string
	OnlineCheckInterval time.Duration
	AutoSyncInterval    time.Duration
	MaxRetryAttempts    int
	RetryBackoff        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "sciencehabits.db"
	c.Language = "en"
	c.OnlineCheckInterval = 3 * time.Second
	c.AutoSyncInterval = 0
	c.MaxRetryAttempts = 0
	c.RetryBackoff = 0
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/flagx"
	"github.com/sciencehabits/sciencehabits/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	Language            string         `json:"language"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	AutoSyncInterval    timex.Duration `json:"auto_sync_interval"`
	MaxRetryAttempts    int            `json:"max_retry_attempts"`
	RetryBackoff        timex.Duration `json:"retry_backoff"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. When no file is named, cfg is left untouched. Read or
// unmarshal errors panic; configuration is resolved before any services
// start, so failing loudly is preferable to running half-configured.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.Language != "" {
		cfg.Language = jc.Language
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.AutoSyncInterval.Duration != 0 {
		cfg.AutoSyncInterval = time.Duration(jc.AutoSyncInterval.Duration)
	}
	if jc.MaxRetryAttempts != 0 {
		cfg.MaxRetryAttempts = jc.MaxRetryAttempts
	}
	if jc.RetryBackoff.Duration != 0 {
		cfg.RetryBackoff = time.Duration(jc.RetryBackoff.Duration)
	}
}

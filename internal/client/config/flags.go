package config

import (
	"flag"
	"os"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   companion API base URL
//	-d string   local SQLite DSN/path
//	-l string   catalog content language
//	-i int      online check interval, seconds
//	-s int      auto-sync interval, seconds (0 disables)
//	-m int      max replay attempts per queue item (0 = unlimited)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with flags owned by other packages.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-l", "-i", "-s", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerEndpointAddr, "a", config.ServerEndpointAddr, "companion API base URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "local database DSN")
	fs.StringVar(&config.Language, "l", config.Language, "content language")

	onlineCheckInterval := fs.Int("i", int(config.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	autoSyncInterval := fs.Int("s", int(config.AutoSyncInterval.Seconds()), "auto-sync interval (in seconds, 0 disables)")
	fs.IntVar(&config.MaxRetryAttempts, "m", config.MaxRetryAttempts, "max replay attempts per queue item (0 = unlimited)")

	if err := fs.Parse(args); err != nil {
		return
	}

	config.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	config.AutoSyncInterval = time.Duration(*autoSyncInterval) * time.Second
}

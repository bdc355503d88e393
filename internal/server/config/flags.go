package config

import (
	"flag"
	"os"

	"github.com/sciencehabits/sciencehabits/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address
//	-d string   PostgreSQL DSN
//	-k string   JWT secret key
//	-x string   admin API key
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with flags owned by other packages.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "HTTP bind address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "PostgreSQL DSN")
	fs.StringVar(&config.SecretKey, "k", config.SecretKey, "JWT secret key")
	fs.StringVar(&config.AdminAPIKey, "x", config.AdminAPIKey, "admin API key")

	if err := fs.Parse(args); err != nil {
		return
	}
}

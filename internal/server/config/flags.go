package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/userhub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC health bind address, "" disables
//	-k string   database dialect: sqlite or postgres
//	-d string   database DSN
//	-t int      cache TTL, seconds
//	-v bool     debug mode
//	-q string   AMQP URL
//	-o string   OTLP collector endpoint
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-k", "-d", "-t", "-v", "-q", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run HTTP server")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "address and port of gRPC health service")
	fs.StringVar(&config.DatabaseDialect, "k", config.DatabaseDialect, "database dialect (sqlite|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	cacheTTL := fs.Int("t", int(config.CacheTTL.Seconds()), "cache TTL (in seconds)")
	fs.BoolVar(&config.DebugMode, "v", config.DebugMode, "debug mode")
	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP URL for lifecycle events")
	fs.StringVar(&config.OTLPEndpoint, "o", config.OTLPEndpoint, "OTLP gRPC collector endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("error parsing flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.CacheTTL = time.Duration(*cacheTTL) * time.Second
		}
	})
	return nil
}

// Package config handles configuration for the server component: defaults,
// a dotenv file, environment variables, a JSON overlay and command-line
// flags, applied in that order.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds runtime settings for the userhub server.
//
// Fields:
//   - AppName / APIVersion: reported by the status endpoint and tracing.
//   - HTTPAddr: bind address for the REST API.
//   - GRPCHealthAddr: bind address for the gRPC health service; empty disables it.
//   - Database*: dialect (sqlite or postgres) and connection parts. DatabaseDSN,
//     when set, is used verbatim instead of the composed DSN.
//   - DebugMode: debug logging and SQL statement echo.
//   - CacheTTL: lifetime of cached read responses.
//   - AMQPURL / AMQPExchange: lifecycle event publishing; empty URL disables it.
//   - OTLPEndpoint: OTLP/gRPC trace collector; empty disables tracing.
type Config struct {
	AppName          string        `envconfig:"APP_NAME"`
	APIVersion       string        `envconfig:"API_VERSION"`
	HTTPAddr         string        `envconfig:"HTTP_ADDR"`
	GRPCHealthAddr   string        `envconfig:"GRPC_HEALTH_ADDR"`
	DatabaseDialect  string        `envconfig:"DATABASE_DIALECT"`
	DatabaseHostname string        `envconfig:"DATABASE_HOSTNAME"`
	DatabasePort     int           `envconfig:"DATABASE_PORT"`
	DatabaseName     string        `envconfig:"DATABASE_NAME"`
	DatabaseUsername string        `envconfig:"DATABASE_USERNAME"`
	DatabasePassword string        `envconfig:"DATABASE_PASSWORD"`
	DatabaseDSN      string        `envconfig:"DATABASE_DSN"`
	DebugMode        bool          `envconfig:"DEBUG_MODE"`
	CacheTTL         time.Duration `envconfig:"CACHE_TTL"`
	AMQPURL          string        `envconfig:"AMQP_URL"`
	AMQPExchange     string        `envconfig:"AMQP_EXCHANGE"`
	OTLPEndpoint     string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// LoadDefaults populates Config with development defaults: a local SQLite
// file and verbose logging.
func (c *Config) LoadDefaults() {
	c.AppName = "userhub"
	c.APIVersion = "0.1.0"
	c.HTTPAddr = ":8080"
	c.GRPCHealthAddr = ":50051"
	c.DatabaseDialect = DialectSQLite
	c.DatabaseHostname = "localhost"
	c.DatabasePort = 5432
	c.DatabaseName = "sql_app"
	c.DatabaseUsername = "admin"
	c.DatabasePassword = "admin"
	c.DatabaseDSN = ""
	c.DebugMode = true
	c.CacheTTL = 5 * time.Minute
	c.AMQPURL = ""
	c.AMQPExchange = "users"
	c.OTLPEndpoint = ""
}

// DSN returns the connection string for the configured dialect.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}

	switch c.DatabaseDialect {
	case DialectPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.DatabaseHostname, c.DatabasePort, c.DatabaseUsername, c.DatabasePassword, c.DatabaseName)
	default:
		name := c.DatabaseName
		if !strings.HasSuffix(name, ".db") {
			name += ".db"
		}
		return "./" + name
	}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the dotenv file, the environment, an optional JSON file and finally
// command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

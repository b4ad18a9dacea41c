package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/userhub/internal/flagx"
	"github.com/dmitrijs2005/userhub/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Pointer
// fields distinguish "absent" from zero values so that only the keys present
// in the file override earlier layers.
type JsonConfig struct {
	AppName          *string         `json:"app_name"`
	APIVersion       *string         `json:"api_version"`
	HTTPAddr         *string         `json:"http_addr"`
	GRPCHealthAddr   *string         `json:"grpc_health_addr"`
	DatabaseDialect  *string         `json:"database_dialect"`
	DatabaseHostname *string         `json:"database_hostname"`
	DatabasePort     *int            `json:"database_port"`
	DatabaseName     *string         `json:"database_name"`
	DatabaseUsername *string         `json:"database_username"`
	DatabasePassword *string         `json:"database_password"`
	DatabaseDSN      *string         `json:"database_dsn"`
	DebugMode        *bool           `json:"debug_mode"`
	CacheTTL         *timex.Duration `json:"cache_ttl"`
	AMQPURL          *string         `json:"amqp_url"`
	AMQPExchange     *string         `json:"amqp_exchange"`
	OTLPEndpoint     *string         `json:"otlp_endpoint"`
}

// parseJson overlays values from the file named by -c/-config. Nothing
// happens when the flag is absent.
func parseJson(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setIf(&config.AppName, c.AppName)
	setIf(&config.APIVersion, c.APIVersion)
	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setIf(&config.DatabaseDialect, c.DatabaseDialect)
	setIf(&config.DatabaseHostname, c.DatabaseHostname)
	setIf(&config.DatabasePort, c.DatabasePort)
	setIf(&config.DatabaseName, c.DatabaseName)
	setIf(&config.DatabaseUsername, c.DatabaseUsername)
	setIf(&config.DatabasePassword, c.DatabasePassword)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.DebugMode, c.DebugMode)
	setIf(&config.AMQPURL, c.AMQPURL)
	setIf(&config.AMQPExchange, c.AMQPExchange)
	setIf(&config.OTLPEndpoint, c.OTLPEndpoint)
	if c.CacheTTL != nil {
		config.CacheTTL = c.CacheTTL.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

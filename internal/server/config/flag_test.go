package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-g", ":6000", "-k", "postgres", "-d", "dsn",
				"-t", "60", "-v=false", "-q", "amqp://mq", "-o", "collector:4317",
			},
			expected: &Config{
				HTTPAddr:        "127.0.0.1:9090",
				GRPCHealthAddr:  ":6000",
				DatabaseDialect: "postgres",
				DatabaseDSN:     "dsn",
				CacheTTL:        time.Minute,
				DebugMode:       false,
				AMQPURL:         "amqp://mq",
				OTLPEndpoint:    "collector:4317",
			},
		},
		{
			name: "foreign flags are ignored",
			args: []string{"cmd", "-c", "cfg.json", "-a", ":1"},
			expected: &Config{
				HTTPAddr: ":1",
			},
		},
		{
			name:    "bad int",
			args:    []string{"cmd", "-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}
			err := parseFlags(config)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

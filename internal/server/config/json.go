package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/licensegate/internal/flagx"
	"github.com/dmitrijs2005/licensegate/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept either a Go
// duration string such as "5m" or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP     string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC     string         `json:"endpoint_addr_grpc"`
	DatabaseDriver       string         `json:"database_driver"`
	DatabaseDSN          string         `json:"database_dsn"`
	ServiceSecret        string         `json:"service_secret"`
	ServiceTokenValidity timex.Duration `json:"service_token_validity"`
	PublicURL            string         `json:"public_url"`
	OTLPEndpoint         string         `json:"otlp_endpoint"`
	LogLevel             string         `json:"log_level"`
	Argon2               *struct {
		Memory  uint32 `json:"memory"`
		Time    uint32 `json:"time"`
		Threads uint8  `json:"threads"`
	} `json:"argon2"`
}

// parseJson loads the file named by -c/-config (or LICENSEGATE_CONFIG) and
// copies every field present in it into config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.ServiceSecret, c.ServiceSecret)
	setString(&config.PublicURL, c.PublicURL)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	if c.ServiceTokenValidity.Duration != 0 {
		config.ServiceTokenValidity = c.ServiceTokenValidity.Duration
	}
	if a := c.Argon2; a != nil {
		if a.Memory != 0 {
			config.Argon2.Memory = a.Memory
		}
		if a.Time != 0 {
			config.Argon2.Time = a.Time
		}
		if a.Threads != 0 {
			config.Argon2.Threads = a.Threads
		}
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

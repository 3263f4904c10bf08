// Package config loads settings for the licensegate CLI.
//
// Sources, later ones winning: built-in defaults, the JSON file named by
// -c/-config (or LICENSEGATE_CONFIG), LICENSEGATE_CLI_* environment
// variables and command-line flags.
//
//	-u string    base URL of the HTTP surface
//	-g string    host:port of the RPC surface
//	-n string    service name put in minted service tokens
//	-s string    service token secret
//	-v duration  service token validity
//	-T duration  per-request timeout
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/licensegate/internal/flagx"
	"github.com/dmitrijs2005/licensegate/internal/timex"
)

const EnvPrefix = "LICENSEGATE_CLI_"

type Config struct {
	ServerURL            string        `env:"SERVER_URL"`
	GRPCAddr             string        `env:"GRPC_ADDR"`
	ServiceName          string        `env:"SERVICE_NAME"`
	ServiceSecret        string        `env:"SERVICE_SECRET"`
	ServiceTokenValidity time.Duration `env:"SERVICE_TOKEN_VALIDITY"`
	Timeout              time.Duration `env:"TIMEOUT"`
}

// JsonConfig is the on-disk form of Config.
type JsonConfig struct {
	ServerURL            string         `json:"server_url"`
	GRPCAddr             string         `json:"grpc_addr"`
	ServiceName          string         `json:"service_name"`
	ServiceSecret        string         `json:"service_secret"`
	ServiceTokenValidity timex.Duration `json:"service_token_validity"`
	Timeout              timex.Duration `json:"timeout"`
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.ServiceName = "licensegate-cli"
	c.ServiceSecret = ""
	c.ServiceTokenValidity = time.Minute
	c.Timeout = 10 * time.Second
}

// LoadConfig builds a Config from args and returns it together with the
// positional arguments left after the flags.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, nil, fmt.Errorf("config file: %w", err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, nil, fmt.Errorf("environment: %w", err)
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, rest, nil
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.GRPCAddr != "" {
		cfg.GRPCAddr = jc.GRPCAddr
	}
	if jc.ServiceName != "" {
		cfg.ServiceName = jc.ServiceName
	}
	if jc.ServiceSecret != "" {
		cfg.ServiceSecret = jc.ServiceSecret
	}
	if jc.ServiceTokenValidity.Duration != 0 {
		cfg.ServiceTokenValidity = jc.ServiceTokenValidity.Duration
	}
	if jc.Timeout.Duration != 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}

func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("licensegate-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configFile string
	fs.StringVar(&configFile, "c", "", "config file")
	fs.StringVar(&configFile, "config", "", "config file")
	fs.StringVar(&cfg.ServerURL, "u", cfg.ServerURL, "HTTP base URL")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "RPC address")
	fs.StringVar(&cfg.ServiceName, "n", cfg.ServiceName, "service name")
	fs.StringVar(&cfg.ServiceSecret, "s", cfg.ServiceSecret, "service token secret")
	fs.DurationVar(&cfg.ServiceTokenValidity, "v", cfg.ServiceTokenValidity, "service token validity")
	fs.DurationVar(&cfg.Timeout, "T", cfg.Timeout, "request timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/licensegate/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-t", "-d", "-s", "-v", "-u", "-o", "-l"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string    HTTP bind address (e.g. ":8080")
//	-g string    gRPC bind address (e.g. ":50051")
//	-t string    database driver: pgx or sqlite
//	-d string    database DSN
//	-s string    service token secret
//	-v duration  service token validity (e.g. "5m")
//	-u string    public URL of the HTTP surface
//	-o string    OTLP/HTTP trace endpoint
//	-l string    log level
//
// Unknown flags in args are ignored so that -c/-config can share os.Args.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("licensegate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address")
	fs.StringVar(&config.DatabaseDriver, "t", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ServiceSecret, "s", config.ServiceSecret, "service token secret")
	fs.DurationVar(&config.ServiceTokenValidity, "v", config.ServiceTokenValidity, "service token validity")
	fs.StringVar(&config.PublicURL, "u", config.PublicURL, "public URL")
	fs.StringVar(&config.OTLPEndpoint, "o", config.OTLPEndpoint, "OTLP trace endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, serverFlags))
}

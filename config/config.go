// Package config holds the server settings. Values are read by goconfig
// from flags, environment variables and an optional JSON file.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

type Config struct {
	HttpAddr       string `usage:"HTTP address"`
	DataDir        string `usage:"data directory"`
	Backend        string `usage:"store backend: json, sqlite or memory"`
	AllowedOrigins string `usage:"comma separated list of CORS origins, * for any"`
	LogLevel       string `usage:"log level: debug, info, warn or error"`
	Version        bool   `usage:"show version and exit"`
	ShowConfig     bool   `usage:"print config"`
}

func Default() Config {
	return Config{
		HttpAddr:       ":3000",
		DataDir:        "./data",
		Backend:        "json",
		AllowedOrigins: "*",
		LogLevel:       "info",
	}
}

// ReadEnv applies the plain deployment variables PORT, HOST, DATA_DIR,
// STORE_BACKEND, ALLOWED_ORIGINS and LOG_LEVEL. It runs before goconfig, so
// flags and the field-named variables (HTTPADDR, DATADIR, ...) still win.
func (c *Config) ReadEnv(getenv func(string) string) {
	host, port, err := net.SplitHostPort(c.HttpAddr)
	if err != nil {
		host, port = "", c.HttpAddr
	}
	if v := getenv("HOST"); v != "" {
		host = v
	}
	if v := getenv("PORT"); v != "" {
		port = v
	}
	c.HttpAddr = net.JoinHostPort(host, port)

	for key, field := range map[string]*string{
		"DATA_DIR":        &c.DataDir,
		"STORE_BACKEND":   &c.Backend,
		"ALLOWED_ORIGINS": &c.AllowedOrigins,
		"LOG_LEVEL":       &c.LogLevel,
	} {
		if v := getenv(key); v != "" {
			*field = v
		}
	}
}

// Origins splits AllowedOrigins into its entries.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

package aradel

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tfkr-ae/aradel/dialect"
)

// Config holds the connection settings. Fields carry mapstructure tags so a
// config file loaded through WithConfigDir unmarshals directly into it.
type Config struct {
	Driver     string        `mapstructure:"driver"`      // Driver prefix for the DSN (defaults to mysql)
	Host       string        `mapstructure:"host"`        // Server hostname or address
	Port       int           `mapstructure:"port"`        // Server port (defaults to 3306)
	UnixSocket string        `mapstructure:"unix_socket"` // Server socket path, preferred over host and port when set
	Database   string        `mapstructure:"dbname"`      // Schema to select after connecting
	Username   string        `mapstructure:"username"`    // Account name
	Password   string        `mapstructure:"password"`    // Account password
	Encoding   string        `mapstructure:"encoding"`    // Text encoding for outgoing literals (defaults to utf-8)
	Timeout    time.Duration `mapstructure:"timeout"`     // Dial timeout (defaults to 5s)
}

// DefaultConfig returns the settings used when no config file or option
// overrides them.
func DefaultConfig() *Config {
	return &Config{
		Driver:   "mysql",
		Host:     "127.0.0.1",
		Port:     3306,
		Encoding: "utf-8",
		Timeout:  5 * time.Second,
	}
}

// DSN renders the canonical connection string: the driver prefix, then
// either the socket path or the host and port pair, then the optional
// database name and charset token. Credentials are never included, so the
// value is safe to log and display.
func (cfg *Config) DSN() string {
	var builder strings.Builder
	builder.WriteString(cfg.Driver)
	builder.WriteString(":")
	if cfg.UnixSocket != "" {
		builder.WriteString("unix_socket=")
		builder.WriteString(cfg.UnixSocket)
	} else {
		fmt.Fprintf(&builder, "host=%s;port=%d", cfg.Host, cfg.Port)
	}
	if cfg.Database != "" {
		builder.WriteString(";dbname=")
		builder.WriteString(cfg.Database)
	}
	if token, ok := dialect.Charset(cfg.Encoding); ok {
		builder.WriteString(";charset=")
		builder.WriteString(token)
	}
	return builder.String()
}

// SetEncoding updates the encoding in the configuration and writes it back
// to the config file when one is loaded. On a connection with an attached
// driver use Connection.SetEncoding, which also rebuilds the protector.
func (cfg *Config) SetEncoding(encoding string) error {
	cfg.Encoding = encoding
	if viper.ConfigFileUsed() == "" {
		return nil
	}
	viper.Set("encoding", encoding)
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	return nil
}

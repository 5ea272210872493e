package aradel

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"
	"github.com/tfkr-ae/aradel/core"
	"github.com/tfkr-ae/aradel/domain"
)

// WithOptions applies a series of configuration functions to the connection.
// Each option function can modify the connection and return an error if it
// fails.
//
// Parameters:
//   - options: Variadic list of configuration functions
//
// Returns:
//   - error: First error encountered from any option function
func (conn *Connection) WithOptions(options ...func(*Connection) error) error {
	for _, option := range options {
		err := option(conn)
		if err != nil {
			return fmt.Errorf("applying option on connection : %w", err)
		}
	}
	return nil
}

// WithConfigDir configures the connection from the specified configuration
// directory. It creates the directory if it doesn't exist and initializes
// the configuration file using Viper.
//
// Parameters:
//   - appConfigDir: Path to the configuration directory
//
// Returns:
//   - func(*Connection) error: Configuration function that sets up the config directory
func WithConfigDir(appConfigDir string) func(*Connection) error {
	return func(conn *Connection) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if os.IsNotExist(err) {
				conn.Logger.Info("creating config dir", "dir", appConfigDir)
				err := os.MkdirAll(appConfigDir, 0700)
				if err != nil {
					return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
				}
			} else {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
		}
		// At this point, the directory exists or was created successfully
		conn.ConfigDir = appConfigDir

		// VIPER
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appConfigDir)
		viper.SetDefault("driver", "mysql")
		viper.SetDefault("host", "127.0.0.1")
		viper.SetDefault("port", 3306)
		viper.SetDefault("encoding", "utf-8")
		viper.SetDefault("timeout", "5s")
		err = viper.ReadInConfig()
		if err != nil {
			// need to check if the error is config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// Config file is not found
				err = viper.SafeWriteConfig()
				if err != nil {
					return fmt.Errorf("writing config file : %w", err)
				}
			} else {
				return fmt.Errorf("reading config file : %w", err)
			}
		}
		if err := viper.Unmarshal(&conn.Config); err != nil {
			return fmt.Errorf("unmarshalling config to struct : %w", err)
		}

		// Rewrite entire file from struct
		err = viper.WriteConfig()
		if err != nil {
			return fmt.Errorf("writing config after unmarshalling : %w", err)
		}
		return nil
	}
}

// WithConfig replaces the connection configuration wholesale.
func WithConfig(cfg *Config) func(*Connection) error {
	return func(conn *Connection) error {
		if cfg == nil {
			return errors.New("config cannot be nil")
		}
		conn.Config = cfg
		return nil
	}
}

// WithDriver attaches a driver to the connection and derives the transaction
// guard and the protector from it. An existing driver is closed first.
func WithDriver(driver Driver) func(*Connection) error {
	return func(conn *Connection) error {
		if conn.Driver != nil {
			if err := conn.Driver.Close(); err != nil {
				return err
			}
			conn.Driver = nil
		}
		conn.attach(driver)
		return nil
	}
}

// WithJournal will take the Journal interface and verify it responds before
// wiring it into the write pipeline. An existing journal is closed first.
func WithJournal(journal Journal) func(*Connection) error {
	return func(conn *Connection) error {
		if conn.Journal != nil {
			if err := conn.Journal.Close(); err != nil {
				return err
			}
			conn.Journal = nil
		}
		conn.Journal = journal
		if _, err := journal.CountQueries(); err != nil {
			conn.WriteLog(domain.LevelInfo, err.Error())
		}
		return nil
	}
}

// WithLogger sets the diagnostics logger for the connection. A nil logger
// falls back to slog.Default so the field is always safe to use.
func WithLogger(logger *slog.Logger) func(*Connection) error {
	return func(conn *Connection) error {
		if logger == nil {
			conn.Logger = slog.Default()
			return nil
		}
		conn.Logger = logger
		return nil
	}
}

// WithLogHandler takes a handler function that will be executed on each log entry
func WithLogHandler(handler func(log domain.Log) error) func(*Connection) error {
	return func(conn *Connection) error {
		if conn.OnLog != nil {
			return errors.New("connection already has a log handler defined")
		}
		conn.OnLog = handler
		return nil
	}
}

// WithQueryHandler takes a handler function that will be executed on each statement notification
func WithQueryHandler(handler func(record domain.QueryRecord) error) func(*Connection) error {
	return func(conn *Connection) error {
		if conn.OnQuery != nil {
			return errors.New("connection already has a query handler defined")
		}
		conn.OnQuery = handler
		return nil
	}
}

// WithCounters shares a counter set with the connection. The registry uses
// this to aggregate totals across every connection it opens.
func WithCounters(counters *core.Counters) func(*Connection) error {
	return func(conn *Connection) error {
		if counters == nil {
			return errors.New("counters cannot be nil")
		}
		conn.Counters = counters
		return nil
	}
}

// WithFilterRule adds a journal filter rule to the connection.
func WithFilterRule(pattern string, matchType string, exclude bool) func(*Connection) error {
	return func(conn *Connection) error {
		if err := conn.Filter.AddRule(pattern, matchType, exclude); err != nil {
			return fmt.Errorf("adding filter rule %s : %w", pattern, err)
		}
		return nil
	}
}

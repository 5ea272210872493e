package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity levels accepted by the logging pipeline.
const (
	LevelDebug    = "DEBUG"
	LevelInfo     = "INFO"
	LevelWarn     = "WARN"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// LogRepository defines the interface for managing connection logs.
// It provides methods for persisting and retrieving log entries.
type LogRepository interface {
	// InsertLog saves a new log entry to the repository.
	InsertLog(log *Log) error
	// GetLogs retrieves all log entries from the repository.
	GetLogs() ([]*Log, error)
}

// Log represents a single log entry describing an event on a connection,
// from statement notifications at DEBUG up to connect failures at CRITICAL.
type Log struct {
	ID        uuid.UUID      // Unique identifier for the log entry.
	Timestamp time.Time      // The time at which the log entry was created.
	Level     string         // The severity level of the log (DEBUG, INFO, WARN, ERROR, CRITICAL).
	Message   string         // The main content of the log message.
	Context   map[string]any // A map of additional key-value data for structured logging.
	QueryID   *uuid.UUID     // An optional ID of an associated query record, for context.
}

// GetType returns the journal item identifier for a log entry.
func (l Log) GetType() string {
	return "log"
}

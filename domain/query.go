package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kinds of statement executions tracked by the journal.
const (
	KindExec    = "exec"
	KindQuery   = "query"
	KindPrepare = "prepare"
)

// QueryRepository defines the interface for persisting executed statements.
// It provides methods for recording, retrieving and counting query records.
type QueryRepository interface {
	// InsertQuery saves a new query record to the repository.
	InsertQuery(record *QueryRecord) error
	// GetQueries retrieves all query records from the repository.
	GetQueries() ([]*QueryRecord, error)
	// CountQueries returns the total number of stored query records.
	CountQueries() (int, error)
}

// QueryRecord represents a single statement that passed through a connection,
// together with its outcome. Records are produced for exec, query and prepare
// calls and written to the journal asynchronously.
type QueryRecord struct {
	ID           uuid.UUID      // Unique identifier for the record.
	ExecutedAt   time.Time      // The time at which the statement was issued.
	Kind         string         // The call that produced the record: exec, query or prepare.
	Statement    string         // The full statement text as sent to the driver.
	Level        string         // The severity level the statement was reported at.
	RowsAffected int64          // Rows affected, for exec calls. Zero otherwise.
	Duration     time.Duration  // Wall time spent in the driver call.
	Err          string         // The driver error text, empty on success.
	Context      map[string]any // A map of additional key-value data attached by the caller.
}

// GetType returns the journal item identifier for a query record.
func (q QueryRecord) GetType() string {
	return "query"
}

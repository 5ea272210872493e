package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/aradel/domain"
)

var _ domain.QueryRepository = (*Repository)(nil)

// dbQuery represents an executed statement as stored in the database.
// Durations are persisted as integer microseconds.
type dbQuery struct {
	ID           uuid.UUID      `db:"id"`            // Unique identifier for the record.
	ExecutedAt   time.Time      `db:"executed_at"`   // The time at which the statement was issued.
	Kind         string         `db:"kind"`          // The call that produced the record.
	Statement    string         `db:"statement"`     // The full statement text.
	Level        string         `db:"level"`         // The severity level of the notification.
	RowsAffected int64          `db:"rows_affected"` // Rows affected, for exec calls.
	DurationUS   int64          `db:"duration_us"`   // Wall time spent in the driver call, microseconds.
	Err          sql.NullString `db:"error"`         // The driver error text, NULL on success.
	Context      Metadata       `db:"context"`       // A map of additional key-value data.
}

// toDomainQuery converts a dbQuery to a domain.QueryRecord.
func toDomainQuery(dbQuery *dbQuery) *domain.QueryRecord {
	record := &domain.QueryRecord{
		ID:           dbQuery.ID,
		ExecutedAt:   dbQuery.ExecutedAt,
		Kind:         dbQuery.Kind,
		Statement:    dbQuery.Statement,
		Level:        dbQuery.Level,
		RowsAffected: dbQuery.RowsAffected,
		Duration:     time.Duration(dbQuery.DurationUS) * time.Microsecond,
		Context:      map[string]any(dbQuery.Context),
	}

	if dbQuery.Err.Valid {
		record.Err = dbQuery.Err.String
	}

	return record
}

// fromDomainQuery converts a domain.QueryRecord to a dbQuery.
func fromDomainQuery(record *domain.QueryRecord) *dbQuery {
	dbQuery := &dbQuery{
		ID:           record.ID,
		ExecutedAt:   record.ExecutedAt,
		Kind:         record.Kind,
		Statement:    record.Statement,
		Level:        record.Level,
		RowsAffected: record.RowsAffected,
		DurationUS:   record.Duration.Microseconds(),
		Context:      Metadata(record.Context),
	}

	if record.Err != "" {
		dbQuery.Err = sql.NullString{String: record.Err, Valid: true}
	}

	return dbQuery
}

// InsertQuery saves a new query record to the database.
func (repo *Repository) InsertQuery(record *domain.QueryRecord) error {
	dbQuery := fromDomainQuery(record)
	query := `INSERT INTO query_log (id, executed_at, kind, statement, level, rows_affected, duration_us, error, context)
	          VALUES (:id, :executed_at, :kind, :statement, :level, :rows_affected, :duration_us, :error, :context)`

	_, err := repo.dbConn.NamedExec(query, dbQuery)
	if err != nil {
		return fmt.Errorf("inserting query %s: %w", record.ID, err)
	}

	return err
}

// GetQueries retrieves all query records from the database.
func (repo *Repository) GetQueries() ([]*domain.QueryRecord, error) {
	var dbQueries []*dbQuery
	query := `SELECT * FROM query_log`

	err := repo.dbConn.Select(&dbQueries, query)
	if err != nil {
		return nil, fmt.Errorf("fetching all queries: %w", err)
	}

	records := make([]*domain.QueryRecord, len(dbQueries))
	for i, dbQuery := range dbQueries {
		records[i] = toDomainQuery(dbQuery)
	}

	return records, nil
}

// CountQueries returns the total number of stored query records.
func (repo *Repository) CountQueries() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM query_log`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("getting query count: %w", err)
	}

	return count, nil
}

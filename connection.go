// Package aradel provides a connection management and query safety layer in
// front of a MySQL driver. It is designed to be decoupled from the
// applications embedding it and provides the pieces those applications wire
// together: reference counted transactions, encoding aware literal
// protection and a persistent journal of everything a connection did.
//
// The core functionality includes:
//   - Nested transaction flattening with a depth counter and a single
//     physical begin/commit per outermost span
//   - Encoding aware construction of SQL literals with charset introducers
//   - Canonical DSN assembly from structured configuration
//   - SQLite journal storage for executed statements and logs
//   - Filter rules deciding which statements get journaled
//   - Shared query counters aggregated through a registry
package aradel

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tfkr-ae/aradel/core"
	"github.com/tfkr-ae/aradel/domain"
	"github.com/tfkr-ae/aradel/mysql"
)

// Driver is the capability set the connection consumes from the underlying
// database driver. It names exactly the operations this layer forwards:
// statement execution, quoting, transaction control, last-insert-id, error
// info and client-side attributes. mysql.Conn is the production
// implementation.
type Driver interface {
	Exec(ctx context.Context, query string) (sql.Result, error)
	Query(ctx context.Context, query string) (*sqlx.Rows, error)
	Prepare(ctx context.Context, query string) (*sqlx.Stmt, error)
	Quote(value string) (string, error)
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	LastInsertID() int64
	LastError() domain.ErrorInfo
	Attribute(name string) (any, bool)
	SetAttribute(name string, value any)
	Close() error
}

var _ Driver = (*mysql.Conn)(nil)

// Journal defines the methods consumed by the connection to persist its
// activity. It is implemented by journal.Repository.
type Journal interface {
	domain.QueryRepository
	domain.LogRepository
	Close() error
}

// JournalItem is an interface for items that can be written to the journal
// through the write channel. It is implemented by domain.QueryRecord and
// domain.Log.
type JournalItem interface {
	// GetType returns a string identifier for the type of journal item.
	GetType() string
}

// Connection is the main struct that orchestrates the safety layer around a
// single database link: transaction flattening, literal protection, counters
// and the journal pipeline. It serves as the central coordinator for
// everything the layer does.
type Connection struct {
	ID                  uuid.UUID                             // Unique identifier for the connection, used by the registry
	ConfigDir           string                                // The configuration directory
	Config              *Config                               // The connection configuration
	Driver              Driver                                // Underlying driver capability set
	Guard               *TxGuard                              // Nested transaction bookkeeping
	Protector           *Protector                            // Value to SQL literal encoder
	Journal             Journal                               // Journal repository interface
	Filter              *Filter                               // Statement filter deciding what gets journaled
	Counters            *core.Counters                        // Query counters, shared when opened through a registry
	Logger              *slog.Logger                          // Process diagnostics logger
	JournalWriteChannel chan JournalItem                      // Journal write channel
	OnQuery             func(record domain.QueryRecord) error // Function to be ran on each statement notification
	OnLog               func(log domain.Log) error            // Function to be ran on each log entry
	closed              bool
	writerDone          chan struct{}
}

// New creates a new Connection with default configuration and applies any
// provided options. It initializes the journal write channel, the statement
// filter and the counters; the driver is attached later, either through
// WithDriver or by Connect.
func New(options ...func(*Connection) error) (*Connection, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating connection id : %w", err)
	}
	connection := &Connection{
		ID:                  id,
		Config:              DefaultConfig(),
		Filter:              NewFilter(true),
		Counters:            core.NewCounters(),
		Logger:              slog.Default(),
		JournalWriteChannel: make(chan JournalItem, 10),
	}
	err = connection.WithOptions(options...)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

// attach wires a driver into the connection and derives the guard and the
// protector from it.
func (conn *Connection) attach(driver Driver) {
	conn.Driver = driver
	conn.Guard = NewTxGuard(driver)
	conn.Protector = NewProtector(driver, conn.Config.Encoding)
}

// Connect establishes the connection. When no driver has been attached it
// opens the default MySQL driver from the configuration; a failure there is
// logged with critical severity and returned as a *ConnectionError. On
// success the journal writer is started when anything consumes the pipeline,
// a journal or a registered handler, and the connect is logged.
func (conn *Connection) Connect(ctx context.Context) error {
	if conn.Driver == nil {
		driver, err := mysql.Open(ctx, mysql.Settings{
			Host:       conn.Config.Host,
			Port:       conn.Config.Port,
			UnixSocket: conn.Config.UnixSocket,
			Username:   conn.Config.Username,
			Password:   conn.Config.Password,
			Database:   conn.Config.Database,
			Encoding:   conn.Config.Encoding,
			Timeout:    conn.Config.Timeout,
		})
		if err != nil {
			connErr := &ConnectionError{DSN: conn.Config.DSN(), Err: err}
			conn.WriteLog(domain.LevelCritical, connErr.Error())
			return connErr
		}
		conn.attach(driver)
	}
	if (conn.Journal != nil || conn.OnQuery != nil || conn.OnLog != nil) && conn.writerDone == nil {
		done := make(chan struct{})
		conn.writerDone = done
		go func() {
			conn.WriteToJournal()
			close(done)
		}()
	}
	conn.WriteLog(domain.LevelInfo, fmt.Sprintf("Connected to %s", conn.Config.DSN()))
	return nil
}

// DSN returns the canonical connection string of the configuration. It never
// contains credentials.
func (conn *Connection) DSN() string {
	return conn.Config.DSN()
}

// SetEncoding changes the text encoding of the connection. The value is
// persisted through the configuration, and when a driver is attached the
// protector is rebuilt so later Protect calls encode for the new charset.
func (conn *Connection) SetEncoding(encoding string) error {
	if err := conn.Config.SetEncoding(encoding); err != nil {
		return err
	}
	if conn.Driver != nil {
		conn.Protector = NewProtector(conn.Driver, encoding)
	}
	return nil
}

// newRecord builds the journal record for a statement about to be issued.
func (conn *Connection) newRecord(kind string, statement string) *domain.QueryRecord {
	record := &domain.QueryRecord{
		Kind:       kind,
		Statement:  statement,
		Level:      domain.LevelDebug,
		ExecutedAt: time.Now(),
	}
	if id, err := uuid.NewV7(); err == nil {
		record.ID = id
	}
	return record
}

// record routes a finished statement record into the journal pipeline,
// honoring the filter. Notifications are skipped entirely when nothing
// consumes them.
func (conn *Connection) record(rec *domain.QueryRecord) {
	if conn.closed {
		return
	}
	if conn.Journal == nil && conn.OnQuery == nil {
		return
	}
	if !conn.Filter.Matches(rec.Statement, rec.Kind) {
		return
	}
	conn.JournalWriteChannel <- rec
}

// Exec forwards a statement that returns no rows, counting it, notifying the
// journal pipeline and accumulating affected rows.
func (conn *Connection) Exec(ctx context.Context, query string) (sql.Result, error) {
	if conn.Driver == nil {
		return nil, ErrNoDriver
	}
	conn.Counters.AddQuery()
	record := conn.newRecord(domain.KindExec, query)
	start := time.Now()
	result, err := conn.Driver.Exec(ctx, query)
	record.Duration = time.Since(start)
	if err != nil {
		record.Level = domain.LevelError
		record.Err = err.Error()
		conn.record(record)
		return nil, fmt.Errorf("executing statement : %w", err)
	}
	if rows, rowsErr := result.RowsAffected(); rowsErr == nil {
		record.RowsAffected = rows
		conn.Counters.AddAffected(rows)
	}
	conn.record(record)
	return result, nil
}

// Query forwards a statement that returns rows, counting it and notifying
// the journal pipeline.
func (conn *Connection) Query(ctx context.Context, query string) (*sqlx.Rows, error) {
	if conn.Driver == nil {
		return nil, ErrNoDriver
	}
	conn.Counters.AddQuery()
	record := conn.newRecord(domain.KindQuery, query)
	start := time.Now()
	rows, err := conn.Driver.Query(ctx, query)
	record.Duration = time.Since(start)
	if err != nil {
		record.Level = domain.LevelError
		record.Err = err.Error()
		conn.record(record)
		return nil, fmt.Errorf("running query : %w", err)
	}
	conn.record(record)
	return rows, nil
}

// Prepare forwards a statement compilation, counting it and notifying the
// journal pipeline.
func (conn *Connection) Prepare(ctx context.Context, query string) (*sqlx.Stmt, error) {
	if conn.Driver == nil {
		return nil, ErrNoDriver
	}
	conn.Counters.AddQuery()
	record := conn.newRecord(domain.KindPrepare, query)
	start := time.Now()
	stmt, err := conn.Driver.Prepare(ctx, query)
	record.Duration = time.Since(start)
	if err != nil {
		record.Level = domain.LevelError
		record.Err = err.Error()
		conn.record(record)
		return nil, fmt.Errorf("preparing statement : %w", err)
	}
	conn.record(record)
	return stmt, nil
}

// Begin enters a transaction span through the guard.
func (conn *Connection) Begin(ctx context.Context) error {
	if conn.Driver == nil {
		return ErrNoDriver
	}
	return conn.Guard.Begin(ctx)
}

// Commit leaves the innermost transaction span through the guard.
func (conn *Connection) Commit(ctx context.Context) error {
	if conn.Driver == nil {
		return ErrNoDriver
	}
	return conn.Guard.Commit(ctx)
}

// Rollback aborts the transaction through the guard.
func (conn *Connection) Rollback(ctx context.Context) error {
	if conn.Driver == nil {
		return ErrNoDriver
	}
	return conn.Guard.Rollback(ctx)
}

// InTransaction reports whether a physical transaction is open.
func (conn *Connection) InTransaction() bool {
	return conn.Guard != nil && conn.Guard.Active()
}

// TxDepth returns the current transaction nesting depth.
func (conn *Connection) TxDepth() int {
	if conn.Guard == nil {
		return 0
	}
	return conn.Guard.Depth()
}

// Protect renders a value as a SQL literal safe to embed in statement text.
func (conn *Connection) Protect(value any, forceQuote bool, stripMarkup bool) (string, error) {
	if conn.Protector == nil {
		return "", ErrNoDriver
	}
	return conn.Protector.Protect(value, forceQuote, stripMarkup)
}

// Quote forwards the raw quoting capability of the driver.
func (conn *Connection) Quote(value string) (string, error) {
	if conn.Driver == nil {
		return "", ErrNoDriver
	}
	return conn.Driver.Quote(value)
}

// LastInsertID returns the auto-generated id of the most recent successful
// exec on the driver.
func (conn *Connection) LastInsertID() int64 {
	if conn.Driver == nil {
		return 0
	}
	return conn.Driver.LastInsertID()
}

// LastError returns the driver error triple of the most recent failed
// operation.
func (conn *Connection) LastError() domain.ErrorInfo {
	if conn.Driver == nil {
		return domain.ErrorInfo{}
	}
	return conn.Driver.LastError()
}

// Attribute reads a client-side driver attribute.
func (conn *Connection) Attribute(name string) (any, bool) {
	if conn.Driver == nil {
		return nil, false
	}
	return conn.Driver.Attribute(name)
}

// SetAttribute stores a client-side driver attribute.
func (conn *Connection) SetAttribute(name string, value any) {
	if conn.Driver == nil {
		return
	}
	conn.Driver.SetAttribute(name, value)
}

// NextAutoIncrement looks up the next auto-increment value for a table in
// the connected schema. A table without metadata, or without an
// auto-increment column, is a *ProtectionError: the lookup was expected to
// return a value.
func (conn *Connection) NextAutoIncrement(ctx context.Context, table string) (uint64, error) {
	protected, err := conn.Protect(table, true, false)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT AUTO_INCREMENT FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = %s", protected)
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("fetching auto increment for %s : %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("reading auto increment for %s : %w", table, err)
		}
		return 0, &ProtectionError{Op: "fetching next auto increment", Err: fmt.Errorf("no metadata row for table %s", table)}
	}
	var next sql.NullInt64
	if err := rows.Scan(&next); err != nil {
		return 0, fmt.Errorf("scanning auto increment for %s : %w", table, err)
	}
	if !next.Valid {
		return 0, &ProtectionError{Op: "fetching next auto increment", Err: fmt.Errorf("table %s has no auto increment column", table)}
	}
	return uint64(next.Int64), nil
}

// WriteToJournal drains the journal write channel, persisting records and
// notifying the registered handlers. Connect runs it on its own goroutine;
// it returns when the channel is closed. Close runs it inline when no
// writer was ever started.
func (conn *Connection) WriteToJournal() {
	for journalItem := range conn.JournalWriteChannel {
		switch castItem := journalItem.(type) {
		case *domain.QueryRecord:
			if conn.Journal != nil {
				if err := conn.Journal.InsertQuery(castItem); err != nil {
					conn.Logger.Error("inserting query record", "error", err)
				}
			}
			if conn.OnQuery != nil {
				if err := conn.OnQuery(*castItem); err != nil {
					conn.Logger.Error("notifying query handler", "error", err)
				}
			}
		case domain.Log:
			if conn.Journal != nil {
				if err := conn.Journal.InsertLog(&castItem); err != nil {
					conn.Logger.Error("inserting log", "error", err)
				}
			}
			if conn.OnLog != nil {
				if err := conn.OnLog(castItem); err != nil {
					conn.Logger.Error("notifying log handler", "error", err)
				}
			}
		default:
			conn.Logger.Warn("unknown journal item", "type", journalItem.GetType())
		}
	}
}

// WriteLog validates the severity level, builds a log entry and routes it
// into the journal pipeline.
func (conn *Connection) WriteLog(level string, message string, options ...func(log *domain.Log) error) error {
	switch level {
	case domain.LevelDebug:
	case domain.LevelInfo:
	case domain.LevelWarn:
	case domain.LevelError:
	case domain.LevelCritical:
	default:
		return fmt.Errorf("level should be either: debug, info, warn, error, critical")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	entry := domain.Log{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	for _, option := range options {
		err := option(&entry)
		if err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}
	if conn.closed || (conn.Journal == nil && conn.OnLog == nil) {
		return nil
	}
	conn.JournalWriteChannel <- entry
	return nil
}

// Close flushes the journal pipeline and releases the driver and the
// journal. When the background writer is running, Close waits for it to
// finish the remaining items before the journal goes away; otherwise it
// drains the channel itself. It is safe to call more than once.
func (conn *Connection) Close() error {
	if conn.closed {
		return nil
	}
	conn.closed = true
	close(conn.JournalWriteChannel)
	if conn.writerDone != nil {
		<-conn.writerDone
	} else {
		conn.WriteToJournal()
	}
	if conn.Driver != nil {
		if err := conn.Driver.Close(); err != nil {
			return fmt.Errorf("closing driver : %w", err)
		}
	}
	if conn.Journal != nil {
		if err := conn.Journal.Close(); err != nil {
			return fmt.Errorf("closing journal : %w", err)
		}
	}
	return nil
}

// Package mysql implements the driver capability set consumed by the Aradel
// connection layer on top of go-sql-driver/mysql through sqlx. A Conn owns a
// single physical link and routes statements through the open transaction
// while one is running.
//
// A Conn is not safe for concurrent use. Callers serialize access the same
// way they serialize the owning connection.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/tfkr-ae/aradel/dialect"
	"github.com/tfkr-ae/aradel/domain"
)

var (
	ErrClosed = errors.New("connection is closed")
	ErrTxOpen = errors.New("a transaction is already open")
	ErrNoTx   = errors.New("no open transaction")
)

// Settings carries the parameters Open needs to dial a MySQL server.
// A non-empty UnixSocket takes precedence over Host and Port.
type Settings struct {
	Host       string        // Server hostname or address, for TCP connections.
	Port       int           // Server port, for TCP connections.
	UnixSocket string        // Path to the server socket, for local connections.
	Username   string        // Account name.
	Password   string        // Account password.
	Database   string        // Schema to select after connecting.
	Encoding   string        // Text encoding of the session, e.g. "utf-8".
	Timeout    time.Duration // Dial timeout.
}

// FormatDSN renders the go-sql-driver connection string for the settings.
// The encoding is translated to a MySQL charset parameter when the dialect
// table resolves it; otherwise the session keeps the server default.
func (s Settings) FormatDSN() string {
	cfg := gomysql.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.DBName = s.Database
	if s.UnixSocket != "" {
		cfg.Net = "unix"
		cfg.Addr = s.UnixSocket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	}
	cfg.Timeout = s.Timeout
	if token, ok := dialect.Charset(s.Encoding); ok {
		cfg.Params = map[string]string{"charset": token}
	}
	return cfg.FormatDSN()
}

// executor is the statement surface shared by *sqlx.DB and *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
	sqlx.PreparerContext
}

// Conn is a single MySQL link exposing the capability set the connection
// layer forwards to: execute, query, prepare, quote, transaction control,
// last-insert-id, error info and free-form attributes.
type Conn struct {
	db       *sqlx.DB
	tx       *sqlx.Tx
	encoding string
	lastID   int64
	lastErr  domain.ErrorInfo
	attrs    map[string]any
}

// Open dials the server described by settings and verifies the link with a
// ping. The pool is pinned to one open connection so that session state,
// transactions and last-insert-id always refer to the same physical link.
func Open(ctx context.Context, settings Settings) (*Conn, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", settings.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to mysql : %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Conn{
		db:       db,
		encoding: settings.Encoding,
		attrs: map[string]any{
			"driver":   "mysql",
			"encoding": settings.Encoding,
		},
	}, nil
}

// target returns the active statement executor, the open transaction when
// one is running, the base handle otherwise.
func (c *Conn) target() executor {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// fail records the driver error triple for LastError.
func (c *Conn) fail(err error) {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		state := "HY000"
		if myErr.SQLState != [5]byte{} {
			state = string(myErr.SQLState[:])
		}
		c.lastErr = domain.ErrorInfo{SQLState: state, Code: myErr.Number, Message: myErr.Message}
		return
	}
	c.lastErr = domain.ErrorInfo{SQLState: "HY000", Message: err.Error()}
}

// Exec runs a statement that returns no rows and records the last insert id.
func (c *Conn) Exec(ctx context.Context, query string) (sql.Result, error) {
	if c.db == nil {
		return nil, ErrClosed
	}
	result, err := c.target().ExecContext(ctx, query)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.lastErr = domain.ErrorInfo{}
	if id, idErr := result.LastInsertId(); idErr == nil {
		c.lastID = id
	}
	return result, nil
}

// Query runs a statement that returns rows.
func (c *Conn) Query(ctx context.Context, query string) (*sqlx.Rows, error) {
	if c.db == nil {
		return nil, ErrClosed
	}
	rows, err := c.target().QueryxContext(ctx, query)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.lastErr = domain.ErrorInfo{}
	return rows, nil
}

// Prepare compiles a statement on the current executor, inside the open
// transaction when one is running.
func (c *Conn) Prepare(ctx context.Context, query string) (*sqlx.Stmt, error) {
	if c.db == nil {
		return nil, ErrClosed
	}
	stmt, err := sqlx.PreparexContext(ctx, c.target(), query)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.lastErr = domain.ErrorInfo{}
	return stmt, nil
}

// Quote escapes a string per the MySQL backslash convention and wraps it in
// single quotes. It fails only when the connection has been closed.
func (c *Conn) Quote(value string) (string, error) {
	if c.db == nil {
		return "", ErrClosed
	}
	return dialect.QuoteLiteral(value), nil
}

// Begin opens the physical transaction. The nesting bookkeeping lives above
// this layer; Begin refuses to stack.
func (c *Conn) Begin(ctx context.Context) error {
	if c.db == nil {
		return ErrClosed
	}
	if c.tx != nil {
		return ErrTxOpen
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		c.fail(err)
		return err
	}
	c.tx = tx
	return nil
}

// Commit commits the physical transaction. The handle is released only on
// success; after a failed commit it is kept, statements keep routing to the
// spent transaction, and Rollback settles the span.
func (c *Conn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTx
	}
	if err := c.tx.Commit(); err != nil {
		c.fail(err)
		return err
	}
	c.tx = nil
	return nil
}

// Rollback aborts the physical transaction. A transaction the database layer
// has already settled reports sql.ErrTxDone; that counts as rolled back and
// releases the handle.
func (c *Conn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTx
	}
	if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		c.fail(err)
		return err
	}
	c.tx = nil
	return nil
}

// LastInsertID returns the auto-generated id of the most recent successful
// exec, zero when the statement generated none.
func (c *Conn) LastInsertID() int64 {
	return c.lastID
}

// LastError returns the error triple of the most recent failed operation.
// Successful operations clear it.
func (c *Conn) LastError() domain.ErrorInfo {
	return c.lastErr
}

// Attribute reads a client-side attribute set on the connection.
func (c *Conn) Attribute(name string) (any, bool) {
	value, ok := c.attrs[name]
	return value, ok
}

// SetAttribute stores a client-side attribute on the connection. Attributes
// are free-form state for callers; the driver seeds "driver" and "encoding".
func (c *Conn) SetAttribute(name string, value any) {
	if c.attrs == nil {
		c.attrs = make(map[string]any)
	}
	c.attrs[name] = value
}

// Close rolls back any open transaction and releases the link.
func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			c.fail(err)
		}
		c.tx = nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return fmt.Errorf("error closing connection : %w", err)
	}
	return nil
}

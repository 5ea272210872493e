package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// newTestConn backs a Conn with an in-memory SQLite database so transaction
// handling can run against a real database layer.
func newTestConn(t *testing.T) *Conn {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening backing database : %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return &Conn{db: db, attrs: map[string]any{}}
}

func TestSettingsFormatDSN(t *testing.T) {
	t.Run("should build a tcp DSN with charset and timeout", func(t *testing.T) {
		settings := Settings{
			Host:     "db.internal",
			Port:     3307,
			Username: "app",
			Password: "secret",
			Database: "orders",
			Encoding: "UTF-8",
			Timeout:  5 * time.Second,
		}

		dsn := settings.FormatDSN()
		cfg, err := gomysql.ParseDSN(dsn)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if cfg.Net != "tcp" {
			t.Fatalf("\nwanted:\ntcp\ngot:\n%q", cfg.Net)
		}
		if cfg.Addr != "db.internal:3307" {
			t.Fatalf("\nwanted:\ndb.internal:3307\ngot:\n%q", cfg.Addr)
		}
		if cfg.DBName != "orders" {
			t.Fatalf("\nwanted:\norders\ngot:\n%q", cfg.DBName)
		}
		if cfg.Timeout != 5*time.Second {
			t.Fatalf("\nwanted:\n5s\ngot:\n%v", cfg.Timeout)
		}
		if cfg.Params["charset"] != "utf8" {
			t.Fatalf("\nwanted:\nutf8\ngot:\n%q", cfg.Params["charset"])
		}
	})

	t.Run("should prefer the unix socket over host and port", func(t *testing.T) {
		settings := Settings{
			Host:       "ignored",
			Port:       3306,
			UnixSocket: "/var/run/mysqld/mysqld.sock",
			Database:   "orders",
		}

		cfg, err := gomysql.ParseDSN(settings.FormatDSN())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		if cfg.Net != "unix" {
			t.Fatalf("\nwanted:\nunix\ngot:\n%q", cfg.Net)
		}
		if cfg.Addr != "/var/run/mysqld/mysqld.sock" {
			t.Fatalf("\nwanted:\n/var/run/mysqld/mysqld.sock\ngot:\n%q", cfg.Addr)
		}
	})

	t.Run("should omit the charset parameter for unknown encodings", func(t *testing.T) {
		settings := Settings{Host: "localhost", Port: 3306, Encoding: "ebcdic"}

		dsn := settings.FormatDSN()
		if strings.Contains(dsn, "charset") {
			t.Fatalf("\nwanted:\nno charset parameter\ngot:\n%q", dsn)
		}
	})
}

func TestConnQuote(t *testing.T) {
	t.Run("should refuse to quote on a closed connection", func(t *testing.T) {
		conn := &Conn{}

		_, err := conn.Quote("value")
		if err != ErrClosed {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrClosed, err)
		}
	})
}

func TestConnFail(t *testing.T) {
	t.Run("should map a MySQL server error to the triple", func(t *testing.T) {
		conn := &Conn{}
		conn.fail(&gomysql.MySQLError{
			Number:   1146,
			SQLState: [5]byte{'4', '2', 'S', '0', '2'},
			Message:  "Table 'orders.missing' doesn't exist",
		})

		info := conn.LastError()
		if info.SQLState != "42S02" {
			t.Fatalf("\nwanted:\n42S02\ngot:\n%q", info.SQLState)
		}
		if info.Code != 1146 {
			t.Fatalf("\nwanted:\n1146\ngot:\n%d", info.Code)
		}
		if info.Message != "Table 'orders.missing' doesn't exist" {
			t.Fatalf("\nwanted:\ntable message\ngot:\n%q", info.Message)
		}
	})

	t.Run("should default the SQLSTATE when the server sent none", func(t *testing.T) {
		conn := &Conn{}
		conn.fail(&gomysql.MySQLError{Number: 1045, Message: "Access denied"})

		if got := conn.LastError().SQLState; got != "HY000" {
			t.Fatalf("\nwanted:\nHY000\ngot:\n%q", got)
		}
	})

	t.Run("should wrap non-server errors with a generic state", func(t *testing.T) {
		conn := &Conn{}
		conn.fail(ErrClosed)

		info := conn.LastError()
		if info.SQLState != "HY000" || info.Code != 0 {
			t.Fatalf("\nwanted:\nHY000 with code 0\ngot:\n%v", info)
		}
		if info.Message != ErrClosed.Error() {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", ErrClosed.Error(), info.Message)
		}
	})
}

func TestConnClosedState(t *testing.T) {
	t.Run("should report closed on every statement capability", func(t *testing.T) {
		conn := &Conn{}
		ctx := context.Background()

		if _, err := conn.Exec(ctx, "SELECT 1"); err != ErrClosed {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrClosed, err)
		}
		if _, err := conn.Query(ctx, "SELECT 1"); err != ErrClosed {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrClosed, err)
		}
		if _, err := conn.Prepare(ctx, "SELECT 1"); err != ErrClosed {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrClosed, err)
		}
		if err := conn.Begin(ctx); err != ErrClosed {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrClosed, err)
		}
	})

	t.Run("should report the missing transaction on commit and rollback", func(t *testing.T) {
		conn := &Conn{}
		ctx := context.Background()

		if err := conn.Commit(ctx); err != ErrNoTx {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNoTx, err)
		}
		if err := conn.Rollback(ctx); err != ErrNoTx {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNoTx, err)
		}
	})

	t.Run("should close idempotently", func(t *testing.T) {
		conn := &Conn{}
		if err := conn.Close(); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := conn.Close(); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})
}

func TestConnTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("should keep the handle after a failed commit so rollback can settle it", func(t *testing.T) {
		conn := newTestConn(t)

		if err := conn.Begin(ctx); err != nil {
			t.Fatalf("beginning transaction : %v", err)
		}
		// Settle the transaction underneath the driver so the commit fails.
		if err := conn.tx.Commit(); err != nil {
			t.Fatalf("settling transaction : %v", err)
		}

		err := conn.Commit(ctx)
		if !errors.Is(err, sql.ErrTxDone) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", sql.ErrTxDone, err)
		}
		if conn.tx == nil {
			t.Fatalf("\nwanted:\nthe transaction handle\ngot:\nnil")
		}

		if err := conn.Rollback(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if conn.tx != nil {
			t.Fatalf("\nwanted:\nno transaction handle\ngot:\n%v", conn.tx)
		}

		if err := conn.Begin(ctx); err != nil {
			t.Fatalf("beginning fresh transaction : %v", err)
		}
		if err := conn.Commit(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})

	t.Run("should refuse to stack physical transactions", func(t *testing.T) {
		conn := newTestConn(t)

		if err := conn.Begin(ctx); err != nil {
			t.Fatalf("beginning transaction : %v", err)
		}
		if err := conn.Begin(ctx); err != ErrTxOpen {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrTxOpen, err)
		}
		if err := conn.Rollback(ctx); err != nil {
			t.Fatalf("rolling back : %v", err)
		}
	})
}

func TestConnAttributes(t *testing.T) {
	t.Run("should round-trip attributes", func(t *testing.T) {
		conn := &Conn{attrs: map[string]any{"encoding": "utf-8"}}

		if value, ok := conn.Attribute("encoding"); !ok || value != "utf-8" {
			t.Fatalf("\nwanted:\nutf-8\ngot:\n%v (%v)", value, ok)
		}

		conn.SetAttribute("team", "payments")
		if value, ok := conn.Attribute("team"); !ok || value != "payments" {
			t.Fatalf("\nwanted:\npayments\ngot:\n%v (%v)", value, ok)
		}

		if _, ok := conn.Attribute("missing"); ok {
			t.Fatalf("\nwanted:\nno value\ngot:\npresent")
		}
	})

	t.Run("should allocate the store on first set", func(t *testing.T) {
		var conn Conn

		conn.SetAttribute("encoding", "utf-8")
		if value, ok := conn.Attribute("encoding"); !ok || value != "utf-8" {
			t.Fatalf("\nwanted:\nutf-8\ngot:\n%v (%v)", value, ok)
		}
	})
}

package aradel

import "context"

// TxConn is the transaction control surface the guard drives. The full
// Driver interface satisfies it.
type TxConn interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxGuard flattens nested transaction requests into a single physical
// transaction. Each Begin increments a depth counter; only the transition
// from zero issues the physical begin, and only the commit that returns the
// counter to zero issues the physical commit. Rollback aborts the physical
// transaction at any depth.
//
// A TxGuard is not safe for concurrent use. Callers that share a connection
// across goroutines serialize access themselves.
type TxGuard struct {
	conn   TxConn
	depth  int
	active bool
}

// NewTxGuard returns a guard wrapping the given transaction surface.
func NewTxGuard(conn TxConn) *TxGuard {
	return &TxGuard{conn: conn}
}

// Begin enters a transaction span. The first span opens the physical
// transaction; nested calls only deepen the counter. When the physical begin
// fails the error is returned unchanged and the counter is not touched.
func (guard *TxGuard) Begin(ctx context.Context) error {
	if !guard.active {
		if err := guard.conn.Begin(ctx); err != nil {
			return err
		}
		guard.active = true
	}
	guard.depth++
	return nil
}

// Commit leaves the innermost span. The physical commit is issued only when
// the outermost span closes; inner commits and commits without a matching
// begin are no-ops. The depth never goes below zero. When the physical
// commit fails the error is returned unchanged and the transaction stays
// active, so the caller can retry or roll back.
func (guard *TxGuard) Commit(ctx context.Context) error {
	if guard.depth > 0 {
		guard.depth--
	}
	if guard.active && guard.depth == 0 {
		if err := guard.conn.Commit(ctx); err != nil {
			return err
		}
		guard.active = false
	}
	return nil
}

// Rollback aborts the physical transaction regardless of nesting depth. The
// depth resets to zero unconditionally; the active flag clears only when the
// physical rollback succeeds. Rolling back with no active transaction is a
// no-op.
func (guard *TxGuard) Rollback(ctx context.Context) error {
	guard.depth = 0
	if !guard.active {
		return nil
	}
	if err := guard.conn.Rollback(ctx); err != nil {
		return err
	}
	guard.active = false
	return nil
}

// Active reports whether a physical transaction is open.
func (guard *TxGuard) Active() bool {
	return guard.active
}

// Depth returns the current nesting depth.
func (guard *TxGuard) Depth() int {
	return guard.depth
}

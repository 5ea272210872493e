package aradel

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// spyTxConn records the physical transaction calls the guard issues and can
// be forced to fail any of them.
type spyTxConn struct {
	calls       []string
	beginErr    error
	commitErr   error
	rollbackErr error
}

func (s *spyTxConn) Begin(ctx context.Context) error {
	s.calls = append(s.calls, "begin")
	return s.beginErr
}

func (s *spyTxConn) Commit(ctx context.Context) error {
	s.calls = append(s.calls, "commit")
	return s.commitErr
}

func (s *spyTxConn) Rollback(ctx context.Context) error {
	s.calls = append(s.calls, "rollback")
	return s.rollbackErr
}

func TestTxGuardBegin(t *testing.T) {
	ctx := context.Background()

	t.Run("should open the physical transaction only on the first begin", func(t *testing.T) {
		spy := &spyTxConn{}
		guard := NewTxGuard(spy)

		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		want := []string{"begin"}
		if !reflect.DeepEqual(want, spy.calls) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, spy.calls)
		}
		if guard.Depth() != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", guard.Depth())
		}
		if !guard.Active() {
			t.Fatalf("\nwanted:\nactive guard\ngot:\ninactive")
		}
	})

	t.Run("should not deepen the counter when the physical begin fails", func(t *testing.T) {
		spy := &spyTxConn{beginErr: errors.New("forced begin error")}
		guard := NewTxGuard(spy)

		err := guard.Begin(ctx)
		if !errors.Is(err, spy.beginErr) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", spy.beginErr, err)
		}
		if guard.Depth() != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", guard.Depth())
		}
		if guard.Active() {
			t.Fatalf("\nwanted:\ninactive guard\ngot:\nactive")
		}
	})
}

func TestTxGuardCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("should issue one physical begin and one physical commit for nested spans", func(t *testing.T) {
		spy := &spyTxConn{}
		guard := NewTxGuard(spy)

		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning outer span : %v", err)
		}
		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning inner span : %v", err)
		}
		if err := guard.Commit(ctx); err != nil {
			t.Fatalf("committing inner span : %v", err)
		}

		want := []string{"begin"}
		if !reflect.DeepEqual(want, spy.calls) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, spy.calls)
		}

		if err := guard.Commit(ctx); err != nil {
			t.Fatalf("committing outer span : %v", err)
		}

		want = []string{"begin", "commit"}
		if !reflect.DeepEqual(want, spy.calls) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, spy.calls)
		}
		if guard.Active() {
			t.Fatalf("\nwanted:\ninactive guard\ngot:\nactive")
		}
		if guard.Depth() != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", guard.Depth())
		}
	})

	t.Run("should ignore a commit without a matching begin", func(t *testing.T) {
		spy := &spyTxConn{}
		guard := NewTxGuard(spy)

		if err := guard.Commit(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(spy.calls) != 0 {
			t.Fatalf("\nwanted:\nno physical calls\ngot:\n%v", spy.calls)
		}
		if guard.Depth() != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", guard.Depth())
		}
	})

	t.Run("should keep the transaction active when the physical commit fails", func(t *testing.T) {
		spy := &spyTxConn{commitErr: errors.New("forced commit error")}
		guard := NewTxGuard(spy)

		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning span : %v", err)
		}

		err := guard.Commit(ctx)
		if !errors.Is(err, spy.commitErr) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", spy.commitErr, err)
		}
		if !guard.Active() {
			t.Fatalf("\nwanted:\nactive guard\ngot:\ninactive")
		}
		if guard.Depth() != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", guard.Depth())
		}

		// The commit can be retried once the failure clears.
		spy.commitErr = nil
		if err := guard.Commit(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if guard.Active() {
			t.Fatalf("\nwanted:\ninactive guard\ngot:\nactive")
		}
	})
}

func TestTxGuardRollback(t *testing.T) {
	ctx := context.Background()

	t.Run("should roll back physically at any depth", func(t *testing.T) {
		spy := &spyTxConn{}
		guard := NewTxGuard(spy)

		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning outer span : %v", err)
		}
		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning inner span : %v", err)
		}
		if err := guard.Rollback(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		want := []string{"begin", "rollback"}
		if !reflect.DeepEqual(want, spy.calls) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, spy.calls)
		}
		if guard.Active() {
			t.Fatalf("\nwanted:\ninactive guard\ngot:\nactive")
		}
		if guard.Depth() != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", guard.Depth())
		}
	})

	t.Run("should make a commit after a rollback a no-op", func(t *testing.T) {
		spy := &spyTxConn{}
		guard := NewTxGuard(spy)

		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning outer span : %v", err)
		}
		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning inner span : %v", err)
		}
		if err := guard.Rollback(ctx); err != nil {
			t.Fatalf("rolling back : %v", err)
		}
		if err := guard.Commit(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		want := []string{"begin", "rollback"}
		if !reflect.DeepEqual(want, spy.calls) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, spy.calls)
		}
	})

	t.Run("should ignore a rollback with no active transaction", func(t *testing.T) {
		spy := &spyTxConn{}
		guard := NewTxGuard(spy)

		if err := guard.Rollback(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(spy.calls) != 0 {
			t.Fatalf("\nwanted:\nno physical calls\ngot:\n%v", spy.calls)
		}
	})

	t.Run("should stay active when the physical rollback fails", func(t *testing.T) {
		spy := &spyTxConn{rollbackErr: errors.New("forced rollback error")}
		guard := NewTxGuard(spy)

		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning span : %v", err)
		}

		err := guard.Rollback(ctx)
		if !errors.Is(err, spy.rollbackErr) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", spy.rollbackErr, err)
		}
		if !guard.Active() {
			t.Fatalf("\nwanted:\nactive guard\ngot:\ninactive")
		}
		if guard.Depth() != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", guard.Depth())
		}

		spy.rollbackErr = nil
		if err := guard.Rollback(ctx); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if guard.Active() {
			t.Fatalf("\nwanted:\ninactive guard\ngot:\nactive")
		}
	})

	t.Run("should allow a fresh begin after a completed cycle", func(t *testing.T) {
		spy := &spyTxConn{}
		guard := NewTxGuard(spy)

		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning first cycle : %v", err)
		}
		if err := guard.Commit(ctx); err != nil {
			t.Fatalf("committing first cycle : %v", err)
		}
		if err := guard.Begin(ctx); err != nil {
			t.Fatalf("beginning second cycle : %v", err)
		}
		if err := guard.Rollback(ctx); err != nil {
			t.Fatalf("rolling back second cycle : %v", err)
		}

		want := []string{"begin", "commit", "begin", "rollback"}
		if !reflect.DeepEqual(want, spy.calls) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, spy.calls)
		}
	})
}

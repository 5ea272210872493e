package core

import "sync/atomic"

// Counters tracks statement activity across connections. A registry hands
// the same instance to every connection it opens, so the totals aggregate
// process-wide without package-level state.
type Counters struct {
	queries  atomic.Uint64
	affected atomic.Uint64
}

// NewCounters returns a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// AddQuery records one issued statement.
func (c *Counters) AddQuery() {
	c.queries.Add(1)
}

// AddAffected records rows reported affected by an exec call.
// Negative values are ignored.
func (c *Counters) AddAffected(rows int64) {
	if rows > 0 {
		c.affected.Add(uint64(rows))
	}
}

// Queries returns the total number of statements issued so far.
func (c *Counters) Queries() uint64 {
	return c.queries.Load()
}

// Affected returns the total number of rows affected by exec calls so far.
func (c *Counters) Affected() uint64 {
	return c.affected.Load()
}

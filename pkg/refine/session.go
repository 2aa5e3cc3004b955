package refine

import "sync/atomic"

// Counter is the generation-session counter. Every refinement call advances
// it by one; a call whose captured id no longer matches has been superseded.
type Counter struct {
	current atomic.Uint64
}

// Begin starts a new session and returns its token
func (c *Counter) Begin() Token {
	return Token{id: c.current.Add(1), counter: c}
}

// Current returns the id of the most recently started session
func (c *Counter) Current() uint64 {
	return c.current.Load()
}

// Token identifies one refinement session
type Token struct {
	id      uint64
	counter *Counter
}

// ID returns the captured session id
func (t Token) ID() uint64 {
	return t.id
}

// Superseded reports whether a newer session has started since this one
func (t Token) Superseded() bool {
	return t.counter.Current() != t.id
}

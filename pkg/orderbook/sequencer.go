package orderbook

import "sync/atomic"

// IDGenerator hands out order ids. Ids must be strictly increasing.
type IDGenerator interface {
	Next() uint64
}

// Sequencer generates strictly monotonic order ids for one book.
type Sequencer struct {
	next atomic.Uint64
}

// NewSequencer creates a sequencer whose first id is start+1.
func NewSequencer(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued id.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer back to v. Used by tests and replays.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}

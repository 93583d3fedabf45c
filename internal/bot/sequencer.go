package bot

import (
	"sync"
)

// Sequencer runs tasks strictly in arrival order per actor while letting
// different actors proceed in parallel. Telegram delivers one actor's
// updates in order; handling them concurrently would let a later message
// observe conversation context from before an earlier one finished.
type Sequencer struct {
	mu     sync.Mutex
	queues map[int64]*actorQueue
	wg     sync.WaitGroup
}

type actorQueue struct {
	pending []func()
	running bool
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{queues: make(map[int64]*actorQueue)}
}

// Do enqueues fn for the given actor. It returns immediately; fn runs
// after every previously enqueued task for that actor has finished.
func (s *Sequencer) Do(actorID int64, fn func()) {
	s.mu.Lock()
	q, ok := s.queues[actorID]
	if !ok {
		q = &actorQueue{}
		s.queues[actorID] = q
	}
	q.pending = append(q.pending, fn)
	if !q.running {
		q.running = true
		s.wg.Add(1)
		go s.drain(q)
	}
	s.mu.Unlock()
}

func (s *Sequencer) drain(q *actorQueue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			s.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		s.mu.Unlock()
		fn()
	}
}

// Wait blocks until every queued task has run. Used on shutdown.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}

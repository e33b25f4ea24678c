package register

import (
	"sync"
	"time"

	appLog "progcal/internal/log"
	"progcal/internal/model"
)

// Sessions tracks open registration dialogs by session id. Each dialog
// owns its own Controller; nothing is shared between them.
type Sessions struct {
	submitter Submitter
	ttl       time.Duration

	mu   sync.Mutex
	byID map[string]*Controller
}

func NewSessions(s Submitter, ttl time.Duration) *Sessions {
	return &Sessions{
		submitter: s,
		ttl:       ttl,
		byID:      make(map[string]*Controller),
	}
}

// Open creates a dialog for p on date.
func (s *Sessions) Open(p model.Program, date string) (string, *Controller) {
	c := NewController(s.submitter)
	id := c.Open(p, date)

	s.mu.Lock()
	s.byID[id] = c
	s.mu.Unlock()
	return id, c
}

func (s *Sessions) Get(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	return c, ok
}

// Close discards the dialog. It reports whether the id was known.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	c, ok := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()

	if ok {
		c.Close()
	}
	return ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Prune closes dialogs idle for longer than the TTL. Dialogs waiting on a
// submission are kept. It returns the number closed.
func (s *Sessions) Prune(now time.Time) int {
	var stale []string

	s.mu.Lock()
	for id, c := range s.byID {
		touched, pending := c.idleSince()
		if !pending && now.Sub(touched) > s.ttl {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		s.Close(id)
	}
	if len(stale) > 0 {
		appLog.Info("registration sessions pruned", "count", len(stale), "ttl", s.ttl.String())
	}
	return len(stale)
}

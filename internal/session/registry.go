// Package session holds the process-local token registry.
//
// The registry backs two distinct credentials: login session tokens and
// password-reset codes. They live in separate maps so one kind of token
// can never be mistaken for the other. All state is in memory and is
// lost on process restart.
package session

import (
	"sync"
	"time"

	"github.com/coinflowhq/coinflow/internal/models"
)

// Registry maps opaque tokens to session or reset-ticket metadata.
// Safe for concurrent use; every operation is O(1) and never blocks on I/O.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	tickets  map[string]models.ResetTicket
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]models.Session),
		tickets:  make(map[string]models.ResetTicket),
	}
}

// PutSession records a login session under token, overwriting any prior entry
func (r *Registry) PutSession(token string, s models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[token] = s
}

// GetSession looks up a login session by token
func (r *Registry) GetSession(token string) (models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	return s, ok
}

// DeleteSession removes a login session. Idempotent.
func (r *Registry) DeleteSession(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

// PutTicket records a reset ticket under code, overwriting any prior entry
func (r *Registry) PutTicket(code string, t models.ResetTicket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[code] = t
}

// GetTicket looks up a reset ticket by code without consuming it
func (r *Registry) GetTicket(code string) (models.ResetTicket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[code]
	return t, ok
}

// DeleteTicket removes a reset ticket. Idempotent.
func (r *Registry) DeleteTicket(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, code)
}

// ConsumeTicket atomically claims the ticket stored under code. When the
// ticket exists and is live at now it is removed and returned; of any
// number of concurrent callers, exactly one gets ok. An expired ticket is
// removed as a side effect and reported as absent.
func (r *Registry) ConsumeTicket(code string, now time.Time) (models.ResetTicket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[code]
	if !ok {
		return models.ResetTicket{}, false
	}
	delete(r.tickets, code)
	if t.Expired(now) {
		return models.ResetTicket{}, false
	}
	return t, true
}

// Len reports the number of live sessions and tickets
func (r *Registry) Len() (sessions, tickets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions), len(r.tickets)
}

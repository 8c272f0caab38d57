package leadstore

import (
	"context"
	"sync"

	"github.com/m3rciful/leadbot/core/lead"
	"github.com/m3rciful/leadbot/core/phone"
)

// Memory keeps leads in process memory. Contents are lost on restart.
type Memory struct {
	mu     sync.Mutex
	leads  []lead.Lead
	phones map[string]struct{}
	ident  identity
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		phones: make(map[string]struct{}),
		ident:  defaultIdentity(),
	}
}

// Commit stores c unless its phone is already registered.
func (m *Memory) Commit(ctx context.Context, c lead.Candidate) (lead.Lead, error) {
	if err := ctx.Err(); err != nil {
		return lead.Lead{}, lead.Persistence("commit", err)
	}
	c = c.Trimmed()
	c.Phone = phone.Normalize(c.Phone)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.phones[c.Phone]; dup {
		return lead.Lead{}, lead.ErrDuplicatePhone
	}
	l := m.ident.build(c)
	m.phones[c.Phone] = struct{}{}
	m.leads = append(m.leads, l)
	return l, nil
}

// List returns leads in commit order.
func (m *Memory) List(ctx context.Context) ([]lead.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]lead.Lead, len(m.leads))
	copy(out, m.leads)
	return out, nil
}

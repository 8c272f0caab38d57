package ai

import (
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
)

const (
	defaultHistoryTurns = 8
	// historyIdleTTL drops conversations nobody touched for this long.
	historyIdleTTL = 30 * time.Minute
)

type conversation struct {
	msgs     []*schema.Message
	lastSeen time.Time
}

// History keeps the most recent messages exchanged with each user.
type History struct {
	mu        sync.Mutex
	limit     int
	idleTTL   time.Duration
	turns     map[string]*conversation
	lastSweep time.Time
	now       func() time.Time
}

// NewHistory keeps at most limit messages per user; limit <= 0 selects 8.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryTurns
	}
	return &History{
		limit:   limit,
		idleTTL: historyIdleTTL,
		turns:   make(map[string]*conversation),
		now:     time.Now,
	}
}

// Messages returns a copy of the stored messages for userID, oldest first.
func (h *History) Messages(userID string) []*schema.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.turns[userID]
	if !ok || h.now().Sub(c.lastSeen) > h.idleTTL {
		return nil
	}
	out := make([]*schema.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Append records msgs and drops the oldest ones beyond the limit.
func (h *History) Append(userID string, msgs ...*schema.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	h.sweep(now)

	c, ok := h.turns[userID]
	if !ok {
		c = &conversation{}
		h.turns[userID] = c
	}
	all := append(c.msgs, msgs...)
	if len(all) > h.limit {
		all = append([]*schema.Message(nil), all[len(all)-h.limit:]...)
	}
	c.msgs = all
	c.lastSeen = now
}

// sweep removes idle conversations, at most once per half TTL.
func (h *History) sweep(now time.Time) {
	if now.Sub(h.lastSweep) < h.idleTTL/2 {
		return
	}
	h.lastSweep = now
	for id, c := range h.turns {
		if now.Sub(c.lastSeen) > h.idleTTL {
			delete(h.turns, id)
		}
	}
}

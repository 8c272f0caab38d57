// Package lead defines the committed lead record and the sink contract that persists it.
package lead

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicatePhone is reported by a Sink when a lead with the same normalized phone exists.
var ErrDuplicatePhone = errors.New("lead: phone already registered")

// PersistenceError wraps storage or network faults raised while committing or listing.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return "lead: " + e.Op + " failed"
	}
	return fmt.Sprintf("lead: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Code exposes a stable error code for logs.
func (e *PersistenceError) Code() string { return "LEAD_PERSISTENCE" }

// Persistence wraps err as a *PersistenceError unless it is nil or already a duplicate.
func Persistence(op string, err error) error {
	if err == nil || errors.Is(err, ErrDuplicatePhone) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Candidate is a validated, not yet committed lead.
type Candidate struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Lead is a committed record. It is immutable once returned by a Sink.
type Lead struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Name      string    `json:"name" db:"name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
}

// Sink commits candidates. Implementations assign ID and CreatedAt and enforce phone uniqueness.
type Sink interface {
	Commit(ctx context.Context, c Candidate) (Lead, error)
}

// Store is a Sink that can also list what it holds.
type Store interface {
	Sink
	List(ctx context.Context) ([]Lead, error)
}

// Build assembles a Lead from a candidate and the identity assigned by a sink.
func Build(id string, createdAt time.Time, c Candidate) Lead {
	return Lead{
		ID:        id,
		CreatedAt: createdAt.UTC(),
		Name:      c.Name,
		LastName:  c.LastName,
		Phone:     c.Phone,
		Address:   c.Address,
	}
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (c Candidate) Trimmed() Candidate {
	return Candidate{
		Name:     strings.TrimSpace(c.Name),
		LastName: strings.TrimSpace(c.LastName),
		Phone:    strings.TrimSpace(c.Phone),
		Address:  strings.TrimSpace(c.Address),
	}
}

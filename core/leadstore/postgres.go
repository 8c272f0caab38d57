package leadstore

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/leadbot/core/lead"
	"github.com/m3rciful/leadbot/core/phone"
)

const uniqueViolation pq.ErrorCode = "23505"

const (
	insertLeadSQL = `INSERT INTO leads (id, created_at, name, last_name, phone, address)
VALUES (:id, :created_at, :name, :last_name, :phone, :address)`
	listLeadsSQL = `SELECT id, created_at, name, last_name, phone, address FROM leads ORDER BY created_at, id`
)

// Postgres stores leads in the leads table. Phone uniqueness is enforced by a unique index.
type Postgres struct {
	db    *sqlx.DB
	ident identity
}

// NewPostgres wraps an open connection. The schema is created by the migrations.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, ident: defaultIdentity()}
}

// Commit inserts c; a unique violation on phone becomes lead.ErrDuplicatePhone.
func (p *Postgres) Commit(ctx context.Context, c lead.Candidate) (lead.Lead, error) {
	c = c.Trimmed()
	c.Phone = phone.Normalize(c.Phone)
	l := p.ident.build(c)
	if _, err := p.db.NamedExecContext(ctx, insertLeadSQL, l); err != nil {
		return lead.Lead{}, mapInsertError(err)
	}
	return l, nil
}

// List returns all leads ordered by creation time.
func (p *Postgres) List(ctx context.Context) ([]lead.Lead, error) {
	out := make([]lead.Lead, 0)
	if err := p.db.SelectContext(ctx, &out, listLeadsSQL); err != nil {
		return nil, lead.Persistence("list", err)
	}
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
	}
	return out, nil
}

func mapInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return lead.ErrDuplicatePhone
	}
	return lead.Persistence("insert", err)
}

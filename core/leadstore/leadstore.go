// Package leadstore provides the lead.Store backends: memory, csv and postgres.
package leadstore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/lead"
	"github.com/m3rciful/leadbot/core/logger"
)

// Open returns the backend selected by cfg. db is only used by the postgres backend.
func Open(cfg config.LeadsConfig, db *sqlx.DB) (lead.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemory(), nil
	case config.BackendCSV:
		return NewCSV(cfg.CSVPath), nil
	case config.BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("leadstore: postgres backend requires a database connection")
		}
		return NewPostgres(db), nil
	}
	return nil, fmt.Errorf("leadstore: unknown backend %q", cfg.Backend)
}

// identity assigns lead ids and timestamps; tests replace it.
type identity struct {
	newID func() string
	now   func() time.Time
}

func defaultIdentity() identity {
	return identity{newID: uuid.NewString, now: time.Now}
}

func (i identity) build(c lead.Candidate) lead.Lead {
	return lead.Build(i.newID(), i.now(), c)
}

func leadsLog() *slog.Logger {
	if l := logger.Component("leads"); l != nil {
		return l
	}
	return slog.Default()
}

package leadstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m3rciful/leadbot/core/lead"
	"github.com/m3rciful/leadbot/core/phone"
)

// CSV appends leads to a comma separated file laid out like the lead spreadsheet:
// a header row followed by one row per lead in lead.Header order.
type CSV struct {
	path  string
	mu    sync.Mutex
	ident identity
}

// NewCSV returns a store backed by the file at path. The file is created on first commit.
func NewCSV(path string) *CSV {
	return &CSV{path: path, ident: defaultIdentity()}
}

// Commit appends c after checking every existing row for the same normalized phone.
func (s *CSV) Commit(ctx context.Context, c lead.Candidate) (lead.Lead, error) {
	if err := ctx.Err(); err != nil {
		return lead.Lead{}, lead.Persistence("commit", err)
	}
	c = c.Trimmed()
	c.Phone = phone.Normalize(c.Phone)

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return lead.Lead{}, lead.Persistence("mkdir", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return lead.Lead{}, lead.Persistence("open", err)
	}
	defer f.Close()

	records, err := readRecords(f)
	if err != nil {
		return lead.Lead{}, lead.Persistence("read", err)
	}
	for _, r := range records {
		if lead.NormalizeRecord(r)["phone"] == c.Phone {
			return lead.Lead{}, lead.ErrDuplicatePhone
		}
	}

	info, err := f.Stat()
	if err != nil {
		return lead.Lead{}, lead.Persistence("stat", err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return lead.Lead{}, lead.Persistence("seek", err)
	}

	l := s.ident.build(c)
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(lead.Header); err != nil {
			return lead.Lead{}, lead.Persistence("append", err)
		}
	}
	if err := w.Write(l.Row()); err != nil {
		return lead.Lead{}, lead.Persistence("append", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return lead.Lead{}, lead.Persistence("append", err)
	}
	if err := f.Sync(); err != nil {
		return lead.Lead{}, lead.Persistence("sync", err)
	}
	return l, nil
}

// List returns every parsable row. Rows without an id are skipped.
func (s *CSV) List(ctx context.Context) ([]lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []lead.Lead{}, nil
	}
	if err != nil {
		return nil, lead.Persistence("open", err)
	}
	defer f.Close()

	records, err := readRecords(f)
	if err != nil {
		return nil, lead.Persistence("read", err)
	}
	out := make([]lead.Lead, 0, len(records))
	for i, r := range records {
		l, err := lead.FromRecord(r)
		if err != nil {
			leadsLog().WarnContext(ctx, "skipping csv row",
				slog.String("event", "csv_row_skipped"),
				slog.String("path", s.path),
				slog.Int("row", i+2),
				slog.String("err", err.Error()),
			)
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// readRecords reads all data rows keyed by the file's own header row.
func readRecords(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(row) {
				rec[key] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

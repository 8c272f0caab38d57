package lead

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/phone"
)

// Header is the positional column order shared with existing spreadsheets.
var Header = []string{"id", "created_at", "name", "last_name", "phone", "address"}

// TimeLayout renders created_at as ISO-8601 UTC.
const TimeLayout = time.RFC3339Nano

// Row renders the lead in Header order.
func (l Lead) Row() []string {
	return []string{
		l.ID,
		l.CreatedAt.UTC().Format(TimeLayout),
		l.Name,
		l.LastName,
		l.Phone,
		l.Address,
	}
}

// FromRow parses a positional row produced by Row.
func FromRow(row []string) (Lead, error) {
	if len(row) < len(Header) {
		return Lead{}, fmt.Errorf("lead: row has %d columns, want %d", len(row), len(Header))
	}
	rec := make(map[string]string, len(Header))
	for i, key := range Header {
		rec[key] = row[i]
	}
	return FromRecord(rec)
}

// FromRecord converts a header-keyed record into a Lead after NormalizeRecord.
// An unparsable created_at is kept as the zero time.
func FromRecord(r map[string]string) (Lead, error) {
	n := NormalizeRecord(r)
	if n["id"] == "" {
		return Lead{}, fmt.Errorf("lead: record without id")
	}
	var created time.Time
	if raw := n["created_at"]; raw != "" {
		if t, err := time.Parse(TimeLayout, raw); err == nil {
			created = t.UTC()
		}
	}
	return Lead{
		ID:        n["id"],
		CreatedAt: created,
		Name:      n["name"],
		LastName:  n["last_name"],
		Phone:     n["phone"],
		Address:   n["address"],
	}, nil
}

// NormalizeRecord cleans a record read from a spreadsheet. Values are trimmed,
// the historical "crated_at" header is accepted and the phone is normalized.
func NormalizeRecord(r map[string]string) map[string]string {
	created := strings.TrimSpace(r["created_at"])
	if created == "" {
		created = strings.TrimSpace(r["crated_at"])
	}
	p := strings.TrimSpace(r["phone"])
	if p != "" {
		p = phone.Normalize(p)
	}
	return map[string]string{
		"id":         strings.TrimSpace(r["id"]),
		"created_at": created,
		"name":       strings.TrimSpace(r["name"]),
		"last_name":  strings.TrimSpace(r["last_name"]),
		"phone":      p,
		"address":    strings.TrimSpace(r["address"]),
	}
}

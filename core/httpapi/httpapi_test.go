package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m3rciful/leadbot/core/lead"
	"github.com/m3rciful/leadbot/core/leadstore"
)

type failingStore struct{}

func (failingStore) Commit(context.Context, lead.Candidate) (lead.Lead, error) {
	return lead.Lead{}, lead.Persistence("append", errors.New("disk full"))
}

func (failingStore) List(context.Context) ([]lead.Lead, error) {
	return nil, lead.Persistence("read", errors.New("disk gone"))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, NewRouter(RouterDeps{}), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAndListLeads(t *testing.T) {
	h := NewRouter(RouterDeps{Leads: leadstore.NewMemory()})

	rec := do(t, h, http.MethodPost, "/leads", `{"name":"Ana","last_name":"García","phone":"+34 654 789 098","address":"C/ Mayor 1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var created lead.Lead
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Phone != "654789098" || created.CreatedAt.IsZero() {
		t.Fatalf("unexpected lead %+v", created)
	}

	rec = do(t, h, http.MethodPost, "/leads", `{"name":"Otra","last_name":"Persona","phone":"654789098","address":"C/ Luna 2"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status %d", rec.Code)
	}
	var detail map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &detail)
	if detail["detail"] == "" {
		t.Fatalf("duplicate response should carry detail, got %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/leads", "")
	var leads []lead.Lead
	if err := json.Unmarshal(rec.Body.Bytes(), &leads); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if rec.Code != http.StatusOK || len(leads) != 1 || leads[0].ID != created.ID {
		t.Fatalf("unexpected list %d %v", rec.Code, leads)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	rec := do(t, NewRouter(RouterDeps{Leads: leadstore.NewMemory()}), http.MethodGet, "/leads", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestCreateLeadValidation(t *testing.T) {
	h := NewRouter(RouterDeps{Leads: leadstore.NewMemory()})
	cases := map[string]string{
		"bad json":      `{"name":`,
		"missing field": `{"name":"Ana","last_name":"García","phone":"654789098"}`,
		"short phone":   `{"name":"Ana","last_name":"García","phone":"65478","address":"C/ Mayor 1"}`,
		"bad prefix":    `{"name":"Ana","last_name":"García","phone":"154789098","address":"C/ Mayor 1"}`,
	}
	for name, body := range cases {
		rec := do(t, h, http.MethodPost, "/leads", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status %d, want 422", name, rec.Code)
		}
	}
}

func TestStoreFailures(t *testing.T) {
	h := NewRouter(RouterDeps{Leads: failingStore{}})
	if rec := do(t, h, http.MethodPost, "/leads", `{"name":"Ana","last_name":"García","phone":"654789098","address":"C/ Mayor 1"}`); rec.Code != http.StatusInternalServerError {
		t.Fatalf("commit failure status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/leads", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("list failure status %d", rec.Code)
	}
}

func TestOptionalMounts(t *testing.T) {
	hit := ""
	mark := func(name string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = name
			w.WriteHeader(http.StatusOK)
		})
	}
	h := NewRouter(RouterDeps{Metrics: mark("metrics"), WhatsApp: mark("whatsapp")})

	if do(t, h, http.MethodGet, "/metrics", ""); hit != "metrics" {
		t.Fatalf("metrics not mounted, hit=%q", hit)
	}
	if do(t, h, http.MethodPost, "/webhook/whatsapp", "{}"); hit != "whatsapp" {
		t.Fatalf("whatsapp webhook not mounted, hit=%q", hit)
	}

	bare := NewRouter(RouterDeps{})
	if rec := do(t, bare, http.MethodGet, "/leads", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("leads should not be mounted without a store, got %d", rec.Code)
	}
}

func TestRecovererReturns500(t *testing.T) {
	h := NewRouter(RouterDeps{Metrics: http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })})
	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
}

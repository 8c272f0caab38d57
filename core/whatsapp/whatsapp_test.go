package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/leadbot/core/config"
)

type fakeConversation struct {
	mu    sync.Mutex
	calls []string
	reply string
}

func (f *fakeConversation) Handle(_ context.Context, userID, text string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID+"|"+text)
	return f.reply
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) SendText(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+"|"+body)
	return f.err
}

const textEvent = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "messages": [
          {"from": "34600111222", "id": "wamid.1", "type": "text", "text": {"body": "hola"}},
          {"from": "34600111222", "id": "wamid.2", "type": "image"},
          {"from": "", "id": "wamid.3", "type": "text", "text": {"body": "sin remitente"}}
        ]
      }
    }]
  }]
}`

const statusEvent = `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.1","status":"delivered"}]}}]}]}`

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func post(t *testing.T, h *Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestVerify(t *testing.T) {
	h := NewHandler(Options{VerifyToken: "secret-token"})
	cases := []struct {
		query  string
		status int
	}{
		{"hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", http.StatusOK},
		{"hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", http.StatusForbidden},
		{"hub.mode=unsubscribe&hub.verify_token=secret-token&hub.challenge=12345", http.StatusForbidden},
		{"hub.mode=subscribe&hub.verify_token=secret-token", http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s: status %d, want %d", tc.query, rec.Code, tc.status)
		}
		if tc.status == http.StatusOK && rec.Body.String() != "12345" {
			t.Fatalf("challenge not echoed: %q", rec.Body.String())
		}
	}
}

func TestVerifyRejectsEmptyConfiguredToken(t *testing.T) {
	h := NewHandler(Options{})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?hub.mode=subscribe&hub.verify_token=&hub.challenge=1", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}
}

func TestReceiveTextMessages(t *testing.T) {
	conv := &fakeConversation{reply: "¿Cómo te llamas?"}
	snd := &fakeSender{}
	h := NewHandler(Options{Conversation: conv, Sender: snd})

	rec := post(t, h, textEvent, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if body := decode(t, rec); body["ok"] != true || body["detail"] != nil {
		t.Fatalf("unexpected body %v", body)
	}
	if len(conv.calls) != 1 || conv.calls[0] != "whatsapp:34600111222|hola" {
		t.Fatalf("unexpected conversation calls %v", conv.calls)
	}
	if len(snd.sent) != 1 || snd.sent[0] != "34600111222|¿Cómo te llamas?" {
		t.Fatalf("unexpected sends %v", snd.sent)
	}
}

func TestReceiveStatusOnly(t *testing.T) {
	conv := &fakeConversation{}
	rec := post(t, NewHandler(Options{Conversation: conv}), statusEvent, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if body := decode(t, rec); body["ok"] != true || body["detail"] != "no messages" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(conv.calls) != 0 {
		t.Fatalf("status events must not reach the conversation")
	}
}

func TestReceiveInvalidJSON(t *testing.T) {
	rec := post(t, NewHandler(Options{}), "{not json", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestReceiveSignature(t *testing.T) {
	conv := &fakeConversation{}
	h := NewHandler(Options{Conversation: conv, AppSecret: "app-secret"})

	if rec := post(t, h, textEvent, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing signature: status %d", rec.Code)
	}
	bad := map[string]string{signatureHeader: sign("other", textEvent)}
	if rec := post(t, h, textEvent, bad); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature: status %d", rec.Code)
	}
	garbage := map[string]string{signatureHeader: "sha256=zz"}
	if rec := post(t, h, textEvent, garbage); rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-hex signature: status %d", rec.Code)
	}
	good := map[string]string{signatureHeader: sign("app-secret", textEvent)}
	if rec := post(t, h, textEvent, good); rec.Code != http.StatusOK {
		t.Fatalf("valid signature: status %d", rec.Code)
	}
	if len(conv.calls) != 1 {
		t.Fatalf("only the signed request should be processed, got %d", len(conv.calls))
	}
}

func TestReceiveSendFailureStillOK(t *testing.T) {
	h := NewHandler(Options{
		Conversation: &fakeConversation{reply: "hola"},
		Sender:       &fakeSender{err: errors.New("boom")},
	})
	if rec := post(t, h, textEvent, nil); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestClientSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.x"}]}`)
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{
		APIBase:       srv.URL + "/",
		APIVersion:    "v19.0",
		PhoneNumberID: "555",
		AccessToken:   "tok",
	}, srv.Client())

	if err := c.SendText(context.Background(), "34600111222", "hola"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotPath != "/v19.0/555/messages" || gotAuth != "Bearer tok" {
		t.Fatalf("unexpected request %s %s", gotPath, gotAuth)
	}
	if gotBody["messaging_product"] != "whatsapp" || gotBody["to"] != "34600111222" || gotBody["type"] != "text" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if text, _ := gotBody["text"].(map[string]any); text["body"] != "hola" {
		t.Fatalf("unexpected text %v", gotBody["text"])
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"invalid recipient"}}`)
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{APIBase: srv.URL, APIVersion: "v19.0", PhoneNumberID: "1", AccessToken: "t"}, srv.Client())
	err := c.SendText(context.Background(), "1", "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || !strings.Contains(apiErr.Body, "invalid recipient") {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if apiErr.Retryable() {
		t.Fatal("400 must not be retryable")
	}
	if !(&APIError{StatusCode: 503}).Retryable() {
		t.Fatal("503 should be retryable")
	}
}

func TestClientWithoutCredentialsSkips(t *testing.T) {
	c := NewClient(config.WhatsAppConfig{APIBase: "http://127.0.0.1:1"}, nil)
	if err := c.SendText(context.Background(), "1", "x"); err != nil {
		t.Fatalf("expected silent skip, got %v", err)
	}
}

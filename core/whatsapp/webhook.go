// Package whatsapp receives WhatsApp Cloud API webhooks and answers through the Graph API.
package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/sender"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
	maxBodyBytes    = 1 << 20
)

// Conversation answers one inbound text for a platform user id.
type Conversation interface {
	Handle(ctx context.Context, userID, text string) string
}

// TextSender delivers a reply to a WhatsApp user.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// Options wires a webhook Handler.
type Options struct {
	Conversation Conversation
	Sender       TextSender
	// Dispatcher, when set, sends replies asynchronously.
	Dispatcher  *sender.Dispatcher
	VerifyToken string
	// AppSecret enables X-Hub-Signature-256 verification when non-empty.
	AppSecret string
}

// Handler serves GET (subscription check) and POST (events) on the webhook path.
type Handler struct {
	opts Options
}

// NewHandler returns a Handler for opts.
func NewHandler(opts Options) *Handler {
	return &Handler{opts: opts}
}

// UserID returns the platform-qualified id used by the conversation engine.
func UserID(waID string) string {
	return "whatsapp:" + waID
}

// Routes mounts the webhook endpoints at the router root.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Verify)
	r.Post("/", h.Receive)
	return r
}

// Verify answers the hub.challenge handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	tokenOK := h.opts.VerifyToken != "" && token == h.opts.VerifyToken
	logger.Debug(r.Context(), "wa", "webhook.verify",
		slog.String("mode", mode),
		slog.Bool("token_ok", tokenOK),
		slog.Bool("challenge", challenge != ""),
	)

	if mode != "subscribe" || !tokenOK || challenge == "" {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "Webhook verification failed"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// Receive processes an events notification. Messages are handled in order
// and the response is 200 unless the body is unsigned or malformed.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid body"})
		return
	}

	if h.opts.AppSecret != "" {
		if detail, ok := verifySignature(h.opts.AppSecret, raw, r.Header.Get(signatureHeader)); !ok {
			logger.Warn(ctx, "wa", "webhook.signature",
				slog.String("status", "fail"),
				slog.String("reason", detail),
			)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": detail})
			return
		}
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid JSON"})
		return
	}

	msgs := payload.Messages()
	if len(msgs) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "detail": "no messages"})
		return
	}

	handled := 0
	for _, m := range msgs {
		text := m.TextBody()
		if m.From == "" || text == "" {
			continue
		}
		h.handleMessage(ctx, m.From, text)
		handled++
	}

	logger.Info(ctx, "wa", "webhook.handled",
		slog.String("status", "ok"),
		slog.Int("messages", len(msgs)),
		slog.Int("handled", handled),
	)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleMessage(ctx context.Context, from, text string) {
	userID := UserID(from)
	ctx = logger.WithUser(ctx, userID)
	if logger.ShouldSampleDebugFor(userID) {
		logger.Debug(ctx, "wa", "message.received",
			slog.String("wa_id", from),
			slog.String("payload", logger.SanitizeLimit(text, 64)),
		)
	}
	if h.opts.Conversation == nil {
		return
	}
	reply := strings.TrimSpace(h.opts.Conversation.Handle(ctx, userID, text))
	if reply == "" || h.opts.Sender == nil {
		return
	}

	run := func(ctx context.Context) error {
		return h.opts.Sender.SendText(ctx, from, reply)
	}
	if d := h.opts.Dispatcher; d != nil {
		err := d.Enqueue(ctx, sender.Job{
			Platform: sender.PlatformWhatsApp,
			Action:   "send.reply",
			Endpoint: "messages",
			Run:      run,
		})
		if err == nil {
			return
		}
		logger.Warn(ctx, "wa", "queue.fallback", slog.String("err", err.Error()))
	}
	if err := run(ctx); err != nil {
		logger.Warn(ctx, "wa", "send.failed",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

// verifySignature checks header against HMAC-SHA256(body) keyed by secret.
func verifySignature(secret string, body []byte, header string) (string, bool) {
	if !strings.HasPrefix(header, signaturePrefix) {
		return "Missing/invalid X-Hub-Signature-256", false
	}
	got, err := hex.DecodeString(strings.TrimSpace(strings.TrimPrefix(header, signaturePrefix)))
	if err != nil {
		return "Invalid signature", false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return "Invalid signature", false
	}
	return "", true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

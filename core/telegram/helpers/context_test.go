package helpers

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
)

type stubContext struct {
	tele.Context
	chat  *tele.Chat
	store map[string]any
}

func (c *stubContext) Chat() *tele.Chat      { return c.chat }
func (c *stubContext) Sender() *tele.User    { return &tele.User{ID: 77} }
func (c *stubContext) Update() tele.Update   { return tele.Update{ID: 5} }
func (c *stubContext) Get(key string) any    { return c.store[key] }
func (c *stubContext) Set(key string, v any) { c.store[key] = v }

func TestBuildContextCachesAndTags(t *testing.T) {
	c := &stubContext{chat: &tele.Chat{ID: 42}, store: map[string]any{}}

	ctx := BuildContext(c)
	if got := logger.RIDFrom(ctx); got != "5:42:77" {
		t.Fatalf("rid = %q", got)
	}
	if got := logger.UserIDFrom(ctx); got != "telegram:42" {
		t.Fatalf("user id = %q", got)
	}
	if again := BuildContext(c); again != ctx {
		t.Fatalf("second BuildContext should return the stored context")
	}

	tagged := WithHandler(c, "text")
	if logger.HandlerFrom(tagged) != "text" {
		t.Fatalf("handler not set")
	}
	if stored, _ := ContextFrom(c); stored != tagged {
		t.Fatalf("tagged context should replace the stored one")
	}
}

func TestNewContextReusesRID(t *testing.T) {
	c := &stubContext{store: map[string]any{"rid": "custom"}}
	ctx := NewContext(c)
	if logger.RIDFrom(ctx) != "custom" {
		t.Fatalf("rid = %q", logger.RIDFrom(ctx))
	}
	if logger.UserIDFrom(ctx) != "" || ChatID(c) != 0 {
		t.Fatalf("update without chat must not get a user id")
	}
}

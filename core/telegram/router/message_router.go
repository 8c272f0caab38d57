// Package router binds Telegram updates to the lead conversation.
package router

import (
	"context"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/leadbot/core/telegram"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
)

// Conversation answers one inbound text for a platform user id.
type Conversation interface {
	Handle(ctx context.Context, userID, text string) string
}

// ignoredEndpoints are non-text updates acknowledged without a reply.
var ignoredEndpoints = []string{
	tele.OnPhoto,
	tele.OnVideo,
	tele.OnAudio,
	tele.OnVoice,
	tele.OnVideoNote,
	tele.OnAnimation,
	tele.OnDocument,
	tele.OnSticker,
	tele.OnLocation,
	tele.OnVenue,
	tele.OnContact,
}

// TextRoutes routes plain text into the conversation and silently accepts media.
func TextRoutes(conv Conversation) []tg.Route {
	routes := []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  ConversationHandler(conv, "text"),
	}}

	media := func(c tele.Context) error {
		return runHandler(c, "media", func() (bool, error) { return false, nil })
	}
	for _, ep := range ignoredEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: media})
	}
	return routes
}

// ConversationHandler forwards the update text to conv and sends back its reply.
// An empty reply sends nothing.
func ConversationHandler(conv Conversation, name string) tele.HandlerFunc {
	name = normalizeHandlerName(name)
	return func(c tele.Context) error {
		return runHandler(c, name, func() (bool, error) {
			chat := c.Chat()
			if chat == nil || conv == nil {
				return false, nil
			}
			ctx := tghelpers.BuildContext(c)
			reply := conv.Handle(ctx, tghelpers.UserID(chat.ID), c.Text())
			if reply == "" {
				return false, nil
			}
			return true, tghelpers.SendReply(c, reply)
		})
	}
}

package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	tg "github.com/m3rciful/leadbot/core/telegram"
)

// RegisterConversationCommands adds /start and /cancel, both answered by conv.
func RegisterConversationCommands(reg *tg.Registry, conv Conversation) {
	if reg == nil {
		return
	}
	reg.RegisterCommand("/start", tg.Command{
		Handler:     ConversationHandler(conv, "start"),
		Description: "Empezar el registro",
	})
	reg.RegisterCommand("/cancel", tg.Command{
		Handler:     ConversationHandler(conv, "cancel"),
		Description: "Cancelar el registro",
	})
}

// CommandRoutes exposes every registered command as a route.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := reg.Routes()
	logger.Info(context.Background(), "tg.wire", "commands.routed",
		slog.Int("commands", len(routes)),
	)
	return routes
}

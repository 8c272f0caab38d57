package telegram

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
)

// Command is a slash command served by the bot. Hidden commands still route
// but are left out of the Telegram menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Hidden      bool
}

// Registry maps "/name" to its Command.
type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// RegisterCommand adds cmd under name. Invalid and duplicate registrations are logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd Command) bool {
	if r == nil {
		return false
	}
	if reason := invalidCommand(name, cmd); reason != "" {
		logger.Warn(context.Background(), "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return false
	}
	if _, exists := r.commands[name]; exists {
		logger.Warn(context.Background(), "tg.wire", "register.command.duplicate",
			slog.String("name", name),
		)
		return false
	}
	r.commands[name] = cmd
	return true
}

func invalidCommand(name string, cmd Command) string {
	switch {
	case cmd.Handler == nil || strings.TrimSpace(cmd.Description) == "":
		return "invalid"
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return "no_slash_prefix"
	}
	return ""
}

// ListCommands returns the commands sorted by name, optionally without hidden ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for _, name := range r.names() {
		meta := r.commands[name]
		if visibleOnly && meta.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	return list
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]Command {
	return r.commands
}

// Routes exposes every registered command, hidden ones included, in name order.
func (r *Registry) Routes() []Route {
	routes := make([]Route, 0, len(r.commands))
	for _, name := range r.names() {
		routes = append(routes, Route{Endpoint: name, Handler: r.commands[name].Handler})
	}
	return routes
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetupCommands publishes the visible commands in the Telegram command menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

package ai

import "context"

// MsgNotConfigured is replied when no chat model credentials are configured.
const MsgNotConfigured = "Ahora mismo no tengo IA configurada. Si quieres dejar tus datos escribe /start."

// Static replies with the same text to everything.
type Static string

// Reply returns s.
func (s Static) Reply(context.Context, string, string) string { return string(s) }

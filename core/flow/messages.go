package flow

import (
	"fmt"
	"strings"

	"github.com/m3rciful/leadbot/core/lead"
)

// User facing replies. Asterisks mark bold text on both Telegram and WhatsApp.
const (
	msgAskName         = "¡Vamos! 👇\nDime tu *nombre*."
	msgCancelled       = "Cancelado ✅. Si quieres empezar otra vez: /start"
	msgNameTooShort    = "Nombre demasiado corto. Dime tu *nombre* (mín. 2 letras)."
	msgAskLastName     = "Perfecto. Ahora dime tus *apellidos*."
	msgLastNameShort   = "Apellidos demasiado cortos. Dime tus *apellidos*."
	msgAskPhone        = "Genial. Ahora dime tu *teléfono* (España, 9 dígitos). Ej: 654789098"
	msgPhoneRetry      = "Prueba otra vez. Ej: 654789098"
	msgAskAddress      = "Bien. Ahora dime tu *dirección*."
	msgAddressTooShort = "Dirección muy corta. Dime una dirección más completa."
	msgConfirmUnclear  = "No te he entendido. Responde *sí* o *no*."
	msgDeclined        = "Vale, no guardo nada ✅. Si quieres empezar otra vez: /start"
	msgDuplicate       = "⚠️ Ese teléfono ya existe. Si quieres probar con otro: /start"
	msgCommitFailed    = "❌ Ha ocurrido un error guardando el lead. Intenta de nuevo con /start"
	msgRestart         = "Vamos a reiniciar. Escribe /start"

	// MsgFallbackUnavailable is sent when the fallback responder times out or panics.
	MsgFallbackUnavailable = "Perdona, ahora mismo estoy teniendo un problema con la IA. ¿Quieres iniciar el formulario con /start?"
)

func msgSaved(id string) string {
	return "✅ Guardado correctamente. ID: " + id
}

func msgInvalidPhone(reason string) string {
	return reason + "\n" + msgPhoneRetry
}

func msgConfirm(c lead.Candidate) string {
	var b strings.Builder
	b.WriteString("Confirma por favor:\n")
	fmt.Fprintf(&b, "• Nombre: %s\n", c.Name)
	fmt.Fprintf(&b, "• Apellidos: %s\n", c.LastName)
	fmt.Fprintf(&b, "• Teléfono: %s\n", c.Phone)
	fmt.Fprintf(&b, "• Dirección: %s\n\n", c.Address)
	b.WriteString("Responde: *sí* / *no*")
	return b.String()
}

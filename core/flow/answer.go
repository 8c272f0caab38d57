package flow

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Answer classifies a reply to the confirmation prompt.
type Answer int

const (
	Unrecognized Answer = iota
	Affirmative
	Negative
)

func (a Answer) String() string {
	switch a {
	case Affirmative:
		return "affirmative"
	case Negative:
		return "negative"
	default:
		return "unrecognized"
	}
}

var (
	affirmativeTokens = map[string]struct{}{"si": {}, "s": {}, "yes": {}, "y": {}}
	negativeTokens    = map[string]struct{}{"no": {}, "n": {}}
)

// Classify maps text to a yes/no answer, ignoring case, surrounding
// whitespace and diacritics ("Sí" == "si").
func Classify(text string) Answer {
	t := fold(text)
	if _, ok := affirmativeTokens[t]; ok {
		return Affirmative
	}
	if _, ok := negativeTokens[t]; ok {
		return Negative
	}
	return Unrecognized
}

// Command is a control keyword recognized in any state.
type Command int

const (
	NoCommand Command = iota
	StartCommand
	CancelCommand
)

// ParseCommand recognizes start and cancel, with or without the slash.
// A Telegram mention suffix ("/start@SomeBot") is ignored.
func ParseCommand(text string) Command {
	t := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(t, "/") {
		if at := strings.IndexByte(t, '@'); at > 0 {
			t = t[:at]
		}
	}
	switch t {
	case "/start", "start":
		return StartCommand
	case "/cancel", "cancel":
		return CancelCommand
	}
	return NoCommand
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(chain, s)
	if err != nil {
		return s
	}
	return out
}

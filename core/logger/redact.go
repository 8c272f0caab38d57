package logger

import "strings"

// minPhoneRun is the shortest digit run treated as a phone number inside free text.
const minPhoneRun = 9

// phoneKeys are attributes that always hold a phone number.
var phoneKeys = []string{"phone", "wa_id"}

// freeTextKeys are attributes that echo user input and may contain a phone number.
var freeTextKeys = []string{"payload"}

// MaskPhone hides all but the first two and last two digits of s.
// Non-digit runes are kept so "+34 600 111 222" becomes "+34 *** *** *22".
func MaskPhone(s string) string {
	total := 0
	for _, r := range s {
		if isDigit(r) {
			total++
		}
	}
	if total <= 4 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	seen := 0
	for _, r := range s {
		if !isDigit(r) {
			b.WriteRune(r)
			continue
		}
		if seen < 2 || seen >= total-2 {
			b.WriteRune(r)
		} else {
			b.WriteByte('*')
		}
		seen++
	}
	return b.String()
}

// maskDigitRuns applies MaskPhone to every run of at least minPhoneRun digits in s.
func maskDigitRuns(s string) string {
	var b strings.Builder
	start := -1
	flush := func(end int) {
		run := s[start:end]
		if len(run) >= minPhoneRun {
			run = MaskPhone(run)
		}
		b.WriteString(run)
		start = -1
	}
	for i := 0; i < len(s); i++ {
		if isDigit(rune(s[i])) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(i)
		}
		b.WriteByte(s[i])
	}
	if start >= 0 {
		flush(len(s))
	}
	return b.String()
}

func redactFields(fields map[string]any) {
	for _, key := range phoneKeys {
		if v, ok := fields[key].(string); ok {
			fields[key] = MaskPhone(v)
		}
	}
	for _, key := range freeTextKeys {
		if v, ok := fields[key].(string); ok {
			fields[key] = maskDigitRuns(v)
		}
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

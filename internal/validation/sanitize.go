package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

var entityUnescaper = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Sanitize normalizes untrusted text: fold known entities back, strip HTML
// tags, trim, truncate to max bytes, then escape <>"'& to entities.
// Folding first and truncating before the escape step keeps the whole
// pipeline idempotent: sanitizing already-sanitized text is a no-op.
func Sanitize(s string, max int) string {
	s = entityUnescaper.Replace(s)
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		s = truncate(s, max)
		s = strings.TrimSpace(s)
	}
	return htmlEscaper.Replace(s)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Package slug derives URL-safe identifiers for deals from their titles.
package slug

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dotRun    = regexp.MustCompile(`\.+`)
	spaceRun  = regexp.MustCompile(` +`)
	hyphenRun = regexp.MustCompile(`-{2,}`)
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Base reduces a title to its slug form: lowercase, only [a-z0-9-], with
// dot runs and space runs each collapsed to a single hyphen, hyphen runs
// collapsed, and no leading or trailing hyphens.
func Base(title string) string {
	lower := strings.ToLower(title)
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	s := dotRun.ReplaceAllString(b.String(), "-")
	s = spaceRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Make builds a slug from a title with a millisecond timestamp suffix.
func Make(title string) string {
	base := Base(title)
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if base == "" {
		return ts
	}
	return base + "-" + ts
}

// WithRandomSuffix appends a random 6-character alphanumeric suffix. Used
// once when the freshly made slug already exists; the allocator does not
// retry beyond that.
func WithRandomSuffix(s string) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return s + "-" + string(b)
}

// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username trims surrounding space. Case is preserved for display; the
// uniqueness key is folded separately.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Role lowercases and trims a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Blank reports whether s has no visible characters.
func Blank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// UsernameFromEmail derives a default username from an email's local part,
// keeping only characters a username may contain.
func UsernameFromEmail(email string) string {
	local := Email(email)
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	var b strings.Builder
	for _, r := range local {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 16 {
			break
		}
	}
	out := b.String()
	for len(out) < 3 {
		out += "_"
	}
	return out
}

// Package recency renders "3 minutes ago" style labels for the
// conversation directory.
package recency

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Label describes t relative to now. A nil time (a conversation with no
// messages yet) yields "".
func Label(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	if now.Sub(*t) < 30*time.Second {
		return "just now"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

package recency

import (
	"testing"
	"time"
)

func TestLabel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { v := now.Add(-d); return &v }

	tests := []struct {
		name string
		in   *time.Time
		want string
	}{
		{"nil", nil, ""},
		{"seconds", at(5 * time.Second), "just now"},
		{"minutes", at(3 * time.Minute), "3 minutes ago"},
		{"hours", at(2 * time.Hour), "2 hours ago"},
		{"days", at(48 * time.Hour), "2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.in, now); got != tt.want {
				t.Errorf("Label = %q, want %q", got, tt.want)
			}
		})
	}
}

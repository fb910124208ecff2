package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origCommit, origDate := Commit, Date
	t.Cleanup(func() { Commit, Date = origCommit, origDate })

	tests := []struct {
		name   string
		commit string
		date   string
		want   string
	}{
		{name: "dev build", commit: "unknown", date: "unknown", want: "palettepeek version " + Version + " ("},
		{name: "release build", commit: "0123456789abcdef", date: "2026-01-01T00:00:00Z", want: "commit: 01234567"},
		{name: "short commit", commit: "abc", date: "2026-01-01T00:00:00Z", want: "commit: abc,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Commit, Date = tt.commit, tt.date
			if got := String(); !strings.Contains(got, tt.want) {
				t.Errorf("String() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); !strings.HasPrefix(got, "palettepeek/") {
		t.Errorf("UserAgent() = %q, want palettepeek/ prefix", got)
	}
}

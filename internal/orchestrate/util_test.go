package orchestrate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"notegraph/internal/db"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0.0s"},
		{500, "0.5s"},
		{1200, "1.2s"},
		{65000, "1m5s"},
		{3700000, "1h1m"},
	}

	for _, tt := range tests {
		got := FormatDurationShort(tt.ms)
		if got != tt.want {
			t.Errorf("FormatDurationShort(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},           // under limit
		{"exact", 5, "exact"},            // exactly at limit
		{"abcdefghij", 7, "ab...ij"},     // over limit
		{"hello world!", 9, "hel...ld!"}, // asymmetric
		{"abc", 3, "abc"},                // exactly 3
		{"abcd", 3, "abc"},               // maxLen <= 3 edge case
		{"ñoñoñoñoñoñ", 7, "ño...oñ"},    // multi-byte runes
	}

	for _, tt := range tests {
		got := TruncateMiddle(tt.s, tt.maxLen)
		if got != tt.want {
			t.Errorf("TruncateMiddle(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
		if n := utf8.RuneCountInString(got); n > tt.maxLen {
			t.Errorf("TruncateMiddle(%q, %d) length %d exceeds max %d", tt.s, tt.maxLen, n, tt.maxLen)
		}
	}
}

func TestReportSummary(t *testing.T) {
	r := &Report{
		Status:               StatusPartial,
		Model:                "m1",
		ElapsedMs:            1200,
		NotesProcessed:       2,
		RelationshipsCreated: 4,
		Stats:                db.GraphMetadata{TotalNodes: 3, TotalEdges: 4, AvgConnections: 1.5},
		Failures:             []NoteFailure{{NoteID: "c", Title: "Broken note", Error: "quota", Retryable: true}},
	}
	s := r.Summary()
	for _, want := range []string{"Rebuild partial in 1.2s", "Relationships written: 4", "1.50 avg", "Broken note", "[retryable]"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

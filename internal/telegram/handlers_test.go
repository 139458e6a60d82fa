package telegram

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/start", "/start"},
		{"/START", "/start"},
		{"/status extra args", "/status"},
		{"/cancel@gembatch_bot", "/cancel"},
		{"/Help@GembatchBot now", "/help"},
	}

	for _, tt := range tests {
		if got := parseCommand(tt.in); got != tt.want {
			t.Errorf("parseCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short stays", "hello", "hello"},
		{"newlines flattened", "line one\nline two", "line one line two"},
		{"long ascii truncated", strings.Repeat("a", 80), strings.Repeat("a", 49) + "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncatePreview(tt.in); got != tt.want {
				t.Errorf("truncatePreview = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestTruncatePreview_WideRunes verifies truncation counts display columns,
// not runes, so CJK text fits the status line.
func TestTruncatePreview_WideRunes(t *testing.T) {
	got := truncatePreview(strings.Repeat("语", 40))
	if w := runewidth.StringWidth(got); w > previewWidth {
		t.Errorf("preview display width = %d, want <= %d", w, previewWidth)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated preview %q missing ellipsis", got)
	}
}

func TestConfirmationText(t *testing.T) {
	fresh := confirmationText("42_1_abc", false, "1m0s")
	if !strings.Contains(fresh, "42_1_abc") || !strings.Contains(fresh, "1m0s") {
		t.Errorf("fresh confirmation missing id or delay: %q", fresh)
	}
	if !strings.Contains(fresh, "/status") || !strings.Contains(fresh, "/cancel") {
		t.Errorf("fresh confirmation missing command hints: %q", fresh)
	}

	merged := confirmationText("42_2_def", true, "1m0s")
	if !strings.Contains(merged, "42_2_def") {
		t.Errorf("merged confirmation missing id: %q", merged)
	}
	if !strings.Contains(merged, "Added to your pending request") {
		t.Errorf("merged confirmation does not read as a merge: %q", merged)
	}
	if merged == fresh {
		t.Error("merged and fresh confirmations are identical")
	}
}

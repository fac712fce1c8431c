package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/jobhub/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Please add your company website.", "Please add your company website."},
		{"trims", "  spaced  ", "spaced"},
		{"strips tags", "<p>Hello <strong>there</strong></p>", "Hello there"},
		{"removes script", "Hi<script>alert('xss')</script>", "Hi"},
		{"keeps ampersand", "R&D team", "R&D team"},
		{"keeps quotes", `we need "proof" of address`, `we need "proof" of address`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainText_Truncates(t *testing.T) {
	long := strings.Repeat("é", htmlsanitize.MaxNoteLength+10)
	got := htmlsanitize.PlainText(long)
	if n := len([]rune(got)); n != htmlsanitize.MaxNoteLength {
		t.Errorf("expected %d runes, got %d", htmlsanitize.MaxNoteLength, n)
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("") {
		t.Error("expected empty string to be plain text")
	}
	if !htmlsanitize.IsPlainText("Hello, World!") {
		t.Error("expected string without tags to be plain text")
	}
	if htmlsanitize.IsPlainText("<p>Hello</p>") {
		t.Error("expected string with tags to NOT be plain text")
	}
}

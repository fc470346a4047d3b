package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "double-sided please", "double-sided please"},
		{"trims", "  staple it \n", "staple it"},
		{"keeps newlines", "line one\nline two", "line one\nline two"},
		{"drops control chars", "a\x00b\x1bc", "abc"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.in))
		})
	}
}

func TestSanitizeText_Truncates(t *testing.T) {
	long := strings.Repeat("ж", MaxTextLength+50)
	got := SanitizeText(long)
	assert.Equal(t, MaxTextLength, len([]rune(got)))
}

func TestSanitizeLine(t *testing.T) {
	assert.Equal(t, "Room 412 B", SanitizeLine("  Room\t412\n B "))
}

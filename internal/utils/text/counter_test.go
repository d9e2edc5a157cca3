package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rss-reader/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "ASCII text", input: "hello", expected: 5},
		{name: "ASCII with spaces", input: "hello world", expected: 11},
		{name: "Japanese hiragana", input: "こんにちは", expected: 5},
		{name: "English and Japanese", input: "hello世界", expected: 7},
		{name: "emoji", input: "Hello👋", expected: 6},
		{name: "empty", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, text.CountRunes(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "shorter than max", input: "abc", max: 10, want: "abc"},
		{name: "exactly max", input: "abcde", max: 5, want: "abcde"},
		{name: "ascii cut", input: "abcdef", max: 3, want: "abc"},
		{name: "multibyte kept whole", input: "日本語テキスト", max: 3, want: "日本語"},
		{name: "multibyte shorter in runes than bytes", input: "日本", max: 4, want: "日本"},
		{name: "zero max", input: "abc", max: 0, want: ""},
		{name: "negative max", input: "abc", max: -1, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, text.Truncate(tt.input, tt.max))
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", text.CollapseWhitespace("  a \n\t b   c  "))
	assert.Equal(t, "", text.CollapseWhitespace(" \n "))
}

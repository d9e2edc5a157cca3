package summarizer

import (
	"context"

	"rss-reader/internal/utils/text"
)

// NoOp returns the leading part of the input. It lets the summary job run
// locally without an API key.
type NoOp struct{}

func NewNoOp() *NoOp {
	return &NoOp{}
}

// Summarize returns at most 500 runes of input.
func (n *NoOp) Summarize(_ context.Context, input string) (string, error) {
	const maxLength = 500
	if text.CountRunes(input) <= maxLength {
		return input, nil
	}
	return text.Truncate(input, maxLength) + "...", nil
}

func (n *NoOp) Model() string { return "noop" }

package ai

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// planHistoryTokenBudget bounds the conversation history sent to the planner
// so the system prompt and the reply always fit the context window.
const planHistoryTokenBudget = 6000

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// CountTokens returns the BPE token count of the text. When the tokenizer
// cannot be initialized it falls back to a 4-characters-per-token estimate,
// which over-counts slightly and therefore trims conservatively.
func CountTokens(text string) int {
	codecOnce.Do(func() {
		codec, _ = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if codec == nil {
		return (len(text) + 3) / 4
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(ids)
}

// TrimToBudget drops the oldest turns until the history fits the budget. The
// most recent turn is always kept, whatever its size.
func TrimToBudget(history []Message, budget int) []Message {
	if len(history) == 0 {
		return history
	}

	total := 0
	counts := make([]int, len(history))
	for i, msg := range history {
		counts[i] = CountTokens(msg.Content) + 4 // per-message framing overhead
		total += counts[i]
	}

	start := 0
	for total > budget && start < len(history)-1 {
		total -= counts[start]
		start++
	}
	return history[start:]
}

// Package llm provides shared helpers for the AI backend adapters.
package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoder     *tiktoken.Tiktoken
	encoderOnce sync.Once
	encoderErr  error
)

func getEncoder() (*tiktoken.Tiktoken, error) {
	encoderOnce.Do(func() {
		encoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoder, encoderErr
}

// EstimateTokens estimates the token count of a prompt using the cl100k_base
// encoding. The count feeds request logging only; the character budget, not
// the token count, bounds prompt size. When the encoding cannot be loaded
// the estimate falls back to one token per four characters.
func EstimateTokens(text string) int {
	enc, err := getEncoder()
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

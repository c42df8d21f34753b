package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts model tokens. The same counter feeds the context optimizer,
// the judge's token ceiling, and the expander's merge budget so budgets stay
// aligned with what the generator is actually charged for.
type Counter interface {
	Count(text string) int
}

// CL100K counts tokens with the cl100k_base BPE used by the GPT-4 family.
type CL100K struct {
	enc *tiktoken.Tiktoken
}

var (
	once   sync.Once
	shared *CL100K
	initErr error
)

// NewCL100K loads the cl100k_base encoding.
func NewCL100K() (*CL100K, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return &CL100K{enc: enc}, nil
}

// Shared returns a process-wide counter; the BPE tables load once.
func Shared() (*CL100K, error) {
	once.Do(func() {
		shared, initErr = NewCL100K()
	})
	return shared, initErr
}

// Count returns the token count of text. Empty text counts zero.
func (c *CL100K) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// SumResults totals the token counts of a slice of texts.
func (c *CL100K) SumResults(texts []string) int {
	total := 0
	for _, t := range texts {
		total += c.Count(t)
	}
	return total
}

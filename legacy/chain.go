package legacy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/brunobiangulo/docreader/parser"
)

// Chain tries strategies in order and stops at the first one that
// produces non-blank text. Strategies run one at a time, never in
// parallel.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, logger: logger}
}

// Run returns the winning attempt, or one with Err == ErrExhausted, along
// with every attempt made in order.
func (c *Chain) Run(ctx context.Context, path string, opts parser.Options) (Attempt, []Attempt) {
	attempts := make([]Attempt, 0, len(c.strategies))
	for _, s := range c.strategies {
		c.logger.Info("trying fallback strategy", "strategy", s.Name())
		a := guard(s.Name(), func() Attempt { return s.Attempt(ctx, path, opts) })
		attempts = append(attempts, a)
		if a.Succeeded && strings.TrimSpace(a.Text) != "" {
			c.logger.Info("fallback strategy succeeded", "strategy", s.Name(), "chars", len([]rune(a.Text)))
			return a, attempts
		}
		c.logger.Warn("fallback strategy failed", "strategy", s.Name(), "error", a.Err)
	}
	return failed(MethodExhausted, ErrExhausted, ""), attempts
}

package knowledge

import "context"

// Strategy is one way of answering a knowledge query. Strategies are
// tried in order until one succeeds; an error moves the chain to the
// next one.
type Strategy interface {
	// Name identifies the strategy in logs and reason tags.
	Name() string
	// Attempt resolves the query or reports why it could not.
	Attempt(ctx context.Context, query string) ([]byte, error)
}

// FuncStrategy adapts a function into a Strategy.
type FuncStrategy struct {
	StrategyName string
	Fn           func(ctx context.Context, query string) ([]byte, error)
}

func (s FuncStrategy) Name() string { return s.StrategyName }

func (s FuncStrategy) Attempt(ctx context.Context, query string) ([]byte, error) {
	return s.Fn(ctx, query)
}

// StaticStrategy always answers with a fixed payload. Useful as the
// terminal fallback in a chain and in tests.
type StaticStrategy struct {
	StrategyName string
	Payload      []byte
}

func (s StaticStrategy) Name() string { return s.StrategyName }

func (s StaticStrategy) Attempt(ctx context.Context, query string) ([]byte, error) {
	return s.Payload, nil
}

package store

import (
	"context"
	"time"

	"github.com/act-dev-25/agents/internal/logging"
)

// RetryingKV decorates a KV with bounded exponential backoff on
// UnavailableError. Absence is a normal result and is never retried; only
// connectivity failures are.
type RetryingKV struct {
	inner    KV
	attempts int
	base     time.Duration
	log      *logging.Logger
}

// NewRetryingKV wraps inner. attempts <= 0 defaults to 3 total attempts,
// base <= 0 defaults to 50ms (doubled per retry).
func NewRetryingKV(inner KV, attempts int, base time.Duration, log *logging.Logger) *RetryingKV {
	if attempts <= 0 {
		attempts = 3
	}
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	return &RetryingKV{inner: inner, attempts: attempts, base: base, log: log.Sub("store.retry")}
}

// do runs op, retrying with backoff while it returns UnavailableError.
func (r *RetryingKV) do(ctx context.Context, name string, op func() error) error {
	delay := r.base
	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil || !IsUnavailable(err) || attempt >= r.attempts {
			return err
		}

		r.log.Warn().
			Str("op", name).
			Int("attempt", attempt).
			Err(err).
			Msg("store unavailable, retrying")

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (r *RetryingKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.do(ctx, "set", func() error { return r.inner.Set(ctx, key, value, ttl) })
}

func (r *RetryingKV) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = r.do(ctx, "get", func() error {
		value, ok, err = r.inner.Get(ctx, key)
		return err
	})
	return value, ok, err
}

func (r *RetryingKV) Extend(ctx context.Context, key string, ttl time.Duration) (ok bool, err error) {
	err = r.do(ctx, "extend", func() error {
		ok, err = r.inner.Extend(ctx, key, ttl)
		return err
	})
	return ok, err
}

func (r *RetryingKV) Delete(ctx context.Context, key string) error {
	return r.do(ctx, "delete", func() error { return r.inner.Delete(ctx, key) })
}

func (r *RetryingKV) Incr(ctx context.Context, key string, ttl time.Duration) (n int64, err error) {
	err = r.do(ctx, "incr", func() error {
		n, err = r.inner.Incr(ctx, key, ttl)
		return err
	})
	return n, err
}

func (r *RetryingKV) Append(ctx context.Context, key string, value []byte, ttl time.Duration) (pos int, err error) {
	err = r.do(ctx, "append", func() error {
		pos, err = r.inner.Append(ctx, key, value, ttl)
		return err
	})
	return pos, err
}

func (r *RetryingKV) Tail(ctx context.Context, key string, limit int) (out [][]byte, err error) {
	err = r.do(ctx, "tail", func() error {
		out, err = r.inner.Tail(ctx, key, limit)
		return err
	})
	return out, err
}

func (r *RetryingKV) AddToSet(ctx context.Context, key, member string) error {
	return r.do(ctx, "sadd", func() error { return r.inner.AddToSet(ctx, key, member) })
}

func (r *RetryingKV) RemoveFromSet(ctx context.Context, key, member string) error {
	return r.do(ctx, "srem", func() error { return r.inner.RemoveFromSet(ctx, key, member) })
}

func (r *RetryingKV) Members(ctx context.Context, key string) (members []string, err error) {
	err = r.do(ctx, "members", func() error {
		members, err = r.inner.Members(ctx, key)
		return err
	})
	return members, err
}

func (r *RetryingKV) Keys(ctx context.Context, prefix string) (keys []string, err error) {
	err = r.do(ctx, "keys", func() error {
		keys, err = r.inner.Keys(ctx, prefix)
		return err
	})
	return keys, err
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyKV fails the first failures calls to each operation with an
// UnavailableError, then delegates to an in-memory store.
type flakyKV struct {
	*MemoryKV
	failures int
	calls    int
}

func (f *flakyKV) fail(op, key string) error {
	f.calls++
	if f.calls <= f.failures {
		return unavailable(op, key, errors.New("connection refused"))
	}
	return nil
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.fail("set", key); err != nil {
		return err
	}
	return f.MemoryKV.Set(ctx, key, value, ttl)
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := f.fail("get", key); err != nil {
		return nil, false, err
	}
	return f.MemoryKV.Get(ctx, key)
}

func TestRetryingKV_RecoversFromTransientFailure(t *testing.T) {
	flaky := &flakyKV{MemoryKV: NewMemoryKV(), failures: 2}
	kv := NewRetryingKV(flaky, 3, time.Millisecond, testLogger())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), time.Hour))
	assert.Equal(t, 3, flaky.calls)

	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestRetryingKV_GivesUpAfterAttempts(t *testing.T) {
	flaky := &flakyKV{MemoryKV: NewMemoryKV(), failures: 10}
	kv := NewRetryingKV(flaky, 3, time.Millisecond, testLogger())

	err := kv.Set(context.Background(), "k", []byte("v"), time.Hour)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 3, flaky.calls)
}

func TestRetryingKV_AbsenceIsNotRetried(t *testing.T) {
	flaky := &flakyKV{MemoryKV: NewMemoryKV(), failures: 0}
	kv := NewRetryingKV(flaky, 3, time.Millisecond, testLogger())

	// A missing key is a normal outcome, not a fault: one call, no error.
	_, ok, err := kv.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, flaky.calls)
}

func TestRetryingKV_ContextCancelStopsRetries(t *testing.T) {
	flaky := &flakyKV{MemoryKV: NewMemoryKV(), failures: 10}
	kv := NewRetryingKV(flaky, 5, 50*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kv.Set(ctx, "k", []byte("v"), time.Hour)
	require.Error(t, err)
	assert.LessOrEqual(t, flaky.calls, 2)
}

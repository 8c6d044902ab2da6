package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func retryAll(error) (bool, time.Duration) { return true, 0 }

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialDelay: time.Millisecond, Multiplier: 2}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("first success runs fn once", func(t *testing.T) {
		calls := 0
		err := Do(ctx, fastPolicy(3), retryAll, func(context.Context) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := Do(ctx, fastPolicy(3), retryAll, func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhaustion returns the last error", func(t *testing.T) {
		calls := 0
		err := Do(ctx, fastPolicy(3), retryAll, func(context.Context) error {
			calls++
			return errTransient
		})

		require.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable errors stop immediately", func(t *testing.T) {
		fatal := errors.New("fatal")
		calls := 0
		err := Do(ctx, fastPolicy(5), func(err error) (bool, time.Duration) {
			return !errors.Is(err, fatal), 0
		}, func(context.Context) error {
			calls++
			return fatal
		})

		require.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("classifier override replaces the computed backoff", func(t *testing.T) {
		classify := func(error) (bool, time.Duration) { return true, time.Millisecond }
		policy := Policy{MaxAttempts: 2, InitialDelay: time.Hour, Multiplier: 2}

		start := time.Now()
		calls := 0
		err := Do(ctx, policy, classify, func(context.Context) error {
			calls++
			return errTransient
		})

		require.ErrorIs(t, err, errTransient)
		assert.Equal(t, 2, calls)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("cancellation during backoff returns the context error", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		policy := Policy{MaxAttempts: 3, InitialDelay: time.Minute, Multiplier: 2}

		start := time.Now()
		err := Do(cctx, policy, retryAll, func(context.Context) error {
			cancel()
			return errTransient
		})

		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("zero attempts still runs fn once", func(t *testing.T) {
		calls := 0
		err := Do(ctx, Policy{}, retryAll, func(context.Context) error {
			calls++
			return errTransient
		})

		require.ErrorIs(t, err, errTransient)
		assert.Equal(t, 1, calls)
	})
}

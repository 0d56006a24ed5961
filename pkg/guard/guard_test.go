package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{Retries: 1, Backoff: time.Millisecond, AttemptTimeout: time.Second}
}

func TestCall_SucceedsFirstTime(t *testing.T) {
	v, attempts, err := Call(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, attempts)
}

func TestCall_RetriesExactlyOnce(t *testing.T) {
	calls := 0
	v, attempts, err := Call(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, attempts)
}

func TestCall_GivesUpAfterSecondFailure(t *testing.T) {
	boom := errors.New("down")
	_, attempts, err := Call(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, attempts)
}

func TestCall_ClampsRetryBudget(t *testing.T) {
	p := fastPolicy()
	p.Retries = 5

	_, attempts, err := Call(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, errors.New("down")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestCall_PermanentIsNotRetried(t *testing.T) {
	rejected := errors.New("slot taken")
	_, attempts, err := Call(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		return 0, Permanent(rejected)
	})

	assert.ErrorIs(t, err, rejected)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
}

func TestCall_AttemptTimeout(t *testing.T) {
	p := Policy{Retries: 1, Backoff: time.Millisecond, AttemptTimeout: 20 * time.Millisecond}

	_, attempts, err := Call(context.Background(), p, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts)
}

func TestCall_ParentCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, attempts, err := Call(ctx, fastPolicy(), func(ctx context.Context) (int, error) {
		cancel()
		return 0, errors.New("interrupted")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

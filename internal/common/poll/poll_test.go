package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ImmediateSuccess(t *testing.T) {
	res, err := Until(context.Background(), 10*time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
}

func TestUntil_SucceedsAfterAttempts(t *testing.T) {
	var n atomic.Int32
	res, err := Until(context.Background(), 5*time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return n.Add(1) >= 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
}

func TestUntil_Timeout(t *testing.T) {
	res, err := Until(context.Background(), 10*time.Millisecond, 100*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, res.Elapsed, 80*time.Millisecond)
	assert.Greater(t, res.Attempts, 1)
}

func TestUntil_ConditionError(t *testing.T) {
	boom := errors.New("interrupted")
	_, err := Until(context.Background(), 10*time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestUntil_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Until(ctx, 10*time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSignal(t *testing.T) {
	ch := make(chan bool, 1)
	ch <- true
	v, err := Signal(context.Background(), ch, time.Second)
	require.NoError(t, err)
	assert.True(t, v)

	_, err = Signal(context.Background(), make(chan bool), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

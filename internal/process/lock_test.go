package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_AcquireRelease(t *testing.T) {
	l := NewLock()
	assert.False(t, l.Held())

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, l.Held())

	release()
	assert.False(t, l.Held())
}

func TestLock_AcquireBlocksUntilContextDone(t *testing.T) {
	l := NewLock()
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_EnforcesSpacing(t *testing.T) {
	current := time.Unix(1000, 0)
	var slept []time.Duration

	g := newGate(time.Second)
	g.now = func() time.Time { return current }
	g.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		current = current.Add(d)
		return nil
	}

	ctx := context.Background()

	// First request passes immediately.
	require.NoError(t, g.wait(ctx))
	assert.Empty(t, slept)

	// Immediate second request waits out the interval.
	require.NoError(t, g.wait(ctx))
	require.Len(t, slept, 1)
	assert.Equal(t, time.Second, slept[0])

	// After enough wall time has passed, no wait.
	current = current.Add(5 * time.Second)
	require.NoError(t, g.wait(ctx))
	assert.Len(t, slept, 1)
}

func TestGate_ZeroIntervalNeverWaits(t *testing.T) {
	g := newGate(0)
	for range 10 {
		assert.NoError(t, g.wait(context.Background()))
	}
}

func TestGate_CanceledContext(t *testing.T) {
	g := newGate(time.Hour)
	ctx := context.Background()
	require.NoError(t, g.wait(ctx))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, g.wait(canceled))
}

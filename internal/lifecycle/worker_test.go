package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/millken/onceflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func untilShutdown(shutdown *onceflag.OnceFlag) error {
	shutdown.Wait()
	return nil
}

func TestWorker_StartStop(t *testing.T) {
	w := NewWorker("ticker", zaptest.NewLogger(t))
	assert.Equal(t, "ticker", w.Name())
	assert.False(t, w.Started().IsSet())

	w.Start(untilShutdown)
	assert.True(t, w.Started().IsSet())
	assert.False(t, w.ShutdownRequested().IsSet())
	assert.False(t, w.Stopped().IsSet())

	require.NoError(t, w.Stop(time.Second))
	assert.True(t, w.ShutdownRequested().IsSet())
	assert.True(t, w.Stopped().IsSet())
	assert.NoError(t, w.Err())
}

func TestWorker_StopTwice(t *testing.T) {
	w := NewWorker("ticker", nil)
	w.Start(untilShutdown)

	require.NoError(t, w.Stop(time.Second))
	start := time.Now()
	require.NoError(t, w.Stop(time.Second))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestWorker_StartTwicePanics(t *testing.T) {
	w := NewWorker("ticker", nil)
	w.Start(untilShutdown)
	defer w.Stop(time.Second)

	assert.Panics(t, func() { w.Start(untilShutdown) })
}

func TestWorker_Error(t *testing.T) {
	want := errors.New("<error>")

	w := NewWorker("failing", zaptest.NewLogger(t))
	assert.NoError(t, w.Err())

	w.Start(func(shutdown *onceflag.OnceFlag) error {
		return want
	})
	w.Stopped().Wait()

	assert.ErrorIs(t, w.Err(), want)
	assert.ErrorIs(t, w.Stop(time.Second), want)
}

func TestWorker_StopTimeout(t *testing.T) {
	release := onceflag.NewOnceFlag()

	w := NewWorker("stuck", zaptest.NewLogger(t))
	w.Start(func(shutdown *onceflag.OnceFlag) error {
		release.Wait()
		return nil
	})
	defer func() {
		release.Set()
		w.Stopped().Wait()
	}()

	err := w.Stop(25 * time.Millisecond)
	assert.ErrorIs(t, err, ErrStopTimeout)
	assert.ErrorContains(t, err, "stuck")
	assert.True(t, w.ShutdownRequested().IsSet())
	assert.False(t, w.Stopped().IsSet())
	assert.NoError(t, w.Err())
}

func TestWorker_StopContext(t *testing.T) {
	t.Run("stops", func(t *testing.T) {
		w := NewWorker("ticker", zaptest.NewLogger(t))
		w.Start(untilShutdown)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, w.StopContext(ctx))
	})

	t.Run("deadline", func(t *testing.T) {
		release := onceflag.NewOnceFlag()

		w := NewWorker("stuck", zaptest.NewLogger(t))
		w.Start(func(*onceflag.OnceFlag) error {
			release.Wait()
			return nil
		})
		defer func() {
			release.Set()
			w.Stopped().Wait()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, w.StopContext(ctx), ErrStopTimeout)
	})

	t.Run("canceled", func(t *testing.T) {
		release := onceflag.NewOnceFlag()
		defer release.Set()

		w := NewWorker("stuck", nil)
		w.Start(func(*onceflag.OnceFlag) error {
			release.Wait()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := w.StopContext(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrStopTimeout)
	})
}

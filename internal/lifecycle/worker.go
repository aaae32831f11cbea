package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/millken/onceflag"
	"go.uber.org/zap"
)

// ErrStopTimeout is returned by Stop when the worker does not stop in time.
var ErrStopTimeout = errors.New("worker did not stop before the timeout")

// RunFunc is the body of a Worker. It must return once shutdown is set.
type RunFunc func(shutdown *onceflag.OnceFlag) error

// Worker runs a RunFunc on its own goroutine and publishes each stage of its
// lifecycle through a OnceFlag.
type Worker struct {
	name   string
	logger *zap.Logger

	launched onceflag.OnceFlag
	started  onceflag.OnceFlag
	ack      onceflag.OnceFlag
	shutdown onceflag.OnceFlag
	stopped  onceflag.OnceFlag

	// err is written before stopped is set and read only after.
	err error
}

// NewWorker returns a worker that has not been started. A nil logger
// disables logging.
func NewWorker(name string, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		name:   name,
		logger: logger.With(zap.String("worker", name)),
	}
}

// Name returns the worker's name.
func (w *Worker) Name() string {
	return w.name
}

// Start launches fn and returns once its goroutine is running. It panics if
// called more than once.
func (w *Worker) Start(fn RunFunc) {
	if !w.launched.Set() {
		panic("lifecycle: worker " + w.name + " started twice")
	}

	go func() {
		w.started.Set()
		w.ack.Wait()

		w.logger.Debug("worker running")
		w.err = fn(&w.shutdown)
		if w.err != nil {
			w.logger.Warn("worker stopped with error", zap.Error(w.err))
		} else {
			w.logger.Debug("worker stopped")
		}
		w.stopped.Set()
	}()

	w.started.Wait()
	w.ack.Set()
	w.logger.Info("worker started")
}

// Stop requests shutdown and waits up to timeout for the worker to stop. It
// returns the worker's error, or ErrStopTimeout.
func (w *Worker) Stop(timeout time.Duration) error {
	if w.shutdown.Set() {
		w.logger.Info("worker shutdown requested", zap.Duration("timeout", timeout))
	}
	if !w.stopped.WaitFor(timeout) {
		w.logger.Error("worker did not stop", zap.Duration("timeout", timeout))
		return fmt.Errorf("%s: %w", w.name, ErrStopTimeout)
	}
	return w.err
}

// StopContext requests shutdown and waits for the worker to stop or for ctx to
// be done. A ctx deadline is reported as ErrStopTimeout.
func (w *Worker) StopContext(ctx context.Context) error {
	if w.shutdown.Set() {
		w.logger.Info("worker shutdown requested")
	}
	if err := w.stopped.WaitContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error("worker did not stop before the deadline")
			return fmt.Errorf("%s: %w", w.name, ErrStopTimeout)
		}
		return fmt.Errorf("%s: %w", w.name, err)
	}
	return w.err
}

// Err returns the error returned by the worker's RunFunc, or nil if it has
// not stopped.
func (w *Worker) Err() error {
	if !w.stopped.IsSet() {
		return nil
	}
	return w.err
}

// Started returns the flag set once the worker's goroutine is running.
func (w *Worker) Started() *onceflag.OnceFlag { return &w.started }

// ShutdownRequested returns the flag set by Stop.
func (w *Worker) ShutdownRequested() *onceflag.OnceFlag { return &w.shutdown }

// Stopped returns the flag set once the worker's RunFunc has returned.
func (w *Worker) Stopped() *onceflag.OnceFlag { return &w.stopped }

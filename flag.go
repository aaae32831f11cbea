package onceflag

import (
	"context"
	"sync"
	"time"
)

// OnceFlag is a flag that may be set exactly once, and waited on by any number
// of goroutines.
//
// The zero value is an unset flag ready for use. A OnceFlag must not be copied
// after first use.
type OnceFlag struct {
	mu       sync.Mutex
	signaled bool
	done     chan struct{} // closed iff signaled
}

// NewOnceFlag returns a new, unset OnceFlag.
func NewOnceFlag() *OnceFlag {
	return &OnceFlag{done: make(chan struct{})}
}

// Set sets f and wakes every goroutine blocked in one of its wait methods.  It
// is safe to call multiple times, and concurrently.  It returns true iff this
// call caused f to become set.
func (f *OnceFlag) Set() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signaled {
		return false
	}
	f.signaled = true
	close(f.doneLocked())
	return true
}

// IsSet reports whether Set has been called.
func (f *OnceFlag) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

// Done returns a channel that is closed when f is set.
func (f *OnceFlag) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doneLocked()
}

// Wait blocks until f is set. It returns immediately if f is already set.
func (f *OnceFlag) Wait() {
	ch, ok := f.poll()
	if ok {
		return
	}
	<-ch
}

// WaitFor blocks until f is set or d elapses, whichever comes first. It
// reports whether f is set on return. A non-positive d polls f without
// blocking.
func (f *OnceFlag) WaitFor(d time.Duration) bool {
	ch, ok := f.poll()
	if ok {
		return true
	}
	if d <= 0 {
		return false
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ch:
	case <-t.C:
	}

	// Set may land right at the deadline.
	return f.IsSet()
}

// WaitContext blocks until f is set or ctx is done. It returns nil if f is set
// on return, and ctx.Err() otherwise.
func (f *OnceFlag) WaitContext(ctx context.Context) error {
	ch, ok := f.poll()
	if ok {
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		if f.IsSet() {
			return nil
		}
		return ctx.Err()
	}
}

// poll returns the done channel and whether f is set, under a single
// acquisition of f.mu.
func (f *OnceFlag) poll() (<-chan struct{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doneLocked(), f.signaled
}

func (f *OnceFlag) doneLocked() chan struct{} {
	if f.done == nil {
		f.done = make(chan struct{})
	}
	return f.done
}

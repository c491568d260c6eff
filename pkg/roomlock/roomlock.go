// Package roomlock serializes check-then-commit sequences per room.
//
// Availability checks and the writes that follow them race when two
// requests target the same room at once, so every mutation path acquires
// the room's lock first. Locks are scoped to a single process; different
// rooms never contend with each other.
package roomlock

import (
	"context"
	"sync"
	"time"

	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

// Options tunes lock acquisition behaviour.
type Options struct {
	// AcquireTimeout bounds a single wait for the lock.
	AcquireTimeout time.Duration
	// MaxRetries is the number of additional acquisition attempts after
	// the first one times out.
	MaxRetries int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Registry hands out one lock per room identifier.
type Registry struct {
	mu    sync.Mutex
	slots map[string]*slot
	opts  Options
}

// NewRegistry builds a lock registry with the given options.
func NewRegistry(opts Options) *Registry {
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 3 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}
	return &Registry{slots: make(map[string]*slot), opts: opts}
}

// Acquire takes the lock for roomID, waiting up to the configured timeout
// per attempt and retrying with backoff. The returned release function must
// be called exactly once. A nil release is returned together with
// ErrLockTimeout when every attempt times out.
func (r *Registry) Acquire(ctx context.Context, roomID string) (func(), error) {
	s := r.checkout(roomID)

	attempts := r.opts.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.opts.RetryBackoff):
			case <-ctx.Done():
				r.checkin(roomID)
				return nil, ctx.Err()
			}
		}

		timer := time.NewTimer(r.opts.AcquireTimeout)
		select {
		case s.ch <- struct{}{}:
			timer.Stop()
			var once sync.Once
			release := func() {
				once.Do(func() {
					<-s.ch
					r.checkin(roomID)
				})
			}
			return release, nil
		case <-timer.C:
			// fall through to the next attempt
		case <-ctx.Done():
			timer.Stop()
			r.checkin(roomID)
			return nil, ctx.Err()
		}
	}

	r.checkin(roomID)
	return nil, appErrors.Clone(appErrors.ErrLockTimeout, "timed out waiting for room "+roomID)
}

func (r *Registry) checkout(roomID string) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[roomID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		r.slots[roomID] = s
	}
	s.refs++
	return s
}

func (r *Registry) checkin(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[roomID]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(r.slots, roomID)
	}
}

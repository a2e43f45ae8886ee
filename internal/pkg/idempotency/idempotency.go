// Package idempotency guards side effects that may be triggered more than
// once, such as a redelivered broker message.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
)

var (
	ErrAlreadyInProgress = errors.New("idempotency: operation already in progress")
	ErrAlreadyCompleted  = errors.New("idempotency: operation already completed")
	ErrInvalidState      = errors.New("idempotency: invalid state")
)

type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour
)

// Guard records operation state in a credstore.Store.
type Guard struct {
	store  credstore.Store
	prefix string
}

func New(store credstore.Store) *Guard {
	return &Guard{store: store, prefix: "idempotency:"}
}

type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long an in-progress marker survives a crashed worker.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = d }
}

// WithStateTTL sets how long a completed marker is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) { o.stateTTL = d }
}

// Acquire marks key in progress. StateNone means the caller owns it now.
func (g *Guard) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	fk := g.prefix + key

	ok, err := g.store.SetNX(ctx, fk, string(StateInProgress), lockDuration)
	if err != nil {
		return "", err
	}
	if ok {
		return StateNone, nil
	}

	v, err := g.store.Get(ctx, fk)
	if errors.Is(err, credstore.ErrNotFound) {
		// expired between the two calls
		if ok, err = g.store.SetNX(ctx, fk, string(StateInProgress), lockDuration); err != nil {
			return "", err
		}
		if ok {
			return StateNone, nil
		}
		return "", ErrInvalidState
	}
	if err != nil {
		return "", err
	}

	switch State(v) {
	case StateInProgress, StateCompleted:
		return State(v), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidState, v)
	}
}

func (g *Guard) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return g.store.Set(ctx, g.prefix+key, string(StateCompleted), ttl)
}

// Release forgets key so the operation can be retried.
func (g *Guard) Release(ctx context.Context, key string) error {
	_, err := g.store.Delete(ctx, g.prefix+key)
	return err
}

// Exec runs fn once per key. A failed fn releases the key so that a retry can
// run it again; its error is returned unchanged.
func (g *Guard) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}

	state, err := g.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}
	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	}

	if err := fn(ctx); err != nil {
		return errors.Join(err, g.Release(ctx, key))
	}

	return g.MarkCompleted(ctx, key, o.stateTTL)
}

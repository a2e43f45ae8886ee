package goroutine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_CollectsErrors(t *testing.T) {
	m := NewManager(4)
	boom := errors.New("boom")

	m.Go(context.Background(), func(context.Context) error { return nil })
	m.Go(context.Background(), func(context.Context) error { return boom })
	m.Go(context.Background(), func(context.Context) error { panic("ignored") })

	err := m.Wait()
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, m.Active())
}

func TestManager_LimitAndClose(t *testing.T) {
	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})

	m.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	m.Go(context.Background(), func(context.Context) error { return nil })
	close(release)

	assert.ErrorIs(t, m.Wait(), ErrLimitReached)

	ran := false
	m.Go(context.Background(), func(context.Context) error { ran = true; return nil })
	assert.False(t, ran)
}

func TestManager_CanceledContext(t *testing.T) {
	m := NewManager(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	m.Go(ctx, func(context.Context) error { called = true; return nil })
	assert.NoError(t, m.Wait())
	assert.False(t, called)
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	m.Go(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, m.Wait())
}

package messaging

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const memoryBuffer = 256

// Memory is an in-process broker. Every queue group subscribed to a topic
// gets its own copy of a message; consumers sharing a group compete for it.
// Messages published to a topic without consumers are dropped, and Nack
// does not redeliver.
type Memory struct {
	mu     sync.RWMutex
	topics map[string]map[string]*memoryGroup
	done   chan struct{}
	closed atomic.Bool
	seq    atomic.Uint64
	anon   atomic.Uint64
}

type memoryGroup struct {
	ch   chan *delivery
	refs int
}

func NewMemory() *Memory {
	return &Memory{
		topics: map[string]map[string]*memoryGroup{},
		done:   make(chan struct{}),
	}
}

func (m *Memory) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		close(m.done)
	}
	return nil
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if m.closed.Load() {
		return PublishResult{}, io.ErrClosedPipe
	}

	id := strconv.FormatUint(m.seq.Inc(), 10)
	now := time.Now()

	m.mu.RLock()
	groups := make([]*memoryGroup, 0, len(m.topics[destination]))
	for _, g := range m.topics[destination] {
		groups = append(groups, g)
	}
	m.mu.RUnlock()

	for _, g := range groups {
		d := &delivery{
			id:        id,
			topic:     destination,
			body:      append([]byte(nil), msg.Body...),
			key:       msg.Key,
			headers:   append([]Header(nil), msg.Headers...),
			timestamp: now,
		}
		select {
		case g.ch <- d:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		case <-m.done:
			return PublishResult{}, io.ErrClosedPipe
		}
	}

	return PublishResult{MessageID: id, Topic: destination, Timestamp: now}, nil
}

// Consume joins the queue group set by WithQueueGroup, or a private group
// when none is given.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, source, handler); err != nil {
		return err
	}
	if m.closed.Load() {
		return io.ErrClosedPipe
	}
	co := newConsumeOptions(opts...)

	name := co.queueGroup
	if name == "" {
		name = "_anon." + strconv.FormatUint(m.anon.Inc(), 10)
	}
	g := m.join(source, name)
	defer m.leave(source, name)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case d := <-g.ch:
					//nolint:errcheck // memory ack cannot fail
					_ = dispatch(ctx, DriverMemory, handler, d, co.autoAck)
				}
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return io.ErrClosedPipe
}

func (m *Memory) join(topic, group string) *memoryGroup {
	m.mu.Lock()
	defer m.mu.Unlock()

	groups, ok := m.topics[topic]
	if !ok {
		groups = map[string]*memoryGroup{}
		m.topics[topic] = groups
	}
	g, ok := groups[group]
	if !ok {
		g = &memoryGroup{ch: make(chan *delivery, memoryBuffer)}
		groups[group] = g
	}
	g.refs++
	return g
}

func (m *Memory) leave(topic, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.topics[topic][group]
	if !ok {
		return
	}
	g.refs--
	if g.refs > 0 {
		return
	}
	delete(m.topics[topic], group)
	if len(m.topics[topic]) == 0 {
		delete(m.topics, topic)
	}
}

func (m *Memory) groupCount(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.topics[topic])
}

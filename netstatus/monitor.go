package netstatus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/WikipediaBrown/Kew-Developer/logger"
)

// DefaultInterval is the probe period when no WithInterval option is given.
const DefaultInterval = 5 * time.Second

// ErrMonitorStopped is returned by Run on a monitor that already ran.
var ErrMonitorStopped = errors.New("netstatus: monitor already stopped")

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the probe period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger logs every status change.
func WithLogger(log logger.Logger) Option {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// Monitor owns the process-wide status cell. Only Run mutates it; everyone
// else reads Current or subscribes.
type Monitor struct {
	prober   Prober
	interval time.Duration
	log      logger.Logger

	mu      sync.RWMutex
	current Status
	subs    map[uint64]chan Status
	nextID  uint64
	started bool
	stopped bool
}

func NewMonitor(prober Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:   prober,
		interval: DefaultInterval,
		log:      logger.Nop(),
		subs:     make(map[uint64]chan Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run probes immediately and then every interval until ctx is done. Only
// changes are published. Subscriber channels are closed when Run returns.
// A monitor runs once; cancellation is a clean stop and returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrMonitorStopped
	}
	m.started = true
	m.mu.Unlock()
	defer m.stop()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// Current returns the last observed status.
func (m *Monitor) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe returns a channel that receives every later change. The channel
// holds one value; a slow reader sees the newest status, not a backlog. The
// returned function unsubscribes and may be called more than once.
func (m *Monitor) Subscribe() (<-chan Status, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Status, 1)
	if m.stopped {
		close(ch)
		return ch, func() {}
	}

	id := m.nextID
	m.nextID++
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(c)
			}
		})
	}
}

func (m *Monitor) check(ctx context.Context) {
	status := m.prober.Probe(ctx)
	if ctx.Err() != nil {
		return
	}
	m.publish(status)
}

func (m *Monitor) publish(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if status == m.current {
		return
	}
	previous := m.current
	m.current = status

	// Sends happen only here, under the lock, so after draining the slot the
	// send cannot block.
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- status
	}

	m.log.Info().
		Str("from", previous.String()).
		Str("to", status.String()).
		Int("subscribers", len(m.subs)).
		Msg("Network status changed")
}

func (m *Monitor) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

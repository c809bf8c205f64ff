package console

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// EventType names the messages exchanged between the console and its badge.
type EventType string

const (
	EventOperationStarted EventType = "operation-started"
	EventOperationEnded   EventType = "operation-ended"
	EventPanelOpened      EventType = "panel-opened"
	EventPanelClosed      EventType = "panel-closed"
)

// Event is a fire-and-forget bus message. Op carries the operation family
// for the two operation events.
type Event struct {
	Type    EventType
	Op      string
	Session string
	Time    time.Time
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event. There is no acknowledgment and no
// replay.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	logger *slog.Logger
}

// NewBus builds an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{subs: make(map[int]chan Event), logger: logger}
}

// Subscribe registers a listener with the given channel buffer. The
// returned cancel removes the subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber that has room.
func (b *Bus) Publish(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	b.logger.Debug("event", "type", string(evt.Type), "op", evt.Op, "session", evt.Session)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Debug("event dropped", "type", string(evt.Type), "session", evt.Session)
		}
	}
}

// BadgeState is the folded open/busy indicator the status display reports.
type BadgeState int32

const (
	BadgeClosed BadgeState = iota
	BadgeIdle
	BadgeBusy
)

func (s BadgeState) String() string {
	switch s {
	case BadgeIdle:
		return "open"
	case BadgeBusy:
		return "busy"
	default:
		return "closed"
	}
}

// Badge consumes bus events on its own goroutine and folds them into a
// single state: closed until panel-opened, busy while any operation is in
// flight, idle otherwise. Reads are safe from any goroutine.
type Badge struct {
	open   atomic.Bool
	busy   atomic.Int32
	cancel func()
	done   chan struct{}
}

// WatchBadge subscribes a new Badge to the bus and starts its consumer.
func WatchBadge(bus *Bus) *Badge {
	ch, cancel := bus.Subscribe(64)
	b := &Badge{cancel: cancel, done: make(chan struct{})}
	go b.consume(ch)
	return b
}

func (b *Badge) consume(ch <-chan Event) {
	defer close(b.done)
	for evt := range ch {
		switch evt.Type {
		case EventPanelOpened:
			b.open.Store(true)
		case EventPanelClosed:
			b.open.Store(false)
			b.busy.Store(0)
		case EventOperationStarted:
			b.busy.Add(1)
		case EventOperationEnded:
			if b.busy.Add(-1) < 0 {
				b.busy.Store(0)
			}
		}
	}
}

// State reports the folded badge state.
func (b *Badge) State() BadgeState {
	if !b.open.Load() {
		return BadgeClosed
	}
	if b.busy.Load() > 0 {
		return BadgeBusy
	}
	return BadgeIdle
}

// Stop unsubscribes and waits for the consumer to drain.
func (b *Badge) Stop() {
	b.cancel()
	<-b.done
}

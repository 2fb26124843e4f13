package signaling

import (
	"context"
	"log"
	"sync"
)

// MemoryRelay is the single-process relay used when Redis is not configured.
type MemoryRelay struct {
	buffer int

	mu    sync.Mutex
	rooms map[string]map[chan Event]struct{}
}

func NewMemoryRelay(buffer int) *MemoryRelay {
	if buffer <= 0 {
		buffer = 1
	}
	return &MemoryRelay{buffer: buffer, rooms: make(map[string]map[chan Event]struct{})}
}

func (m *MemoryRelay) Publish(_ context.Context, ev Event) error {
	if !ValidEventType(ev.Type) {
		return ErrUnknownEvent
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.rooms[ev.Room] {
		select {
		case ch <- ev:
		default:
			log.Printf("signaling: dropping %s event for slow subscriber in room %s", ev.Type, ev.Room)
		}
	}
	return nil
}

func (m *MemoryRelay) Subscribe(ctx context.Context, room string) (<-chan Event, func(), error) {
	ch := make(chan Event, m.buffer)
	m.mu.Lock()
	subs, ok := m.rooms[room]
	if !ok {
		subs = make(map[chan Event]struct{})
		m.rooms[room] = subs
	}
	subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.rooms[room], ch)
			if len(m.rooms[room]) == 0 {
				delete(m.rooms, room)
			}
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

func (m *MemoryRelay) Close() error {
	return nil
}

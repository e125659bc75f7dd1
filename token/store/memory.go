package store

import (
	"context"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. It is the backend of choice for tests and for
// short-lived tools that have no reason to persist a session. All watchers on
// the same instance see every change, which also makes it a convenient stand-in
// for multiple application instances sharing one session.
type Memory struct {
	mu       sync.RWMutex
	access   string
	refresh  string
	username string

	watchMu  sync.Mutex
	watchers map[int]chan Event
	nextID   int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{watchers: make(map[int]chan Event)}
}

func (m *Memory) AccessToken(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access, nil
}

func (m *Memory) RefreshToken(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh, nil
}

func (m *Memory) SetTokens(_ context.Context, access, refresh string) error {
	m.mu.Lock()
	m.access = access
	m.refresh = refresh
	m.mu.Unlock()

	m.notify(Event{Key: KeyAccessToken, Present: true}, Event{Key: KeyRefreshToken, Present: true})
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.access = ""
	m.refresh = ""
	m.mu.Unlock()

	m.notify(Event{Key: KeyAccessToken, Present: false}, Event{Key: KeyRefreshToken, Present: false})
	return nil
}

func (m *Memory) RememberedUsername(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username, nil
}

func (m *Memory) SetRememberedUsername(_ context.Context, username string) error {
	m.mu.Lock()
	m.username = username
	m.mu.Unlock()

	m.notify(Event{Key: KeyRememberedUsername, Present: username != ""})
	return nil
}

func (m *Memory) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	m.watchMu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	m.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		m.watchMu.Lock()
		delete(m.watchers, id)
		m.watchMu.Unlock()
		close(ch)
	}()

	return ch
}

func (m *Memory) notify(events ...Event) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for _, ch := range m.watchers {
		for _, e := range events {
			select {
			case ch <- e:
			default: // slow consumer, drop
			}
		}
	}
}

package application

import (
	"sync"

	"voice-home/internal/domain"
)

type Publisher interface {
	Publish(event domain.Event)
}

// Events fans state changes out to subscribers. Subscribers are called
// synchronously and must not block.
type Events struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(domain.Event)
}

func NewEvents() *Events {
	return &Events{subs: make(map[int]func(domain.Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (e *Events) Subscribe(fn func(domain.Event)) func() {
	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Events) Publish(event domain.Event) {
	e.mu.RLock()
	subs := make([]func(domain.Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Event) {}

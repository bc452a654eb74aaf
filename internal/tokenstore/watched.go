package tokenstore

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Event int

const (
	EventSet Event = iota + 1
	EventCleared
)

func (e Event) String() string {
	switch e {
	case EventSet:
		return "set"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Watched decorates a Store and notifies listeners after every successful
// write. Listeners run synchronously on the writer's goroutine, in
// registration order.
type Watched struct {
	Store

	mu        sync.Mutex
	nextID    int
	listeners []subscription
}

func Watch(s Store) *Watched {
	return &Watched{Store: s}
}

// OnChange registers l and returns a function that removes it.
func (w *Watched) OnChange(l Listener) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	w.listeners = append(w.listeners, subscription{id: id, fn: l})

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, s := range w.listeners {
			if s.id == id {
				w.listeners = append(w.listeners[:i], w.listeners[i+1:]...)
				return
			}
		}
	}
}

func (w *Watched) Set(ctx context.Context, c domain.Credential) error {
	if err := w.Store.Set(ctx, c); err != nil {
		return err
	}
	w.notify(EventSet)
	return nil
}

func (w *Watched) Clear(ctx context.Context) error {
	if err := w.Store.Clear(ctx); err != nil {
		return err
	}
	w.notify(EventCleared)
	return nil
}

func (w *Watched) notify(e Event) {
	w.mu.Lock()
	listeners := make([]Listener, 0, len(w.listeners))
	for _, s := range w.listeners {
		listeners = append(listeners, s.fn)
	}
	w.mu.Unlock()

	for _, l := range listeners {
		l(e)
	}
}

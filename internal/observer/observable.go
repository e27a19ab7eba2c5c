// Package observer implements a generic observer/pub-sub primitive used to
// fan out values (e.g. received datagrams) from a single producer goroutine
// to any number of consumers without the producer knowing about them.
package observer

import (
	"slices"
	"sync"
)

const defaultChannelBuffer = 32

type Observable[T any] struct {
	mu        sync.Mutex
	observers []Observer[T]
}

// NewObservable creates a new Observable instance.
func NewObservable[T any]() *Observable[T] {
	return &Observable[T]{
		observers: make([]Observer[T], 0),
	}
}

// chanObserver adapts a channel into an Observer. Sends are non-blocking:
// if the channel's buffer is full, the value is dropped rather than
// stalling the notifying goroutine (typically a socket read loop).
type chanObserver[T any] struct {
	ch chan T
}

func (c *chanObserver[T]) Update(data T) {
	select {
	case c.ch <- data:
	default:
	}
}

// Subscribe registers a new buffered channel that receives every value
// passed to NotifyObservers from this point on.
func (o *Observable[T]) Subscribe() chan T {
	ch := make(chan T, defaultChannelBuffer)
	o.AddObserver(&chanObserver[T]{ch: ch})
	return ch
}

// AddObserver adds an observer to the observable.
func (o *Observable[T]) AddObserver(observer Observer[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, observer)
}

// ObserveOnce adds an observer that will be notified only once.
// After the first notification, it will be removed automatically.
func (o *Observable[T]) ObserveOnce(observer Observer[T]) {
	wrapper := &onceObserver[T]{
		observable: o,
		observer:   observer,
	}
	o.AddObserver(wrapper)
}

// onceObserver is a wrapper that calls the original observer once and then removes itself
type onceObserver[T any] struct {
	observable *Observable[T]
	observer   Observer[T]
}

// Update calls the wrapped observer and then removes itself from the observable
func (o *onceObserver[T]) Update(data T) {
	o.observer.Update(data)
	o.observable.RemoveObserver(o)
}

// RemoveObserver removes an observer from the observable.
func (o *Observable[T]) RemoveObserver(observer Observer[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, obs := range o.observers {
		if obs == observer {
			o.observers = slices.Delete(o.observers, i, i+1)
			return
		}
	}
}

// NotifyObservers notifies all observers with the given data.
func (o *Observable[T]) NotifyObservers(data T) {
	o.mu.Lock()
	observers := slices.Clone(o.observers)
	o.mu.Unlock()

	for _, observer := range observers {
		observer.Update(data)
	}
}

// ClearObservers removes all observers from the observable.
func (o *Observable[T]) ClearObservers() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = nil
}

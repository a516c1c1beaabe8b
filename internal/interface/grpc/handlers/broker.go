package handlers

import (
	"maps"
	"strings"
	"sync"
)

type listener[T any] struct {
	id     string
	topics map[string]struct{}
	ch     chan T
}

func newListener[T any](id string, topics []string, size int) *listener[T] {
	topicsMap := make(map[string]struct{})
	for _, topic := range topics {
		topicsMap[formatTopic(topic)] = struct{}{}
	}
	return &listener[T]{
		id:     id,
		topics: topicsMap,
		ch:     make(chan T, size),
	}
}

// includes returns whether the listener subscribed to topic. A listener
// without topics receives everything.
func (l *listener[T]) includes(topic string) bool {
	if len(l.topics) == 0 {
		return true
	}
	_, ok := l.topics[formatTopic(topic)]
	return ok
}

// broker keeps track of the stream subscriptions and fans events out to them.
type broker[T any] struct {
	lock      *sync.RWMutex
	listeners map[string]*listener[T]
}

func newBroker[T any]() *broker[T] {
	return &broker[T]{
		lock:      &sync.RWMutex{},
		listeners: make(map[string]*listener[T], 0),
	}
}

func (h *broker[T]) pushListener(l *listener[T]) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.listeners[l.id] = l
}

func (h *broker[T]) removeListener(id string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.listeners, id)
}

// publish delivers the event to every listener subscribed to topic. Slow
// listeners whose buffer is full miss the event rather than stalling the others.
func (h *broker[T]) publish(topic string, event T) int {
	count := 0
	for _, l := range h.getListenersCopy() {
		if !l.includes(topic) {
			continue
		}
		select {
		case l.ch <- event:
			count++
		default:
		}
	}
	return count
}

func (h *broker[T]) getListenersCopy() map[string]*listener[T] {
	h.lock.RLock()
	defer h.lock.RUnlock()

	listenersCopy := make(map[string]*listener[T], len(h.listeners))
	maps.Copy(listenersCopy, h.listeners)
	return listenersCopy
}

func (h *broker[T]) hasListeners() bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.listeners) > 0
}

func formatTopic(topic string) string {
	return strings.Trim(strings.ToLower(topic), " ")
}

package events

import (
	"sync"
	"sync/atomic"
)

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker fans recorded events out to subscribers, such as the CLI progress printer
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once
	started     atomic.Bool
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the distribution loop
func (b *Broker) Start() {
	b.started.Store(true)
	go b.run()
}

// Stop delivers pending events, then closes every subscriber channel
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		if b.started.Load() {
			<-b.doneCh
			return
		}
		b.closeAll()
	})
}

// Subscribe creates a new subscription
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish queues an event. It is dropped once the broker is stopped.
func (b *Broker) Publish(event *Event) {
	select {
	case <-b.stopCh:
		return
	default:
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	defer close(b.doneCh)
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			b.drain()
			b.closeAll()
			return
		}
	}
}

func (b *Broker) drain() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		default:
			return
		}
	}
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub)
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

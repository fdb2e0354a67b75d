package watch

import "sync/atomic"

// Notifier fans classified entity events out to subscribers.
//
// Concurrency model: a single internal loop (goroutine) owns the subscriber
// set. Public methods communicate with this loop through channels, so no
// mutexes are required. Events are relayed to every subscriber channel in
// publish order; for a given id that order is the order the watch subsystem
// emitted them, with no reordering or coalescing of distinct transitions.
type Notifier struct {
	subscribeCh   chan chan Event
	unsubscribeCh chan chan Event
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewNotifier creates a notifier and starts its dispatch loop.
func NewNotifier() *Notifier {
	n := &Notifier{
		subscribeCh:   make(chan chan Event),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer close(n.stopped)

	subs := make(map[chan Event]struct{})

	for {
		select {
		case <-n.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-n.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-n.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case ev := <-n.publishCh:
			// Blocking send: a subscriber that stops draining stalls
			// dispatch rather than losing or reordering events.
			for ch := range subs {
				select {
				case ch <- ev:
				case <-n.stopCh:
					return
				}
			}

		case resp := <-n.countReqCh:
			resp <- len(subs)
		}
	}
}

// Subscribe registers a new subscriber and returns its event channel.
// The channel is closed on Close or Unsubscribe.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 64)
	if n.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case n.subscribeCh <- ch:
	case <-n.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(ch chan Event) {
	if n.closed.Load() {
		return
	}
	select {
	case n.unsubscribeCh <- ch:
	case <-n.stopped:
	}
}

// SubscriberCount returns the number of registered subscribers.
func (n *Notifier) SubscriberCount() int {
	if n.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case n.countReqCh <- resp:
	case <-n.stopped:
		return 0
	}
	select {
	case count := <-resp:
		return count
	case <-n.stopped:
		return 0
	}
}

// Publish enqueues an event for delivery to all subscribers.
func (n *Notifier) Publish(ev Event) {
	if n.closed.Load() {
		return
	}
	select {
	case n.publishCh <- ev:
	case <-n.stopped:
	}
}

// Close stops the dispatch loop and closes all subscriber channels.
func (n *Notifier) Close() {
	if n.closed.CompareAndSwap(false, true) {
		close(n.stopCh)
	}
	<-n.stopped
}

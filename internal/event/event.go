// Package event provides a small typed publish/subscribe channel.
//
// Handlers run synchronously on the publishing goroutine in subscription
// order. Publish works on a snapshot, so handlers may subscribe or
// unsubscribe (including themselves) without affecting the delivery in
// progress.
package event

import "sync"

// Token identifies one subscription.
type Token uint64

type subscription[T any] struct {
	token Token
	fn    func(T)
	once  bool
	fired bool
}

// Channel routes payloads of type T to handlers keyed by topic.
type Channel[T any] struct {
	mu     sync.Mutex
	next   Token
	topics map[string][]*subscription[T]
	owner  map[Token]string
}

// NewChannel creates an empty channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{
		topics: make(map[string][]*subscription[T]),
		owner:  make(map[Token]string),
	}
}

// Subscribe adds fn to the handlers for topic.
func (c *Channel[T]) Subscribe(topic string, fn func(T)) Token {
	return c.add(topic, fn, false)
}

// SubscribeOnce adds fn and removes it before its first invocation.
func (c *Channel[T]) SubscribeOnce(topic string, fn func(T)) Token {
	return c.add(topic, fn, true)
}

func (c *Channel[T]) add(topic string, fn func(T), once bool) Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	sub := &subscription[T]{token: c.next, fn: fn, once: once}
	c.topics[topic] = append(c.topics[topic], sub)
	c.owner[sub.token] = topic
	return sub.token
}

// Unsubscribe removes one subscription. Unknown tokens are ignored.
func (c *Channel[T]) Unsubscribe(tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(tok)
}

func (c *Channel[T]) remove(tok Token) {
	topic, ok := c.owner[tok]
	if !ok {
		return
	}
	delete(c.owner, tok)

	subs := c.topics[topic]
	for i, s := range subs {
		if s.token == tok {
			// copy so snapshots held by an in-flight Publish stay intact
			next := make([]*subscription[T], 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			subs = next
			break
		}
	}
	if len(subs) == 0 {
		delete(c.topics, topic)
		return
	}
	c.topics[topic] = subs
}

// Off removes every handler of topic.
func (c *Channel[T]) Off(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.topics[topic] {
		delete(c.owner, s.token)
	}
	delete(c.topics, topic)
}

// Publish delivers payload to the handlers registered for topic at the time
// of the call. Publishing a topic without handlers does nothing.
func (c *Channel[T]) Publish(topic string, payload T) {
	c.mu.Lock()
	subs := c.topics[topic]
	deliver := make([]func(T), 0, len(subs))
	for _, s := range subs {
		if s.once {
			// claimed under the lock so a nested or concurrent Publish
			// cannot deliver it a second time
			if s.fired {
				continue
			}
			s.fired = true
			c.remove(s.token)
		}
		deliver = append(deliver, s.fn)
	}
	c.mu.Unlock()

	for _, fn := range deliver {
		fn(payload)
	}
}

// Clear removes every subscription on every topic.
func (c *Channel[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.topics = make(map[string][]*subscription[T])
	c.owner = make(map[Token]string)
}

// Len reports how many handlers are registered for topic.
func (c *Channel[T]) Len(topic string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.topics[topic])
}

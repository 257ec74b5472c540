package main

import (
	"sync"
	"time"
)

// heartbeatClock fans a single time.Ticker out to multiple subscribers
// so the hub's liveness sweep and the periodic stats logger share one
// cadence. A subscriber that is not ready when a tick lands misses that
// tick; nothing is queued.
type heartbeatClock struct {
	mux         sync.Mutex // protects subscribers, stopped, dropped
	subscribers subscribers
	stopped     bool
	dropped     int

	ticker *time.Ticker
	done   chan struct{}
}

type subscribers map[*subscriber]interface{}

type subscriber struct {
	tick chan time.Time
}

func newHeartbeatClock(interval time.Duration) *heartbeatClock {
	c := &heartbeatClock{
		subscribers: make(subscribers),
		ticker:      time.NewTicker(interval),
		done:        make(chan struct{}),
	}
	go c.loop()
	return c
}

// subscribe returns a receiver of future ticks. Each subscriber gets a
// one-slot buffer, so a slow subscriber drops ticks instead of stalling
// the clock.
func (c *heartbeatClock) subscribe() *subscriber {
	c.mux.Lock()
	defer c.mux.Unlock()

	sub := &subscriber{tick: make(chan time.Time, 1)}
	c.subscribers[sub] = nil
	return sub
}

func (c *heartbeatClock) unsubscribe(sub *subscriber) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if _, ok := c.subscribers[sub]; !ok {
		return
	}
	close(sub.tick)
	delete(c.subscribers, sub)
}

// stop halts the ticker and closes every subscriber channel. Later
// calls are no-ops.
func (c *heartbeatClock) stop() {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true
	c.ticker.Stop()
	close(c.done)
	for sub := range c.subscribers {
		close(sub.tick)
		delete(c.subscribers, sub)
	}
}

func (c *heartbeatClock) loop() {
	for {
		select {
		case t := <-c.ticker.C:
			c.broadcast(t)
		case <-c.done:
			return
		}
	}
}

func (c *heartbeatClock) broadcast(t time.Time) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.stopped {
		return
	}
	for sub := range c.subscribers {
		select {
		case sub.tick <- t:
		default:
			c.dropped++
		}
	}
}

package main

import (
	"testing"
	"time"
)

func TestClockSubscribe(t *testing.T) {
	clock := newHeartbeatClock(time.Hour)
	defer clock.stop()

	// assert no subscribers
	if len(clock.subscribers) != 0 {
		t.Fatal("Expectation: 0, Received:", len(clock.subscribers))
	}

	clock.subscribe()
	if len(clock.subscribers) != 1 {
		t.Fatal("Expectation: 1, Received:", len(clock.subscribers))
	}
}

func TestClockUnsubscribe(t *testing.T) {
	clock := newHeartbeatClock(time.Hour)
	defer clock.stop()
	sub := clock.subscribe()

	// assert chan unsubscribed
	clock.unsubscribe(sub)
	if len(clock.subscribers) != 0 {
		t.Fatal("Expectation: 0, Received:", len(clock.subscribers))
	}

	// assert chan closed
	if _, ok := <-sub.tick; ok {
		t.Fatal("Expectation: tick channel should be closed, Received: open channel")
	}

	// unsubscribing twice is harmless
	clock.unsubscribe(sub)
}

func TestClockTick(t *testing.T) {
	clock := newHeartbeatClock(50 * time.Millisecond)
	defer clock.stop()
	sub1 := clock.subscribe()
	sub2 := clock.subscribe()

	// assert time stamps are passed to subscribing channels
	t1, ok1 := <-sub1.tick
	t2, ok2 := <-sub2.tick

	if !ok1 || !ok2 || t1 != t2 {
		t.Fatal("Expectation: all subscribed channels receive identical time stamps, Received:", t1, t2)
	}
}

func TestClockStop(t *testing.T) {
	clock := newHeartbeatClock(time.Hour)
	sub1 := clock.subscribe()
	sub2 := clock.subscribe()

	clock.stop()

	// assert all subscribing channels closed
	_, ok1 := <-sub1.tick
	_, ok2 := <-sub2.tick
	if ok1 || ok2 {
		t.Fatal("Expectation: all tick channels should be closed, Received: open channel")
	}

	// stopping twice is harmless
	clock.stop()
}

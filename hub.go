package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

type cmdType int

const (
	JOIN cmdType = iota
	LEAVE
	ROUTE
	PONG
	INJECT
	STATS
)

type command struct {
	cmd   cmdType
	conn  *connection
	path  string        // INJECT: target channel id
	text  []byte        // ROUTE, INJECT: payload
	reply chan hubStats // STATS
}

type queue chan command

type channels map[string]*channel

// hubStats is a point-in-time gauge snapshot.
type hubStats struct {
	Connections int `json:"connections"`
	Channels    int `json:"channels"`
}

// hub owns the channel registry and every channel's member set. All
// state transitions run on the hub goroutine: commands arrive on queue,
// heartbeat ticks on tick. Nothing else may mutate a connection's
// relay-side fields.
type hub struct {
	queue     queue
	channels  channels
	tick      <-chan time.Time
	budgetCap int
	logger    *slog.Logger
}

// newHub builds a hub whose flood budget is derived from the heartbeat
// interval: floodRatePerSecond messages per second of interval,
// evaluated against the whole interval. tick may be nil when no sweeps
// are wanted (tests drive their own).
func newHub(interval time.Duration, tick <-chan time.Time, logger *slog.Logger) *hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &hub{
		queue:     make(queue, 16),
		channels:  make(channels),
		tick:      tick,
		budgetCap: floodRatePerSecond * int(interval/time.Second),
		logger:    logger,
	}
}

func (h *hub) run() {
	for {
		select {
		case cmd, ok := <-h.queue:
			if !ok {
				return
			}
			h.dispatch(cmd)
		case t, ok := <-h.tick:
			if !ok {
				return
			}
			h.sweep(t)
		}
	}
}

func (h *hub) dispatch(cmd command) {
	switch cmd.cmd {
	case JOIN:
		h.join(cmd.conn)
	case LEAVE:
		h.leave(cmd.conn)
	case ROUTE:
		h.route(cmd.conn, cmd.text)
	case PONG:
		h.pong(cmd.conn)
	case INJECT:
		h.inject(cmd.path, cmd.text)
	case STATS:
		cmd.reply <- h.stats()
	default:
		panic(fmt.Sprintf("unexpected hub cmd: %v\n", cmd))
	}
}

// join admits a connection, enforcing host uniqueness. The reply on
// conn.control is the connection's channel, or nil when the reserved
// host id is already held by an OPEN member; a rejected connection
// never touches the member set.
func (h *hub) join(c *connection) {
	ch, ok := h.channels[c.channelID]
	if ok && c.playerID == hostID && ch.openHost() != nil {
		incr("connection_terminated_host", 1)
		c.log.Warn("host seat taken, rejecting")
		c.control <- nil
		return
	}
	if !ok {
		ch = newChannel(c.channelID)
		h.channels[c.channelID] = ch
		incr("channels", 1)
	}
	c.channel = ch
	c.state = stateOpen
	ch.add(c)
	incr("connections", 1)
	c.log.Info("joined")
	c.probe()
	c.control <- ch
}

// leave handles a reader pump that has exited. Connections the hub
// already terminated are gone from their channel by now; the drop is a
// no-op then, but the state still settles at CLOSED.
func (h *hub) leave(c *connection) {
	if h.drop(c, stateClosed) {
		c.log.Info("left")
	}
	c.state = stateClosed
}

// drop removes a connection from its channel and closes its send
// channel. Only the first call for a connection acts. The channel entry
// itself stays registered until the reaper's next pass.
func (h *hub) drop(c *connection, state connState) bool {
	ch := c.channel
	if ch == nil {
		return false
	}
	if _, ok := ch.members[c]; !ok {
		return false
	}
	ch.remove(c)
	c.state = state
	decr("connections", 1)
	return true
}

// route applies the spam gate, classifies the payload, and delivers it
// to the proper subset of the sender's channel. The sender is never in
// its own receiver set.
func (h *hub) route(s *connection, raw []byte) {
	if s.state != stateOpen {
		return
	}

	s.budget++
	if s.budget > h.budgetCap {
		h.terminateSpam(s)
		return
	}

	f, err := decodeFrame(raw)
	if err != nil {
		s.log.Warn("dropping direct message", "error", err)
		return
	}

	receivers := s.channel.snapshot()
	switch f.class {
	case classPing:
		// Pings travel only between host and players, carrying the sum
		// of both sides' latency estimates.
		for _, r := range receivers {
			if r == s || r.state != stateOpen {
				continue
			}
			if s.playerID != hostID && r.playerID != hostID {
				continue
			}
			h.deliver(r, f.withLatency(s.latencyMs+r.latencyMs))
		}
	case classDirect:
		for _, r := range receivers {
			if r == s || r.state != stateOpen {
				continue
			}
			if payload, ok := f.targets[r.playerID]; ok {
				h.deliver(r, payload)
			}
		}
	default:
		for _, r := range receivers {
			if r == s || r.state != stateOpen {
				continue
			}
			h.deliver(r, f.raw)
		}
	}
}

// deliver hands a payload to one receiver without blocking the hub. A
// receiver whose send buffer is full loses this one delivery; the relay
// is best-effort and the heartbeat collects truly dead peers.
func (h *hub) deliver(r *connection, payload []byte) {
	select {
	case r.send <- payload:
		incr("messages_outgoing", 1)
	default:
		mark("drops", 1)
	}
}

// pong answers a liveness probe: halve the measured round trip into the
// latency estimate, reset the flood budget, and mark the connection
// alive again. This is the only place the budget resets, so the
// effective cap is per heartbeat interval rather than per wall-clock
// second.
func (h *hub) pong(c *connection) {
	if c.state != stateOpen {
		return
	}
	half := time.Since(c.pingSentAt) / 2
	c.latencyMs = int(half.Round(time.Millisecond) / time.Millisecond)
	c.budget = 0
	c.alive = true
}

// inject broadcasts a server-side payload to every OPEN member of a
// channel. There is no sender, so no spam gate, no classification, and
// no self-exclusion. Payloads for absent channels are dropped.
func (h *hub) inject(path string, text []byte) {
	if len(text) == 0 {
		return
	}
	ch, ok := h.channels[path]
	if !ok {
		mark("drops", 1)
		return
	}
	for _, r := range ch.snapshot() {
		if r.state != stateOpen {
			continue
		}
		h.deliver(r, text)
	}
}

// sweep is one heartbeat tick: terminate every connection that left the
// previous probe unanswered, issue fresh probes to the rest, then reap
// channels with no live member.
func (h *hub) sweep(now time.Time) {
	for _, ch := range h.channels {
		for _, c := range ch.snapshot() {
			if c.state != stateOpen {
				continue
			}
			if !c.alive {
				h.terminateTimeout(c)
				continue
			}
			c.alive = false
			c.pingSentAt = now
			c.probe()
		}
	}
	h.reap()
}

// terminateSpam closes a connection that blew through its message
// budget: a normal-closure frame with the malfunction reason, then
// removal. Later payloads already in flight from it route nowhere.
func (h *hub) terminateSpam(c *connection) {
	c.log.Warn("message budget exceeded, closing", "budget", c.budget)
	c.w.wsCloseWith(websocket.CloseNormalClosure, reasonSpam)
	incr("connection_terminated_spam", 1)
	h.drop(c, stateClosing)
}

// terminateTimeout drops an unresponsive connection with no closing
// handshake.
func (h *hub) terminateTimeout(c *connection) {
	c.log.Info("liveness timeout, terminating")
	c.w.wsClose()
	incr("connection_terminated_timeout", 1)
	h.drop(c, stateClosed)
}

// reap removes every channel with no OPEN or CONNECTING member and
// clears its per-channel gauge.
func (h *hub) reap() {
	for path, ch := range h.channels {
		if ch.hasActive() {
			continue
		}
		delete(h.channels, path)
		unregister(ch.membersGauge())
		decr("channels", 1)
		h.logger.Info("reaped channel", "channel", path)
	}
}

func (h *hub) stats() hubStats {
	open := 0
	for _, ch := range h.channels {
		for c := range ch.members {
			if c.state == stateOpen {
				open++
			}
		}
	}
	return hubStats{Connections: open, Channels: len(h.channels)}
}

// snapshot asks the hub goroutine for its current stats.
func (h *hub) snapshot() hubStats {
	reply := make(chan hubStats, 1)
	h.queue <- command{cmd: STATS, reply: reply}
	return <-reply
}

package main

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type connState int

const (
	stateConnecting connState = iota
	stateOpen
	stateClosing
	stateClosed
)

// connection is one websocket member of one channel. The hub goroutine
// owns everything below the ws plumbing: state, liveness, latency and
// budget are read and written only while handling hub commands.
type connection struct {
	id        string
	channelID string
	playerID  string

	control chan *channel
	channel *channel
	send    chan []byte
	w       websocketManager
	h       *hub
	log     *slog.Logger

	state      connState
	alive      bool
	pingSentAt time.Time
	latencyMs  int
	budget     int
}

func newConnection(w websocketManager, h *hub, channelID, playerID string) *connection {
	id := uuid.NewString()
	return &connection{
		id:        id,
		channelID: channelID,
		playerID:  playerID,
		control:   make(chan *channel, 1),
		send:      make(chan []byte, 256),
		w:         w,
		h:         h,
		log: h.logger.With(
			"conn", id,
			"channel", channelID,
			"player", playerID,
		),
		state:      stateConnecting,
		alive:      true,
		pingSentAt: time.Now(),
	}
}

// run asks the hub for admission and blocks pumping the websocket until
// the peer goes away. The hub assigns c.channel before answering on
// control; a nil answer means the seat was refused.
func (c *connection) run() {
	c.h.queue <- command{cmd: JOIN, conn: c}
	ch := <-c.control
	close(c.control)
	if ch == nil {
		c.w.wsCloseWith(websocket.CloseNormalClosure, hostConflictReason(c.channelID))
		c.state = stateClosed
		return
	}
	defer func() {
		c.h.queue <- command{cmd: LEAVE, conn: c}
	}()
	go c.writer()
	c.reader()
}

func (c *connection) reader() {
	c.w.wsSetReadLimit()
	c.w.wsSetPongHandler(func() {
		c.h.queue <- command{cmd: PONG, conn: c}
	})
	for {
		if err := c.readMessage(); err != nil {
			break
		}
	}
	c.w.wsClose()
}

func (c *connection) readMessage() error {
	_, message, err := c.w.wsReadMessage()
	if err != nil {
		return err
	}
	incr("messages_incoming", 1)
	c.h.queue <- command{cmd: ROUTE, conn: c, text: message}
	return nil
}

func (c *connection) writer() {
	for message := range c.send {
		c.w.wsSetWriteDeadline()
		if err := c.w.wsWriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	c.w.wsClose()
}

// probe sends a ws ping control frame. The pong, if any, comes back
// through the read pump's pong handler.
func (c *connection) probe() {
	if err := c.w.wsPing(); err != nil {
		c.log.Debug("ping failed", "error", err)
	}
}

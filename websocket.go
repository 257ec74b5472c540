package main

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to flush a control frame (probe or close) to the peer.
	controlWait = time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// websocketManager is the seam between the relay core and the gorilla
// connection. Close frames and probes go out via WriteControl, which
// gorilla allows concurrently with the writer pump.
type websocketManager interface {
	wsSetReadLimit()
	wsSetPongHandler(func())
	wsReadMessage() (int, []byte, error)
	wsSetWriteDeadline()
	wsWriteMessage(int, []byte) error
	wsPing() error
	wsCloseWith(code int, reason string)
	wsClose()
}

type websocketInteractor struct {
	ws *websocket.Conn
}

func (w websocketInteractor) wsSetReadLimit() {
	w.ws.SetReadLimit(maxMessageSize)
}

func (w websocketInteractor) wsSetPongHandler(h func()) {
	w.ws.SetPongHandler(func(s string) error { h(); return nil })
}

func (w websocketInteractor) wsReadMessage() (messageType int, p []byte, err error) {
	return w.ws.ReadMessage()
}

func (w websocketInteractor) wsSetWriteDeadline() {
	w.ws.SetWriteDeadline(time.Now().Add(writeWait))
}

func (w websocketInteractor) wsWriteMessage(messageType int, payload []byte) error {
	return w.ws.WriteMessage(messageType, payload)
}

// wsPing issues a liveness probe.
func (w websocketInteractor) wsPing() error {
	return w.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWait))
}

// wsCloseWith sends a close frame carrying code and reason, then tears
// the connection down. Errors are ignored; the peer may already be gone.
func (w websocketInteractor) wsCloseWith(code int, reason string) {
	w.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(controlWait))
	w.ws.Close()
}

// wsClose tears the connection down with no closing handshake.
func (w websocketInteractor) wsClose() {
	w.ws.Close()
}

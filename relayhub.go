// Package relayhub relays opaque application messages among the members
// of a named session ("channel") over websockets.
//
//	relayhub -addr=:8082
//
// Everything is as ephemeral as can be. A channel exists only while it
// has members; a message is delivered to the channel's other members
// (if any) and then forgotten. One member per channel may claim the
// reserved player id "host"; everyone else is an ordinary player.
//
// Join a channel by opening a websocket to a path whose last two
// segments name the channel and the player, in that order.
//
//	ws://localhost:8082/game1/host
//	ws://localhost:8082/game1/p1
//
// Messages are JSON arrays whose first element is a type tag:
//
//	["ping", 0, ...]          exchanged only between host and players;
//	                          the relay rewrites element 1 to the sum
//	                          of both sides' estimated latencies
//	["direct", {"p1": ...}]   delivers each value only to the player
//	                          named by its key
//	anything else             broadcast verbatim to the other members
//
// The sender never receives its own message back. Connections that stop
// answering websocket pings are dropped on the next heartbeat tick, and
// connections that flood the relay are closed as malfunctioning.
//
// Non-websocket GET requests are served HTML with a websocket client
// that connects to the requested path. POSTing a body to /channelname
// broadcasts it to every member of that channel.
//
// Paths and messages must be valid UTF-8. Paths can be 1-256 characters.
package main

import (
	"fmt"
	"time"
)

const (
	pathLenMin = 1
	pathLenMax = 256

	// hostID is the reserved player id. At most one member per channel
	// may hold it while OPEN.
	hostID = "host"

	// floodRatePerSecond caps inbound messages per connection. The
	// budget is evaluated against the whole heartbeat interval (cap =
	// floodRatePerSecond * interval seconds) and resets only when the
	// connection answers a liveness probe.
	floodRatePerSecond = 5

	// defaultHeartbeat is the nominal probe interval.
	defaultHeartbeat = 30 * time.Second
)

const (
	// reasonSpam accompanies the normal-closure code sent to a
	// connection that exceeded its message budget.
	reasonSpam = "malfunctioning connection: message budget exceeded"

	// reasonHostTaken names the channel; built with hostConflictReason.
	reasonHostTakenFmt = "channel %q already has a host"
)

// Message type tags recognized by the router. Compared case-insensitively;
// any other tag falls through to the broadcast path.
const (
	tagPing   = "ping"
	tagDirect = "direct"
)

// hostConflictReason is the close reason delivered to a second host
// attempting to join a channel whose host seat is taken.
func hostConflictReason(channel string) string {
	return fmt.Sprintf(reasonHostTakenFmt, channel)
}

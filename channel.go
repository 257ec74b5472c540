package main

// channel groups the connections joined under one path-derived id.
// Channels are plain data owned by the hub goroutine; every mutation of
// the member set happens there.
type channel struct {
	path    string
	members members
}

type members map[*connection]struct{}

func newChannel(path string) *channel {
	return &channel{
		path:    path,
		members: make(members),
	}
}

func (c *channel) add(conn *connection) {
	c.members[conn] = struct{}{}
	incr(c.membersGauge(), 1)
}

// remove drops a member and closes its send channel. Only the first
// call for a given connection acts.
func (c *channel) remove(conn *connection) {
	if _, ok := c.members[conn]; !ok {
		return
	}
	delete(c.members, conn)
	close(conn.send)
	decr(c.membersGauge(), 1)
}

// snapshot returns a stable copy of the member set so a delivery that
// removes a member cannot corrupt the iteration.
func (c *channel) snapshot() []*connection {
	conns := make([]*connection, 0, len(c.members))
	for conn := range c.members {
		conns = append(conns, conn)
	}
	return conns
}

// openHost returns the member holding the reserved host id in OPEN
// state, if any.
func (c *channel) openHost() *connection {
	for conn := range c.members {
		if conn.playerID == hostID && conn.state == stateOpen {
			return conn
		}
	}
	return nil
}

// hasActive reports whether any member could still produce traffic. A
// channel with no OPEN or CONNECTING member is eligible for the next
// reaper pass.
func (c *channel) hasActive() bool {
	for conn := range c.members {
		if conn.state == stateOpen || conn.state == stateConnecting {
			return true
		}
	}
	return false
}

func (c *channel) membersGauge() string {
	return "channel." + c.path + ".members"
}

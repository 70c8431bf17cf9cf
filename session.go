package ludserver

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ludnet/ludserver/internal/wire"
)

// Session holds the state for a single client connection: its identity, the
// channels it has joined, its write queue, and its liveness bookkeeping.
//
// Everything except the read and write loops is owned by the server's event
// loop goroutine.
type Session struct {
	conn Conn

	// WriteChan is the channel to send to to write to the client. It holds
	// fully rendered lines, CRLF included.
	WriteChan chan string

	// A unique id. Internal to this server only.
	ID uint64

	server *Server

	// The nickname the session claimed, in the case it typed. Blank until
	// NICK succeeds.
	Nick string

	// USER fields. Username doubles as the "did USER happen" flag.
	Username string
	RealName string

	// True once NICK followed by USER completed.
	Registered bool

	// Names (without the # sigil) of channels the session has joined. Held
	// as names rather than handles so channel deletion cannot dangle.
	Channels map[string]struct{}

	// The last time we heard anything from the client.
	LastActivityTime time.Time

	// The last time we sent the client a PING.
	LastPingTime time.Time

	// True iff we sent a PING and have not heard a PONG back.
	PingPending bool

	// Track if we overflow our send queue. If we do, we'll kill the client.
	SendQueueExceeded bool

	// Cuts complete lines out of the raw byte stream. Touched only by the
	// read loop.
	framer wire.Framer
}

// The write queue must be buffered so the event loop never blocks on a stuck
// client. Make it large enough that it should only max out in case of
// connection issues.
const sendQueueSize = 1024

func newSession(s *Server, id uint64, conn net.Conn) *Session {
	now := time.Now()

	return &Session{
		conn:      NewConn(conn, s.Config.IOWaitTime),
		WriteChan: make(chan string, sendQueueSize),
		ID:        id,
		server:    s,
		Channels:  make(map[string]struct{}),

		LastActivityTime: now,
		LastPingTime:     now,
	}
}

func (c *Session) String() string {
	return fmt.Sprintf("%d %s", c.ID, c.conn.RemoteAddr())
}

// nickUhost builds the client-originated source field: nick!user@host.
func (c *Session) nickUhost() string {
	return fmt.Sprintf("%s!%s@%s", c.Nick, c.Username, c.conn.IP.String())
}

// nickOrStar is the nick to put in numeric replies. Use * in cases where the
// client doesn't have one yet. This is what ircd-ratbox does.
func (c *Session) nickOrStar() string {
	if c.Nick == "" {
		return "*"
	}
	return c.Nick
}

// queue appends a rendered line to the session's write queue. The write loop
// drains the queue to the socket.
//
// This function won't block. If the session's queue is full, we flag it as
// having a full send queue and the next sweep cuts it off.
//
// Not blocking is important because the event loop sends sessions lines this
// way, and if we blocked on a problem client, everything would grind to a
// halt.
func (c *Session) queue(line string) {
	if c.SendQueueExceeded {
		return
	}

	select {
	case c.WriteChan <- line:
	default:
		c.SendQueueExceeded = true
	}
}

// announceQuit tells every other member of every channel the session joined
// that it is gone. Each peer hears it once, no matter how many channels they
// share.
func (c *Session) announceQuit(reason string) {
	line := wire.Render(c.nickUhost(), "QUIT", ":"+reason)
	self := canonicalizeNick(c.Nick)

	toldSessions := map[string]struct{}{}

	for name := range c.Channels {
		channel, exists := c.server.channels[name]
		if !exists {
			continue
		}

		for nick := range channel.Members {
			if nick == self {
				continue
			}
			if _, told := toldSessions[nick]; told {
				continue
			}
			toldSessions[nick] = struct{}{}

			if member, exists := c.server.nicks[nick]; exists {
				member.queue(line)
			}
		}
	}
}

// announcePart tells every member of the channel, the session included, that
// the session left it.
func (c *Session) announcePart(name string) {
	channel, exists := c.server.channels[name]
	if !exists {
		return
	}

	line := wire.Render(c.nickUhost(), "PART", "#"+name)
	for _, member := range c.server.channelMembers(channel) {
		member.queue(line)
	}
}

// readLoop endlessly reads from the session's TCP connection. It frames and
// parses each protocol line and passes it to the server through the server's
// channel.
func (c *Session) readLoop() {
	for {
		if c.server.isShuttingDown() {
			break
		}

		chunk, err := c.conn.Read()
		if err != nil {
			reason := "transport error"
			if errors.Cause(err) == io.EOF {
				reason = "Client connection closed."
			}
			c.server.newEvent(Event{
				Type:      DeadSessionEvent,
				SessionID: c.ID,
				Reason:    reason,
			})
			break
		}

		lines, ferr := c.framer.Push(chunk)
		for _, line := range lines {
			c.server.logger.Incoming(c.conn.IP.String(), c.conn.Port, line)

			c.server.newEvent(Event{
				Type:      MessageFromSessionEvent,
				SessionID: c.ID,
				Message:   wire.ParseLine(line),
			})
		}

		if ferr != nil {
			c.server.logger.Msg("Client %s: %s", c, ferr)
			c.server.newEvent(Event{Type: EncodingErrorEvent, SessionID: c.ID})
			break
		}
	}

	c.server.logger.Msg("Client %s: Reader shutting down.", c)
}

// writeLoop endlessly reads from the session's channel and writes to the
// session's TCP connection. Everything queued at the time a write becomes
// possible goes out as one contiguous send.
//
// When the channel is closed, or if we have a write error, close the TCP
// connection. I have this here so that we try to deliver lines to the client
// before closing its socket and giving up.
func (c *Session) writeLoop() {
	// Ensure we also stop if the server is shutting down (indicated by the
	// shutdown channel being closed). If we don't, then there is potential
	// for us to leak this goroutine: consider a new session whose
	// NewSessionEvent the server never saw because it was already shutting
	// down. Nothing would ever close the write channel.
Loop:
	for {
		select {
		case line, ok := <-c.WriteChan:
			if !ok {
				break Loop
			}

			batch := []string{line}
		Drain:
			for {
				select {
				case more, ok := <-c.WriteChan:
					if !ok {
						break Drain
					}
					batch = append(batch, more)
				default:
					break Drain
				}
			}

			if err := c.conn.Write(strings.Join(batch, "")); err != nil {
				c.server.logger.Msg("Client %s: %s", c, err)
				c.server.newEvent(Event{
					Type:      DeadSessionEvent,
					SessionID: c.ID,
					Reason:    "transport error",
				})
				break Loop
			}

			for _, sent := range batch {
				c.server.logger.Outgoing(c.conn.IP.String(), c.conn.Port,
					strings.TrimSuffix(sent, "\r\n"))
			}

		case <-c.server.shutdownChan:
			break Loop
		}
	}

	if err := c.conn.Close(); err != nil {
		c.server.logger.Msg("Client %s: Problem closing connection: %s", c, err)
	}

	c.server.logger.Msg("Client %s: Writer shutting down.", c)
}

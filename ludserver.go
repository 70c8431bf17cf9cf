// Package ludserver implements a small IRC-style chat relay. It accepts TCP
// clients, registers them under unique nicknames, groups them into channels,
// and relays messages between them using the classic numeric reply
// vocabulary.
package ludserver

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"

	"github.com/ludnet/ludserver/internal/logging"
	"github.com/ludnet/ludserver/internal/wire"
)

// Server holds the state for a server.
// I put everything global to a server in an instance of struct rather than
// have global variables.
type Server struct {
	Config Config

	logger logging.Logger

	// Connection id to Session.
	sessions map[uint64]*Session

	// Canonicalized nickname to Session.
	nicks map[string]*Session

	// Channel name to Channel.
	channels map[string]*Channel

	// When we close this channel, this indicates that we're shutting down.
	// Other goroutines can check if this channel is closed.
	shutdownChan chan struct{}

	// Tell the server something on this channel.
	toServerChan chan Event

	listener net.Listener

	// Host portion of the bound listener address. Reported in WHO replies.
	hostname string

	// WaitGroup to ensure all goroutines clean up before we end.
	wg *conc.WaitGroup
}

// Event holds a message containing something to tell the server.
type Event struct {
	Type EventType

	// We don't always hold the session itself when sending about one. Use
	// SessionID where possible.
	SessionID uint64

	Session *Session

	Message wire.Message

	// Why a session died, for DeadSessionEvent.
	Reason string
}

// EventType is a type of event we can tell the server about.
type EventType int

const (
	// NullEvent is a default event. This means the event was not populated.
	NullEvent EventType = iota

	// NewSessionEvent means a new client connected.
	NewSessionEvent

	// DeadSessionEvent means a session died for some reason. Clean it up.
	DeadSessionEvent

	// MessageFromSessionEvent means a client sent a message.
	MessageFromSessionEvent

	// EncodingErrorEvent means a client sent bytes we refuse to decode. We
	// tell it off and cut it loose.
	EncodingErrorEvent

	// WakeUpEvent means the server should wake up and do bookkeeping.
	WakeUpEvent

	// ShutdownEvent means the server should begin shutting down.
	ShutdownEvent
)

// NewServer creates a Server from the given configuration. Zero-value fields
// in the configuration take their defaults. A nil logger discards everything.
func NewServer(cfg Config, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop{}
	}

	return &Server{
		Config: cfg.withDefaults(),
		logger: logger,

		sessions: make(map[uint64]*Session),
		nicks:    make(map[string]*Session),
		channels: make(map[string]*Channel),

		// shutdown() closes this channel.
		shutdownChan: make(chan struct{}),

		// We never manually close this channel.
		toServerChan: make(chan Event),

		wg: conc.NewWaitGroup(),
	}
}

// ListenAndServe binds the configured address and serves until shutdown.
// The default listen host is "::", giving a dual-stack socket where the OS
// supports one. A bind failure is fatal and reported to the caller.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.Config.ListenHost,
		s.Config.ListenPort))
	if err != nil {
		return errors.Wrap(err, "unable to listen")
	}

	return s.Serve(ln)
}

// Serve accepts connections on the listener and processes events until
// shutdown. All registry state lives on this goroutine; connection reads and
// writes happen on per-session goroutines that talk to us over channels.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.hostname = tcpAddr.IP.String()
	} else {
		s.hostname = s.Config.ListenHost
	}

	s.logger.Msg("%s listening on %s", s.Config.ServerName, ln.Addr())

	// acceptConnections accepts connections on the TCP listener.
	s.wg.Go(s.acceptConnections)

	// Alarm is a goroutine to wake up this one periodically so we can do
	// things like ping clients.
	s.wg.Go(s.alarm)

	s.eventLoop()

	// We don't need to drain any channels. None close that will have any
	// goroutines blocked on them.

	s.wg.Wait()

	s.logger.Msg("Server shutdown cleanly.")

	return nil
}

// Shutdown asks the server to stop. It may be called from any goroutine. It
// returns without waiting; Serve returns once shutdown completes.
func (s *Server) Shutdown() {
	s.newEvent(Event{Type: ShutdownEvent})
}

// eventLoop processes events on the server's channel.
//
// It continues until the shutdown channel closes, indicating shutdown.
func (s *Server) eventLoop() {
	for {
		select {
		case evt := <-s.toServerChan:
			switch evt.Type {
			case NewSessionEvent:
				s.logger.Msg("New client connection: %s", evt.Session)
				s.attach(evt.Session)

			case DeadSessionEvent:
				sess, exists := s.sessions[evt.SessionID]
				if !exists {
					continue
				}
				s.detach(sess, evt.Reason)

			case MessageFromSessionEvent:
				sess, exists := s.sessions[evt.SessionID]
				if !exists {
					continue
				}
				sess.LastActivityTime = time.Now()
				sess.handleMessage(evt.Message)

			case EncodingErrorEvent:
				sess, exists := s.sessions[evt.SessionID]
				if !exists {
					continue
				}
				sess.replyNotRegistered()
				s.detach(sess, "encoding error")

			case WakeUpEvent:
				s.checkAndPingSessions()

			case ShutdownEvent:
				s.shutdown()

			default:
				s.logger.Msg("Unexpected event: %d", evt.Type)
			}

		case <-s.shutdownChan:
			return
		}
	}
}

// shutdown starts server shutdown.
func (s *Server) shutdown() {
	s.logger.Msg("Server shutdown initiated.")

	// Closing shutdownChan indicates to other goroutines that we're shutting
	// down.
	close(s.shutdownChan)

	if err := s.listener.Close(); err != nil {
		s.logger.Msg("Problem closing TCP listener: %s", err)
	}

	// All sessions need to be torn down. This also closes their write
	// channels.
	for _, sess := range s.sessions {
		s.detach(sess, "server shutting down")
	}
}

// acceptConnections accepts TCP connections and tells the main server loop
// through a channel. It sets up separate goroutines for reading/writing to
// and from the client.
func (s *Server) acceptConnections() {
	id := uint64(0)

	for {
		if s.isShuttingDown() {
			break
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				break
			}
			s.logger.Msg("Failed to accept connection: %s", err)
			continue
		}

		sess := newSession(s, id, conn)
		id++

		// toServerChan is synchronous. We want to make sure the server knows
		// about the session before it starts hearing anything from its other
		// channels about the session.
		s.newEvent(Event{Type: NewSessionEvent, Session: sess})

		s.wg.Go(sess.readLoop)
		s.wg.Go(sess.writeLoop)
	}

	s.logger.Msg("Connection accepter shutting down.")
}

// Return true if the server is shutting down.
func (s *Server) isShuttingDown() bool {
	// No messages get sent to this channel, so if we receive a message on
	// it, then we know the channel was closed.
	select {
	case <-s.shutdownChan:
		return true
	default:
		return false
	}
}

// Alarm sends a message to the server goroutine to wake it up.
// It sleeps and then repeats.
func (s *Server) alarm() {
	for {
		select {
		case <-time.After(s.Config.WakeupTime):
			s.newEvent(Event{Type: WakeUpEvent})
		case <-s.shutdownChan:
			s.logger.Msg("Alarm shutting down.")
			return
		}
	}
}

// checkAndPingSessions looks at each connected session.
//
// If it's been idle past the ping threshold, we send it a PING. If it doesn't
// answer a PING within the grace period, we cut it off. Sessions that
// overflowed their send queue get cut off here too.
func (s *Server) checkAndPingSessions() {
	now := time.Now()

	for _, sess := range s.sessions {
		if sess.SendQueueExceeded {
			s.detach(sess, "send queue exceeded")
			continue
		}

		if sess.PingPending {
			if now.Sub(sess.LastPingTime) > s.Config.PongTime {
				s.detach(sess, "ping timeout")
			}
			continue
		}

		if now.Sub(sess.LastActivityTime) > s.Config.PingTime {
			sess.queue(wire.Render(s.Config.ServerName, "PING",
				"Aliveness check"))
			sess.PingPending = true
			sess.LastPingTime = now
		}
	}
}

// newEvent tells the server something happened.
//
// Any goroutine can call this function.
//
// It will not block on shutdown as we select on the shutdown channel, which
// we close when shutting down the server. This means receive on the shutdown
// channel will proceed at that point.
func (s *Server) newEvent(evt Event) {
	select {
	case s.toServerChan <- evt:
	case <-s.shutdownChan:
	}
}

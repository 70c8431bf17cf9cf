// Package logging defines the logger the server core reports through. The
// core calls one hook per framed inbound line, one per written outbound line,
// and a printf-style hook for lifecycle events; rendering is entirely the
// logger's business.
package logging

import (
	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// Logger receives protocol traffic and lifecycle events from the server.
// Implementations must be safe for concurrent use; the hooks are called from
// the per-connection reader and writer goroutines as well as the event loop.
type Logger interface {
	// Incoming is called once per framed line read from a client, without
	// its CRLF.
	Incoming(host string, port int, line string)

	// Outgoing is called once per line written to a client, without its
	// CRLF.
	Outgoing(host string, port int, line string)

	// Msg is called on lifecycle events: start, accept, registration,
	// detach, shutdown.
	Msg(format string, args ...interface{})
}

// Log is a logrus-backed Logger. Protocol traffic is tagged with its
// direction and the remote endpoint.
type Log struct {
	l *logrus.Logger
}

// New creates a Log writing human-readable lines to stderr.
func New() *Log {
	l := logrus.New()
	l.SetFormatter(&nested.Formatter{
		FieldsOrder:     []string{"dir", "host", "port"},
		TimestampFormat: "15:04:05",
	})
	return &Log{l: l}
}

func (g *Log) Incoming(host string, port int, line string) {
	g.traffic("in", host, port, line)
}

func (g *Log) Outgoing(host string, port int, line string) {
	g.traffic("out", host, port, line)
}

func (g *Log) Msg(format string, args ...interface{}) {
	g.l.Infof(format, args...)
}

func (g *Log) traffic(dir, host string, port int, line string) {
	g.l.WithFields(logrus.Fields{
		"dir":  dir,
		"host": host,
		"port": port,
	}).Info(line)
}

// Nop is a Logger that discards everything. Useful in tests.
type Nop struct{}

func (Nop) Incoming(string, int, string) {}

func (Nop) Outgoing(string, int, string) {}

func (Nop) Msg(string, ...interface{}) {}

package ludserver

import (
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
)

// readBufferSize is the most we take off the wire in one read.
const readBufferSize = 1024

// Conn is a connection to a client.
type Conn struct {
	conn net.Conn

	// ioWait bounds how long any single read or write may block.
	ioWait time.Duration

	// IP and Port of the remote side. Zero when the underlying connection
	// is not TCP.
	IP   net.IP
	Port int
}

// NewConn initializes a Conn struct.
func NewConn(conn net.Conn, ioWait time.Duration) Conn {
	c := Conn{
		conn:   conn,
		ioWait: ioWait,
	}

	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		c.IP = tcpAddr.IP
		c.Port = tcpAddr.Port
	}

	return c
}

// Close closes the underlying connection.
func (c Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote network address.
func (c Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Read reads a chunk of bytes from the connection. It returns whatever is
// available, up to readBufferSize. Cutting the stream into lines is the
// framer's job.
func (c Conn) Read() ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.ioWait)); err != nil {
		return nil, fmt.Errorf("error setting read deadline: %s", err)
	}

	buf := make([]byte, readBufferSize)

	n, err := c.conn.Read(buf)
	if n > 0 {
		// There may be an error as well, but we want what we read. The next
		// read reports the error again.
		return buf[:n], nil
	}

	return nil, errors.Wrap(err, "error reading")
}

// Write writes a string to the connection.
func (c Conn) Write(s string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.ioWait)); err != nil {
		return fmt.Errorf("error setting write deadline: %s", err)
	}

	sz, err := c.conn.Write([]byte(s))
	if err != nil {
		return errors.Wrap(err, "error writing")
	}

	if sz != len(s) {
		return fmt.Errorf("short write")
	}

	return nil
}

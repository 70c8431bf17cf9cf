package wire

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

// maxBufferedLine caps how many bytes we hold waiting for a line terminator.
// A client that sends this much without a CRLF is not speaking the protocol.
const maxBufferedLine = 4096

var crlf = []byte("\r\n")

// ErrInvalidEncoding means a completed line was not valid UTF-8.
var ErrInvalidEncoding = errors.New("line is not valid UTF-8")

// ErrLineTooLong means a line exceeded maxBufferedLine without a terminator.
var ErrLineTooLong = errors.New("line exceeds buffer limit")

// Framer accumulates raw bytes from one connection and cuts them into
// complete CRLF-terminated lines. The trailing partial line is retained
// between pushes, so a protocol message may arrive across any number of
// reads. A bare "\n" does not terminate a line.
//
// The zero value is ready to use. A Framer must not be shared between
// goroutines.
type Framer struct {
	buf []byte
}

// Push appends a chunk of freshly read bytes and returns the complete lines
// now available, without their CRLF. Empty lines are discarded.
//
// On ErrInvalidEncoding or ErrLineTooLong the lines completed before the
// offending input are still returned; the caller is expected to drop the
// connection, so no recovery of the remaining buffer is attempted.
func (f *Framer) Push(chunk []byte) ([]string, error) {
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		i := bytes.Index(f.buf, crlf)
		if i == -1 {
			if len(f.buf) > maxBufferedLine {
				f.buf = nil
				return lines, ErrLineTooLong
			}
			return lines, nil
		}

		segment := f.buf[:i]
		f.buf = f.buf[i+2:]

		if len(segment) == 0 {
			continue
		}

		if !utf8.Valid(segment) {
			return lines, ErrInvalidEncoding
		}

		lines = append(lines, string(segment))
	}
}

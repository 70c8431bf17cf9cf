// Package wire implements the line protocol spoken between the server and
// its clients: framing raw socket bytes into CRLF-terminated lines, splitting
// a line into its prefix, command, and parameter tail, and rendering outbound
// lines.
//
// Parsing here is deliberately shallow. A line decomposes into at most three
// tokens; whatever structure the parameter tail has is the business of the
// command handlers.
package wire

import "strings"

// Message is one parsed protocol line.
type Message struct {
	// Prefix is the source field, without its leading ":". Usually blank on
	// lines from clients.
	Prefix string

	// Command is the command token. Case matters: "privmsg" is not "PRIVMSG".
	Command string

	// Params is the raw parameter tail, unparsed. May be blank.
	Params string
}

// ParseLine splits a line into (prefix, command, params).
//
// A line starting with ":" carries a prefix and splits into at most three
// tokens on single spaces. Any other line splits into at most two. The
// parameter tail is kept verbatim, trailing ":" sigils included.
func ParseLine(line string) Message {
	var m Message

	if strings.HasPrefix(line, ":") {
		tokens := strings.SplitN(line, " ", 3)
		m.Prefix = strings.TrimPrefix(tokens[0], ":")
		if len(tokens) > 1 {
			m.Command = tokens[1]
		}
		if len(tokens) > 2 {
			m.Params = tokens[2]
		}
		return m
	}

	tokens := strings.SplitN(line, " ", 2)
	m.Command = tokens[0]
	if len(tokens) > 1 {
		m.Params = tokens[1]
	}
	return m
}

// Render produces the canonical wire form of one outbound line:
// ":<source> <command> <params>\r\n". No escaping is applied; params must
// already carry any ":" trailing sigil they need.
func Render(source, command, params string) string {
	if params == "" {
		return ":" + source + " " + command + "\r\n"
	}
	return ":" + source + " " + command + " " + params + "\r\n"
}

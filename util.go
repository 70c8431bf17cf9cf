package ludserver

import (
	"strings"
	"unicode/utf8"
)

const maxNickLength = 9

// canonicalizeNick gives the form of a nick used for map keys and
// comparisons. Nicks differing only in case are the same nick.
func canonicalizeNick(nick string) string {
	return strings.ToLower(nick)
}

// isValidNick decides whether we accept a nickname.
func isValidNick(nick string) bool {
	if nick == "" || utf8.RuneCountInString(nick) > maxNickLength {
		return false
	}

	if strings.ContainsAny(nick[:1], "$:#&") {
		return false
	}

	return !strings.ContainsAny(nick, " ,!?@*.")
}

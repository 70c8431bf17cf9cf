package ludserver

import "sort"

// This file holds the functions that mutate the server's session, nick, and
// channel maps. Only the event loop goroutine calls them.

// attach starts tracking a session. It happens once per connection, before
// any of its traffic is seen.
func (s *Server) attach(c *Session) {
	s.sessions[c.ID] = c
}

// claimNick tries to reserve the nickname for the session. It reports
// whether the nick was free. Nicks differing only in case collide.
func (s *Server) claimNick(c *Session, nick string) bool {
	canonical := canonicalizeNick(nick)

	if _, exists := s.nicks[canonical]; exists {
		return false
	}

	s.nicks[canonical] = c
	c.Nick = nick
	return true
}

// addToChannel places the session in the channel, creating the channel if it
// does not exist yet. The name carries no # sigil.
func (s *Server) addToChannel(c *Session, name string) *Channel {
	channel, exists := s.channels[name]
	if !exists {
		channel = newChannel(name)
		s.channels[name] = channel
	}

	channel.Members[canonicalizeNick(c.Nick)] = struct{}{}
	c.Channels[name] = struct{}{}

	return channel
}

// removeFromChannel takes the session out of the channel. A channel with no
// members left is deleted.
func (s *Server) removeFromChannel(c *Session, name string) {
	channel, exists := s.channels[name]
	if !exists {
		return
	}

	delete(channel.Members, canonicalizeNick(c.Nick))
	delete(c.Channels, name)

	if len(channel.Members) == 0 {
		delete(s.channels, name)
	}
}

// detach forgets the session entirely: its channels, its nick, and its entry
// in the session table. Queued lines still go out; the write loop closes the
// connection once it drains them.
//
// It is safe to call more than once for the same session. Events racing a
// detach (a dead reader and a dead writer, say) make that possible.
func (s *Server) detach(c *Session, reason string) {
	if _, exists := s.sessions[c.ID]; !exists {
		return
	}

	s.logger.Msg("Client %s: Detaching: %s", c, reason)

	for name := range c.Channels {
		s.removeFromChannel(c, name)
	}

	if c.Nick != "" {
		delete(s.nicks, canonicalizeNick(c.Nick))
	}

	delete(s.sessions, c.ID)

	close(c.WriteChan)
}

// channelMembers resolves the channel's member nicks to sessions, ordered by
// nick so that listings come out the same way every time.
func (s *Server) channelMembers(channel *Channel) []*Session {
	nicks := make([]string, 0, len(channel.Members))
	for nick := range channel.Members {
		nicks = append(nicks, nick)
	}
	sort.Strings(nicks)

	members := make([]*Session, 0, len(nicks))
	for _, nick := range nicks {
		if member, exists := s.nicks[nick]; exists {
			members = append(members, member)
		}
	}
	return members
}

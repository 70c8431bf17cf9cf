package ludserver

// Channel holds everything to do with a channel.
//
// Channels exist only while they have members. The last PART, QUIT, or
// disconnect deletes the channel, topic included.
type Channel struct {
	// Name without the # sigil.
	Name string

	// Canonical nicks of the members.
	Members map[string]struct{}

	// Topic set by TOPIC. Blank means no topic.
	Topic string
}

func newChannel(name string) *Channel {
	return &Channel{
		Name:    name,
		Members: make(map[string]struct{}),
	}
}

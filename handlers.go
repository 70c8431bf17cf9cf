package ludserver

import (
	"strings"

	"github.com/ludnet/ludserver/internal/wire"
)

// preRegCommands are the commands a session may use before it completes
// registration. Anything else gets a 451.
var preRegCommands = map[string]struct{}{
	"NICK": {},
	"USER": {},
	"PING": {},
	"PONG": {},
	"QUIT": {},
}

// handleMessage dispatches one parsed message from the session.
//
// Commands are case sensitive. We ignore any prefix the client sent.
//
// The event loop calls this. Handlers may touch any server state.
func (c *Session) handleMessage(m wire.Message) {
	if !c.Registered {
		if _, ok := preRegCommands[m.Command]; !ok {
			c.replyNotRegistered()
			return
		}
	}

	switch m.Command {
	case "NICK":
		c.nickCommand(m)
	case "USER":
		c.userCommand(m)
	case "JOIN":
		c.joinCommand(m)
	case "PART":
		c.partCommand(m)
	case "TOPIC":
		c.topicCommand(m)
	case "WHO":
		c.whoCommand(m)
	case "PRIVMSG", "NOTICE":
		c.privmsgCommand(m)
	case "PING":
		c.pingCommand(m)
	case "PONG":
		c.pongCommand(m)
	case "MOTD":
		c.motdCommand(m)
	case "LUSERS":
		c.lusersCommand(m)
	case "QUIT":
		c.quitCommand(m)
	default:
		c.replyUnknownCommand(m.Command)
	}
}

// NICK <nick>
//
// A session sets its nickname at most once. There are no renames.
func (c *Session) nickCommand(m wire.Message) {
	if c.Nick != "" {
		c.replyAlreadyRegistered()
		return
	}

	nick := strings.TrimSpace(m.Params)
	if nick == "" {
		c.replyNoNicknameGiven()
		return
	}

	if _, exists := c.server.nicks[canonicalizeNick(nick)]; exists {
		c.replyNicknameInUse(nick)
		return
	}

	if !isValidNick(nick) {
		c.replyErroneusNickname(nick)
		return
	}

	c.server.claimNick(c, nick)
}

// USER <username> <mode> <unused> :<realname>
//
// Completes registration and triggers the welcome burst.
func (c *Session) userCommand(m wire.Message) {
	if c.Username != "" {
		c.replyAlreadyRegistered()
		return
	}

	tokens := strings.SplitN(m.Params, " ", 4)
	if len(tokens) < 4 {
		c.replyNeedMoreParams()
		return
	}

	if c.Nick == "" {
		c.replyNoNicknameGiven()
		return
	}

	c.Username = tokens[0]
	c.RealName = strings.TrimPrefix(tokens[3], ":")
	c.Registered = true

	c.server.logger.Msg("Client %s: Registered.", c)

	c.replyWelcome()
	c.replyYourHost()
	c.replyCreated()
	c.replyMyInfo()
	c.replyLuserClient()

	c.motdReplies()
}

// motdReplies sends the MOTD numerics: 375, 372, 376 when a MOTD is
// configured, 422 when it is not.
func (c *Session) motdReplies() {
	if c.server.Config.MOTD != "" {
		c.replyMOTDStart()
		c.replyMOTD()
		c.replyEndOfMOTD()
		return
	}

	c.replyNoMOTD()
}

// JOIN <target>
//
// The # sigil on the target is optional. One channel per command.
func (c *Session) joinCommand(m wire.Message) {
	if m.Params == "" {
		c.replyNeedMoreParams()
		return
	}

	target := strings.SplitN(m.Params, " ", 2)[0]
	target = strings.SplitN(target, ",", 2)[0]

	name := strings.TrimPrefix(target, "#")
	if name == "" {
		c.replyNeedMoreParams()
		return
	}

	channel := c.server.addToChannel(c, name)

	line := wire.Render(c.nickUhost(), "JOIN", "#"+name)
	for _, member := range c.server.channelMembers(channel) {
		member.queue(line)
	}

	if channel.Topic != "" {
		c.replyTopic(name, channel.Topic)
	} else {
		c.replyNoTopic(name)
	}

	nicks := []string{}
	for _, member := range c.server.channelMembers(channel) {
		nicks = append(nicks, member.Nick)
	}
	c.replyNamReply(name, nicks)
	c.replyEndOfNames(name)
}

// PART <#chan{,#chan}*> [:reason]
//
// An unknown channel stops the whole command. Not being on one of the
// channels only skips that channel.
func (c *Session) partCommand(m wire.Message) {
	if m.Params == "" {
		c.replyNeedMoreParams()
		return
	}

	targets := strings.SplitN(m.Params, " ", 2)[0]

	for _, target := range strings.Split(targets, ",") {
		name := strings.TrimPrefix(target, "#")

		if _, exists := c.server.channels[name]; !exists {
			c.replyNoSuchChannel(target)
			return
		}

		if _, joined := c.Channels[name]; !joined {
			c.replyNotOnChannel(target)
			continue
		}

		c.announcePart(name)
		c.server.removeFromChannel(c, name)
	}
}

// TOPIC <#chan> [:<topic>]
//
// Without a topic argument, reports the channel's topic. With one, sets it
// and tells every member.
func (c *Session) topicCommand(m wire.Message) {
	if m.Params == "" {
		c.replyNeedMoreParams()
		return
	}

	parts := strings.SplitN(m.Params, " ", 2)
	target := parts[0]
	name := strings.TrimPrefix(target, "#")

	channel, exists := c.server.channels[name]
	if !exists {
		c.replyNoSuchChannel(target)
		return
	}

	if len(parts) < 2 {
		if channel.Topic != "" {
			c.replyTopic(name, channel.Topic)
		} else {
			c.replyNoTopic(name)
		}
		return
	}

	if _, joined := c.Channels[name]; !joined {
		c.replyNotOnChannel(target)
		return
	}

	channel.Topic = strings.TrimPrefix(parts[1], ":")

	line := wire.Render(c.nickUhost(), "TOPIC", "#"+name+" :"+channel.Topic)
	for _, member := range c.server.channelMembers(channel) {
		member.queue(line)
	}
}

// WHO <#channel>
//
// One 352 per member, then 315. Membership in the channel is not required.
func (c *Session) whoCommand(m wire.Message) {
	if m.Params == "" {
		c.replyNeedMoreParams()
		return
	}

	target := strings.SplitN(m.Params, " ", 2)[0]
	name := strings.TrimPrefix(target, "#")

	channel, exists := c.server.channels[name]
	if !exists {
		c.replyNoSuchChannel(target)
		return
	}

	for _, member := range c.server.channelMembers(channel) {
		c.replyWhoReply(name, member)
	}

	c.replyEndOfWho()
}

// PRIVMSG <target> :<text>
//
// NOTICE takes the same path; m.Command carries the verb to relay.
func (c *Session) privmsgCommand(m wire.Message) {
	if m.Params == "" {
		c.replyNeedMoreParams()
		return
	}

	parts := strings.SplitN(m.Params, " ", 2)
	target := parts[0]

	if len(parts) < 2 {
		c.replyNoTextToSend()
		return
	}
	text := strings.TrimPrefix(parts[1], ":")
	if text == "" {
		c.replyNoTextToSend()
		return
	}

	if target == "" {
		c.replyNoRecipient()
		return
	}

	line := wire.Render(c.nickUhost(), m.Command, target+" :"+text)

	if strings.HasPrefix(target, "#") {
		channel, exists := c.server.channels[strings.TrimPrefix(target, "#")]
		if !exists {
			c.replyNoSuchNick(target)
			return
		}

		self := canonicalizeNick(c.Nick)
		for _, member := range c.server.channelMembers(channel) {
			if canonicalizeNick(member.Nick) == self {
				continue
			}
			member.queue(line)
		}
		return
	}

	member, exists := c.server.nicks[canonicalizeNick(target)]
	if !exists {
		c.replyNoSuchNick(target)
		return
	}
	member.queue(line)
}

// PING <token>
func (c *Session) pingCommand(m wire.Message) {
	if m.Params == "" {
		c.replyNeedMoreParams()
		return
	}

	c.queue(wire.Render(c.server.Config.ServerName, "PONG", m.Params))
}

// PONG
func (c *Session) pongCommand(m wire.Message) {
	c.PingPending = false
}

// MOTD
func (c *Session) motdCommand(m wire.Message) {
	c.motdReplies()
}

// LUSERS
func (c *Session) lusersCommand(m wire.Message) {
	c.replyLuserClient()
}

// QUIT [:<reason>]
func (c *Session) quitCommand(m wire.Message) {
	reason := strings.TrimPrefix(m.Params, ":")
	if reason == "" {
		reason = "Client quit"
	}

	c.announceQuit(reason)
	c.server.detach(c, reason)
}

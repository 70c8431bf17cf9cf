package ludserver

import (
	"fmt"
	"strings"

	"github.com/ludnet/ludserver/internal/wire"
)

// This file holds a builder per reply numeric. Each queues one fully
// rendered line, sourced from the server name. The payload wording is fixed;
// handlers supply only the substituted fields.

// sendNumeric queues a numeric reply to the session.
func (c *Session) sendNumeric(numeric, payload string) {
	c.queue(wire.Render(c.server.Config.ServerName, numeric, payload))
}

// 001 RPL_WELCOME
func (c *Session) replyWelcome() {
	c.sendNumeric("001", fmt.Sprintf("%s :Welcome to the IRC!:%s", c.Nick,
		c.nickUhost()))
}

// 002 RPL_YOURHOST
func (c *Session) replyYourHost() {
	c.sendNumeric("002", fmt.Sprintf("%s :Your host is %s running version %s",
		c.Nick, c.server.Config.ServerName, c.server.Config.Version))
}

// 003 RPL_CREATED
func (c *Session) replyCreated() {
	c.sendNumeric("003", fmt.Sprintf("%s :This server was created sometime.",
		c.Nick))
}

// 004 RPL_MYINFO
func (c *Session) replyMyInfo() {
	c.sendNumeric("004", fmt.Sprintf("%s %s %s o o", c.Nick,
		c.server.Config.ServerName, c.server.Config.Version))
}

// 251 RPL_LUSERCLIENT
func (c *Session) replyLuserClient() {
	c.sendNumeric("251", fmt.Sprintf(
		"%s :There are %d users and 0 services on 1 servers", c.Nick,
		len(c.server.sessions)))
}

// 315 RPL_ENDOFWHO
func (c *Session) replyEndOfWho() {
	c.sendNumeric("315", fmt.Sprintf("%s :End of WHO list", c.Nick))
}

// 331 RPL_NOTOPIC
func (c *Session) replyNoTopic(name string) {
	c.sendNumeric("331", fmt.Sprintf("%s #%s :No topic is set", c.Nick, name))
}

// 332 RPL_TOPIC
func (c *Session) replyTopic(name, topic string) {
	c.sendNumeric("332", fmt.Sprintf("%s #%s :%s", c.Nick, name, topic))
}

// 352 RPL_WHOREPLY
func (c *Session) replyWhoReply(name string, member *Session) {
	c.sendNumeric("352", fmt.Sprintf("%s #%s %s %s %s %s H :0 %s",
		c.Nick, name, member.Username, member.conn.IP.String(),
		c.server.hostname, member.Nick, member.RealName))
}

// 353 RPL_NAMREPLY
func (c *Session) replyNamReply(name string, nicks []string) {
	c.sendNumeric("353", fmt.Sprintf("%s = #%s :%s", c.Nick, name,
		strings.Join(nicks, " ")))
}

// 366 RPL_ENDOFNAMES
func (c *Session) replyEndOfNames(name string) {
	c.sendNumeric("366", fmt.Sprintf("%s #%s :End of NAMES list", c.Nick, name))
}

// 372 RPL_MOTD
func (c *Session) replyMOTD() {
	c.sendNumeric("372", fmt.Sprintf("%s :- %s", c.Nick, c.server.Config.MOTD))
}

// 375 RPL_MOTDSTART
func (c *Session) replyMOTDStart() {
	c.sendNumeric("375", fmt.Sprintf("%s :- %s Message of the day -", c.Nick,
		c.server.Config.ServerName))
}

// 376 RPL_ENDOFMOTD
func (c *Session) replyEndOfMOTD() {
	c.sendNumeric("376", fmt.Sprintf("%s :End of MOTD command", c.Nick))
}

// 401 ERR_NOSUCHNICK
func (c *Session) replyNoSuchNick(target string) {
	c.sendNumeric("401", fmt.Sprintf("%s :No such nick/channel", target))
}

// 403 ERR_NOSUCHCHANNEL
func (c *Session) replyNoSuchChannel(target string) {
	c.sendNumeric("403", fmt.Sprintf("%s :No such channel", target))
}

// 411 ERR_NORECIPIENT
func (c *Session) replyNoRecipient() {
	c.sendNumeric("411", ":No recipient given")
}

// 412 ERR_NOTEXTTOSEND
func (c *Session) replyNoTextToSend() {
	c.sendNumeric("412", ":No text to send")
}

// 421 ERR_UNKNOWNCOMMAND
func (c *Session) replyUnknownCommand(command string) {
	c.sendNumeric("421", fmt.Sprintf("%s :Unknown command", command))
}

// 422 ERR_NOMOTD
func (c *Session) replyNoMOTD() {
	c.sendNumeric("422", fmt.Sprintf("%s :MOTD file is missing", c.Nick))
}

// 431 ERR_NONICKNAMEGIVEN
func (c *Session) replyNoNicknameGiven() {
	c.sendNumeric("431", ":No nickname given")
}

// 432 ERR_ERRONEUSNICKNAME
//
// No space before the text.
func (c *Session) replyErroneusNickname(nick string) {
	c.sendNumeric("432", fmt.Sprintf("%s:Erroneus nickname", nick))
}

// 433 ERR_NICKNAMEINUSE
//
// No space before the text.
func (c *Session) replyNicknameInUse(nick string) {
	c.sendNumeric("433", fmt.Sprintf("%s:Nickname is already in use", nick))
}

// 442 ERR_NOTONCHANNEL
func (c *Session) replyNotOnChannel(target string) {
	c.sendNumeric("442", fmt.Sprintf("%s :You're not on that channel", target))
}

// 451 ERR_NOTREGISTERED
func (c *Session) replyNotRegistered() {
	c.sendNumeric("451", fmt.Sprintf("%s :Not registered", c.nickOrStar()))
}

// 461 ERR_NEEDMOREPARAMS
func (c *Session) replyNeedMoreParams() {
	c.sendNumeric("461", ":Not enough parameters")
}

// 462 ERR_ALREADYREGISTRED
func (c *Session) replyAlreadyRegistered() {
	c.sendNumeric("462", ":Unauthorized command (already registered)")
}

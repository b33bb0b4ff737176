// Package chat talks to Discord on behalf of the scheduler.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"rsvpbot/src-server/model"

	"github.com/bwmarrin/discordgo"
)

// Discord reactions are paged, 100 users per request at most.
const reactionPageSize = 100

type Discord struct {
	session *discordgo.Session
	// receives the start time of every message send
	OnSend func(since time.Time)
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) sent(start time.Time) {
	if d.OnSend != nil {
		d.OnSend(start)
	}
}

func (d *Discord) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	startTimer := time.Now()
	m, err := d.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("(*Discord).SendMessage: %w", err)
	}
	d.sent(startTimer)
	return m.ID, nil
}

func (d *Discord) EditMessage(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error {
	startTimer := time.Now()
	if _, err := d.session.ChannelMessageEditEmbed(channelID, messageID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("(*Discord).EditMessage: %w", err)
	}
	d.sent(startTimer)
	return nil
}

func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("(*Discord).DeleteMessage: %w", err)
	}
	return nil
}

func (d *Discord) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := d.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("(*Discord).AddReaction: %w", err)
	}
	return nil
}

// FetchReactors lists every user who reacted with emoji, bots included.
func (d *Discord) FetchReactors(ctx context.Context, channelID, messageID, emoji string) ([]model.Reactor, error) {
	reactors := make([]model.Reactor, 0)
	after := ""
	for {
		users, err := d.session.MessageReactions(channelID, messageID, emoji, reactionPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("(*Discord).FetchReactors: %w", err)
		}
		for _, user := range users {
			reactors = append(reactors, model.Reactor{
				ID:   user.ID,
				Name: userName(user),
				Bot:  user.Bot,
			})
		}
		if len(users) < reactionPageSize {
			return reactors, nil
		}
		after = users[len(users)-1].ID
	}
}

func (d *Discord) RemoveReaction(ctx context.Context, channelID, messageID, emoji, userID string) error {
	if err := d.session.MessageReactionRemove(channelID, messageID, emoji, userID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("(*Discord).RemoveReaction: %w", err)
	}
	return nil
}

// FetchChannel prefers the gateway state cache over a REST call.
func (d *Discord) FetchChannel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if d.session.State != nil {
		if channel, err := d.session.State.Channel(channelID); err == nil {
			return channel, nil
		}
	}
	channel, err := d.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("(*Discord).FetchChannel: %w", err)
	}
	return channel, nil
}

// #region - mentions

var mentionRe = regexp.MustCompile(`<(@!?|@&|#)(\d+)>`)

type mentionKind int

const (
	mentionUser mentionKind = iota
	mentionRole
	mentionChannel
)

// replaceMentions swaps raw mention tokens for readable names. Tokens lookup
// can't resolve are kept.
func replaceMentions(text string, lookup func(kind mentionKind, id string) (string, bool)) string {
	return mentionRe.ReplaceAllStringFunc(text, func(token string) string {
		parts := mentionRe.FindStringSubmatch(token)
		var (
			kind   mentionKind
			prefix string
		)
		switch parts[1] {
		case "@", "@!":
			kind, prefix = mentionUser, "@"
		case "@&":
			kind, prefix = mentionRole, "@"
		default:
			kind, prefix = mentionChannel, "#"
		}
		name, ok := lookup(kind, parts[2])
		if !ok || name == "" {
			return token
		}
		return prefix + name
	})
}

// CleanContent resolves user, role and channel mentions in text to names, as
// seen from scopeID (a guild, or a DM channel).
func (d *Discord) CleanContent(ctx context.Context, scopeID, text string) string {
	if !mentionRe.MatchString(text) {
		return text
	}
	return replaceMentions(text, func(kind mentionKind, id string) (string, bool) {
		switch kind {
		case mentionUser:
			return d.memberName(ctx, scopeID, id)
		case mentionRole:
			return d.roleName(ctx, scopeID, id)
		default:
			channel, err := d.FetchChannel(ctx, id)
			if err != nil {
				slog.Debug("(*Discord).CleanContent: can't resolve channel", "channel", id, "error", err)
				return "", false
			}
			return channel.Name, true
		}
	})
}

func (d *Discord) memberName(ctx context.Context, guildID, userID string) (string, bool) {
	if d.session.State != nil {
		if member, err := d.session.State.Member(guildID, userID); err == nil {
			return memberName(member), true
		}
	}
	if member, err := d.session.GuildMember(guildID, userID, discordgo.WithContext(ctx)); err == nil {
		return memberName(member), true
	}
	// direct messages have no members
	user, err := d.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		slog.Debug("(*Discord).CleanContent: can't resolve user", "user", userID, "error", err)
		return "", false
	}
	return userName(user), true
}

func (d *Discord) roleName(ctx context.Context, guildID, roleID string) (string, bool) {
	if d.session.State != nil {
		if role, err := d.session.State.Role(guildID, roleID); err == nil {
			return role.Name, true
		}
	}
	roles, err := d.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		slog.Debug("(*Discord).CleanContent: can't resolve role", "role", roleID, "error", err)
		return "", false
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role.Name, true
		}
	}
	return "", false
}

func memberName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User == nil {
		return ""
	}
	return userName(member.User)
}

func userName(user *discordgo.User) string {
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

// #endregion

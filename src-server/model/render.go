package model

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const embedColor = 3447003

// ToDiscordEmbed renders the event message body: title, time of event and
// the three attendance lists.
func (e *Event) ToDiscordEmbed(ledger Ledger) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: e.Name(),
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Time of Event",
				Value: fmt.Sprintf("<t:%d:F> (<t:%d:R>)", e.DueAtUnixUTC, e.DueAtUnixUTC),
			},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, category := range Categories {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s (%d)", category.Label(), ledger.Count(category)),
			Value:  ledger.Names(category),
			Inline: true,
		})
	}
	switch e.ID {
	case 0:
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "pending"}
	default:
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Ref()}
	}
	return embed
}

// ToListEmbed renders a list of events, one field each.
func ToListEmbed(events []Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Upcoming events",
		Color: embedColor,
	}
	if len(events) == 0 {
		embed.Description = "No events scheduled."
		return embed
	}
	for _, e := range events {
		// discord caps embeds at 25 fields
		if len(embed.Fields) == 25 {
			embed.Footer = &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("and %d more", len(events)-25),
			}
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s %s", e.Ref(), e.Name()),
			Value: fmt.Sprintf("<t:%d:F> · [jump](%s)", e.DueAtUnixUTC, e.URL()),
		})
	}
	return embed
}

// NotificationMessage is the reminder posted when the event fires. Available
// attendees are pinged.
func (e *Event) NotificationMessage(ledger Ledger) *discordgo.MessageSend {
	content := fmt.Sprintf("⏰ %s", e.Name())
	if mentions := ledger.Mentions(CategoryAvailable); mentions != "" {
		content = fmt.Sprintf("%s: %s", mentions, e.Name())
	}
	return &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
}

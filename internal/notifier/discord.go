package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// discordSender is the part of *discordgo.Session used for delivery
type discordSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts messages as embeds through the Discord REST API
type DiscordNotifier struct {
	session discordSender
	now     func() time.Time
}

// NewDiscordNotifier creates a DiscordNotifier authenticated with the bot token
func NewDiscordNotifier(token string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return newDiscordNotifier(session), nil
}

func newDiscordNotifier(session discordSender) *DiscordNotifier {
	return &DiscordNotifier{session: session, now: time.Now}
}

// Deliver sends msg to the channel as a single embed
func (n *DiscordNotifier) Deliver(ctx context.Context, channelID string, msg Message) error {
	_, err := n.session.ChannelMessageSendComplex(channelID, n.render(msg), discordgo.WithContext(ctx))
	if err != nil {
		return failed(fmt.Errorf("discord channel %s: %w", channelID, err))
	}
	return nil
}

func (n *DiscordNotifier) render(msg Message) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
		Timestamp:   n.now().Format(time.RFC3339),
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}

	send := &discordgo.MessageSend{
		Content: msg.Content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	}
	if len(msg.Mentions) > 0 || msg.Broadcast {
		allowed := &discordgo.MessageAllowedMentions{Users: msg.Mentions}
		if msg.Broadcast {
			allowed.Parse = []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}
		}
		send.AllowedMentions = allowed
	}
	return send
}

package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/platform"
)

// Responder answers interactions. *discordgo.Session satisfies it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// interaction carries one inbound interaction through a handler and tracks
// whether it has been acknowledged.
type interaction struct {
	raw       *discordgo.Interaction
	actor     domain.Member
	responder Responder
	acked     bool
}

func (it *interaction) respond(resp *discordgo.InteractionResponse) error {
	if err := it.responder.InteractionRespond(it.raw, resp); err != nil {
		return err
	}
	it.acked = true
	return nil
}

func (it *interaction) reply(content string, ephemeral bool) error {
	return it.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags(ephemeral)},
	})
}

func (it *interaction) replyEmbed(embed platform.Embed, ephemeral bool) error {
	return it.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{platform.ToDiscordEmbed(embed)},
			Flags:  flags(ephemeral),
		},
	})
}

// deferReply shows a loading state; the answer follows with followup.
func (it *interaction) deferReply(ephemeral bool) error {
	return it.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	})
}

// deferUpdate acknowledges a component press without a visible reply.
func (it *interaction) deferUpdate() error {
	return it.respond(&discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
}

func (it *interaction) followup(content string, ephemeral bool) error {
	_, err := it.responder.FollowupMessageCreate(it.raw, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   flags(ephemeral),
	})
	return err
}

// send answers directly, or as a followup once the interaction was acknowledged.
func (it *interaction) send(content string, ephemeral bool) error {
	if it.acked {
		return it.followup(content, ephemeral)
	}
	return it.reply(content, ephemeral)
}

// editComponents replaces the components of the message the interaction
// was triggered from.
func (it *interaction) editComponents(buttons []platform.Button) error {
	components := platform.ToDiscordComponents(buttons, nil)
	_, err := it.responder.InteractionResponseEdit(it.raw, &discordgo.WebhookEdit{Components: &components})
	return err
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

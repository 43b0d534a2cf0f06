package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Slash command names.
const (
	CommandNuke       = "nuke"
	CommandKick       = "kick"
	CommandBan        = "ban"
	CommandClear      = "clear"
	CommandAddRole    = "addrole"
	CommandRemoveRole = "removerole"
)

const (
	optionUser   = "user"
	optionReason = "reason"
	optionAmount = "amount"
	optionRole   = "role"
)

// CommandRegistrar overwrites the slash commands of a guild.
// *discordgo.Session satisfies it.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Commands returns the slash command schema served by the router.
func Commands() []*discordgo.ApplicationCommand {
	userOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        optionUser,
		Description: "Target member",
		Required:    true,
	}
	reasonOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optionReason,
		Description: "Reason recorded in the audit log",
	}
	roleOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        optionRole,
		Description: "Role to edit",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{Name: CommandNuke, Description: "💣 Delete this channel and recreate it empty"},
		{
			Name:        CommandKick,
			Description: "👢 Kick a member",
			Options:     []*discordgo.ApplicationCommandOption{userOption, reasonOption},
		},
		{
			Name:        CommandBan,
			Description: "🔨 Ban a member",
			Options:     []*discordgo.ApplicationCommandOption{userOption, reasonOption},
		},
		{
			Name:        CommandClear,
			Description: "🧹 Delete recent messages in this channel",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optionAmount,
				Description: "How many messages to delete (max 100)",
				Required:    true,
			}},
		},
		{
			Name:        CommandAddRole,
			Description: "➕ Give a role to a member",
			Options:     []*discordgo.ApplicationCommandOption{userOption, roleOption},
		},
		{
			Name:        CommandRemoveRole,
			Description: "➖ Take a role from a member",
			Options:     []*discordgo.ApplicationCommandOption{userOption, roleOption},
		},
	}
}

// SyncCommands replaces the guild's slash commands with Commands and returns
// how many were registered.
func SyncCommands(ctx context.Context, registrar CommandRegistrar, appID, guildID string) (int, error) {
	if appID == "" {
		return 0, fmt.Errorf("sync commands: application id is empty")
	}
	created, err := registrar.ApplicationCommandBulkOverwrite(appID, guildID, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("sync commands: %w", err)
	}
	return len(created), nil
}

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(data discordgo.ApplicationCommandInteractionData) commandOptions {
	out := make(commandOptions, len(data.Options))
	for _, opt := range data.Options {
		out[opt.Name] = opt
	}
	return out
}

func (o commandOptions) userID(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionUser {
		return opt.UserValue(nil).ID
	}
	return ""
}

func (o commandOptions) roleID(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionRole {
		return opt.RoleValue(nil, "").ID
	}
	return ""
}

func (o commandOptions) str(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

func (o commandOptions) integer(name string) int {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionInteger {
		return int(opt.IntValue())
	}
	return 0
}

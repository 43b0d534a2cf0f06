package main

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	discordapi "github.com/guildops/ticketbot/internal/api/discord"
	"github.com/guildops/ticketbot/internal/config"
)

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-commands",
		Short: "Overwrite the guild's slash commands and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Discord.Validate(); err != nil {
				return fmt.Errorf("invalid discord config: %w", err)
			}
			session, err := discordgo.New("Bot " + cfg.Discord.Token)
			if err != nil {
				return fmt.Errorf("create discord session: %w", err)
			}
			me, err := session.User("@me", discordgo.WithContext(cmd.Context()))
			if err != nil {
				return fmt.Errorf("resolve application: %w", err)
			}
			n, err := discordapi.SyncCommands(cmd.Context(), session, me.ID, cfg.Discord.GuildID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d commands to guild %s\n", n, cfg.Discord.GuildID)
			return nil
		},
	}
}

package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "ticketbot",
		Short: "Support ticket and moderation bot for a single Discord guild",
		Long: `ticketbot serves a support ticket panel, manages private ticket channels
from creation to claim to closure with an HTML transcript, and offers a small
set of moderation slash commands.

Configuration is read from the environment (and an optional .env file).`,
		Version:       version,
		SilenceUsage:  true,
		// Running without a subcommand starts the bot.
		RunE: runBot,
	}
	root.AddCommand(newRunCommand(), newSyncCommand(), newTokenCommand())
	return root
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve tickets until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runBot,
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_GUILD_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "!", cfg.Discord.Prefix)
	assert.Equal(t, "Tickets", cfg.Tickets.CategoryName)
	assert.Equal(t, 2*time.Second, cfg.Tickets.CloseDelay())
	assert.Equal(t, 30*time.Second, cfg.Presence.Interval())
	assert.True(t, cfg.Discord.SyncCommands)
	assert.Equal(t, "127.0.0.1:8081", cfg.Ops.Addr())
}

func TestLoadIdentifiers(t *testing.T) {
	t.Setenv("DISCORD_GUILD_ID", "123456789012345678")
	t.Setenv("DISCORD_OWNER_ID", "0")
	t.Setenv("DISCORD_STAFF_ROLE_ID", "not-a-snowflake")
	t.Setenv("DISCORD_LOG_OPEN_CHANNEL_ID", " 42 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123456789012345678", cfg.Discord.GuildID)
	assert.Empty(t, cfg.Discord.OwnerID, "zero id means unset")
	assert.Empty(t, cfg.Discord.StaffRoleID)
	assert.Equal(t, "42", cfg.Discord.LogOpenChannelID)
}

func TestLoadRejectsWhitespacePrefix(t *testing.T) {
	t.Setenv("DISCORD_PREFIX", "! ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_PREFIX")
}

func TestDiscordValidate(t *testing.T) {
	t.Run("missing token and guild", func(t *testing.T) {
		err := DiscordConfig{}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DISCORD_TOKEN")
		assert.Contains(t, err.Error(), "DISCORD_GUILD_ID")
	})

	t.Run("complete", func(t *testing.T) {
		err := DiscordConfig{Token: "abc", GuildID: "1"}.Validate()
		assert.NoError(t, err)
	})
}

func TestDurationsClampNonPositive(t *testing.T) {
	tc := TicketConfig{HistoryTimeoutSeconds: -1, DeleteTimeoutSeconds: 0, CloseDelaySeconds: 3}
	assert.Zero(t, tc.HistoryTimeout())
	assert.Zero(t, tc.DeleteTimeout())
	assert.Equal(t, 3*time.Second, tc.CloseDelay())
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	discordapi "github.com/guildops/ticketbot/internal/api/discord"
	"github.com/guildops/ticketbot/internal/api/dto"
	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/config"
	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/observability"
	"github.com/guildops/ticketbot/internal/platform/platformtest"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand("1.2.3")

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "sync-commands", "token"})
	assert.Equal(t, "1.2.3", root.Version)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("OPS_JWT_SECRET", "test-secret")
	t.Setenv("APP_NAME", "ticketbot")

	var out bytes.Buffer
	root := newRootCommand("test")
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--operator", "alice", "--scope", "tickets:read"})
	require.NoError(t, root.Execute())

	var resp dto.TokenResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Operator)

	claims, err := auth.NewTokenManager("test-secret", 60, "ticketbot").ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, []auth.Scope{auth.ScopeTicketsRead}, claims.Scopes)
}

func TestTokenCommandRejectsUnknownScope(t *testing.T) {
	t.Setenv("OPS_JWT_SECRET", "test-secret")

	root := newRootCommand("test")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--operator", "alice", "--scope", "admin"})
	assert.Error(t, root.Execute())
}

func TestBuildServicesAreWired(t *testing.T) {
	cfg := &config.Config{
		Discord: config.DiscordConfig{GuildID: "guild", OwnerID: "owner", StaffRoleID: "staff-role", Prefix: "!"},
		Tickets: config.TicketConfig{CategoryName: "Tickets", Brand: "KryptosMC"},
	}
	gw := platformtest.New()
	gw.AddMember(domain.Member{ID: "alice", Username: "Alice"})
	metrics := observability.NewMetrics()

	svc := buildServices(cfg, gw, metrics, nil)
	svc.notifications.RegisterHandlers()

	ticket, err := svc.tickets.Open(context.Background(), domain.Member{ID: "alice", Username: "Alice"}, domain.CategoryStore)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, ticket.State)

	rc := svc.routeConfig(cfg, gw, nil, nil, nil, metrics, nil)
	assert.Equal(t, "guild", rc.GuildID)
	assert.NotNil(t, discordapi.NewRouter(rc))
}

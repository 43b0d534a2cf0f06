package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/observability"
	"github.com/guildops/ticketbot/internal/platform"
	"github.com/guildops/ticketbot/internal/platform/platformtest"
	apperrors "github.com/guildops/ticketbot/pkg/util"
)

var (
	guildOwner = domain.Member{ID: "owner", Username: "Boss"}
	admin      = domain.Member{ID: "admin", Username: "Ada", Administrator: true, TopRolePosition: 5}
	moderator  = domain.Member{ID: "staff-1", Username: "Sam", RoleIDs: []string{"staff-role"}, TopRolePosition: 4}
	member     = domain.Member{ID: "member", Username: "Max", TopRolePosition: 1}
	senior     = domain.Member{ID: "senior", Username: "Sid", TopRolePosition: 10}
)

func newModeration(t *testing.T) (*ModerationService, *platformtest.Gateway) {
	t.Helper()
	gw := platformtest.New()
	for _, m := range []domain.Member{guildOwner, admin, moderator, member, senior} {
		gw.AddMember(m)
	}
	gw.AddGuildRole(domain.Role{ID: "vip", Name: "VIP", Position: 2})
	gw.AddGuildRole(domain.Role{ID: "head", Name: "Head", Position: 20})

	svc := NewModerationService(ModerationDependencies{
		Platform: gw,
		Policy:   auth.NewPolicy("owner", "staff-role"),
		Metrics:  observability.NewMetrics(),
	})
	return svc, gw
}

func TestPurgeBounds(t *testing.T) {
	svc, gw := newModeration(t)

	t.Run("over the limit deletes nothing", func(t *testing.T) {
		n, err := svc.Purge(context.Background(), admin, "chan", 150)
		assertCode(t, err, apperrors.CodeValidation)
		assert.Zero(t, n)
		assert.Empty(t, gw.DeleteRequests)
	})

	t.Run("zero deletes nothing", func(t *testing.T) {
		_, err := svc.Purge(context.Background(), admin, "chan", 0)
		assertCode(t, err, apperrors.CodeValidation)
		assert.Empty(t, gw.DeleteRequests)
	})

	t.Run("within the limit", func(t *testing.T) {
		gw.SeedMessages("chan", 80)
		n, err := svc.Purge(context.Background(), admin, "chan", 50)
		require.NoError(t, err)
		assert.Equal(t, 50, n)
		assert.Equal(t, []int{50}, gw.DeleteRequests)
	})

	t.Run("fewer messages than requested", func(t *testing.T) {
		gw.SeedMessages("quiet", 7)
		n, err := svc.Purge(context.Background(), admin, "quiet", 50)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("exact limit", func(t *testing.T) {
		gw.SeedMessages("busy", 250)
		n, err := svc.Purge(context.Background(), admin, "busy", MaxPurge)
		require.NoError(t, err)
		assert.Equal(t, MaxPurge, n)
	})
}

func TestModerationRequiresAdministrativeCapability(t *testing.T) {
	svc, gw := newModeration(t)

	_, err := svc.Kick(context.Background(), moderator, member.ID, "spam")
	assertCode(t, err, apperrors.CodeUnauthorized)

	_, err = svc.Purge(context.Background(), moderator, "chan", 5)
	assertCode(t, err, apperrors.CodeUnauthorized)

	_, err = svc.Nuke(context.Background(), moderator, "chan")
	assertCode(t, err, apperrors.CodeUnauthorized)

	assert.Zero(t, gw.SanctionsCount())
	assert.Empty(t, gw.DeleteRequests)
}

func TestKickHierarchy(t *testing.T) {
	svc, gw := newModeration(t)

	_, err := svc.Kick(context.Background(), admin, senior.ID, "")
	assertCode(t, err, apperrors.CodeInsufficientHierarchy)
	assert.Zero(t, gw.SanctionsCount())

	target, err := svc.Kick(context.Background(), admin, member.ID, "")
	require.NoError(t, err)
	assert.Equal(t, member.ID, target.ID)
	assert.Equal(t, []platformtest.Sanction{{Action: platformtest.OpKick, UserID: member.ID, Reason: DefaultReason}}, gw.Sanctions)
}

func TestOwnerBypassesHierarchy(t *testing.T) {
	svc, gw := newModeration(t)

	_, err := svc.Ban(context.Background(), guildOwner, senior.ID, "raid")
	require.NoError(t, err)
	require.Len(t, gw.Sanctions, 1)
	assert.Equal(t, "raid", gw.Sanctions[0].Reason)
}

func TestKickUnknownMember(t *testing.T) {
	svc, _ := newModeration(t)

	_, err := svc.Kick(context.Background(), admin, "ghost", "")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestKickPlatformFailure(t *testing.T) {
	svc, gw := newModeration(t)
	gw.Fail(platformtest.OpKick, errBoom)

	_, err := svc.Kick(context.Background(), admin, member.ID, "")
	assertCode(t, err, apperrors.CodeCapabilityFailure)
}

func TestRoleEdits(t *testing.T) {
	svc, gw := newModeration(t)

	t.Run("role above actor", func(t *testing.T) {
		_, _, err := svc.AddRole(context.Background(), admin, member.ID, "head")
		assertCode(t, err, apperrors.CodeInsufficientHierarchy)
	})

	t.Run("target above actor", func(t *testing.T) {
		_, _, err := svc.AddRole(context.Background(), admin, senior.ID, "vip")
		assertCode(t, err, apperrors.CodeInsufficientHierarchy)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, _, err := svc.RemoveRole(context.Background(), admin, member.ID, "nope")
		assertCode(t, err, apperrors.CodeNotFound)
	})

	assert.Zero(t, gw.SanctionsCount())

	_, role, err := svc.AddRole(context.Background(), admin, member.ID, "vip")
	require.NoError(t, err)
	assert.Equal(t, "VIP", role.Name)

	_, _, err = svc.RemoveRole(context.Background(), admin, member.ID, "vip")
	require.NoError(t, err)

	assert.Equal(t, []platformtest.Sanction{
		{Action: platformtest.OpAddRole, UserID: member.ID, RoleID: "vip"},
		{Action: platformtest.OpRemoveRole, UserID: member.ID, RoleID: "vip"},
	}, gw.Sanctions)
}

func TestNuke(t *testing.T) {
	svc, gw := newModeration(t)
	original, err := gw.CreateChannel(context.Background(), platform.ChannelSpec{Name: "general", Topic: "chat"})
	require.NoError(t, err)

	clone, err := svc.Nuke(context.Background(), admin, original.ID)
	require.NoError(t, err)

	assert.NotEqual(t, original.ID, clone.ID)
	assert.Equal(t, "general", clone.Name)
	assert.True(t, gw.Deleted(original.ID))
	sent := gw.SentTo(clone.ID)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Message.Embed.Description, admin.Mention())
}

func TestNukeCloneFailureKeepsOriginal(t *testing.T) {
	svc, gw := newModeration(t)
	gw.Fail(platformtest.OpCloneChannel, errBoom)

	_, err := svc.Nuke(context.Background(), admin, "chan")

	assertCode(t, err, apperrors.CodeCapabilityFailure)
	assert.False(t, gw.Deleted("chan"))
}

package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/guildops/ticketbot/internal/domain"
)

// Policy decides what a guild member may do. OwnerID is the privileged owner,
// exempt from staff-role and hierarchy checks.
type Policy struct {
	OwnerID     string
	StaffRoleID string
}

// NewPolicy builds a policy from the configured identities.
func NewPolicy(ownerID, staffRoleID string) Policy {
	return Policy{OwnerID: ownerID, StaffRoleID: staffRoleID}
}

// IsOwner reports whether m is the privileged owner.
func (p Policy) IsOwner(m domain.Member) bool {
	return p.OwnerID != "" && m.ID == p.OwnerID
}

// CanManageTickets gates claim and close.
func (p Policy) CanManageTickets(m domain.Member) bool {
	return p.IsOwner(m) || m.Administrator || m.HasRole(p.StaffRoleID)
}

// CanModerate gates moderation commands, nuke and the panel. The staff role alone
// is not enough.
func (p Policy) CanModerate(m domain.Member) bool {
	return p.IsOwner(m) || m.Administrator
}

// Outranks reports whether actor may act on target.
func (p Policy) Outranks(actor, target domain.Member) bool {
	if p.IsOwner(actor) {
		return true
	}
	if p.IsOwner(target) {
		return false
	}
	return actor.TopRolePosition > target.TopRolePosition
}

// CanAssignRole reports whether actor sits above role in the hierarchy.
func (p Policy) CanAssignRole(actor domain.Member, role domain.Role) bool {
	return p.IsOwner(actor) || actor.TopRolePosition > role.Position
}

// RequireScope ensures the ops principal carries every listed scope.
func RequireScope(scopes ...Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		for _, scope := range scopes {
			if !principal.HasScope(scope) {
				return fiber.NewError(http.StatusForbidden, "insufficient scope")
			}
		}
		return c.Next()
	}
}

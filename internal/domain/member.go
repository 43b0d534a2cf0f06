package domain

import "fmt"

// Member is a guild member as seen by authorization and display code.
type Member struct {
	ID              string
	Username        string
	DisplayName     string
	RoleIDs         []string
	TopRolePosition int
	Administrator   bool
	Bot             bool
}

// HasRole reports whether the member holds roleID.
func (m Member) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Name returns the best human readable name.
func (m Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	if m.Username != "" {
		return m.Username
	}
	return m.ID
}

// Mention renders a user mention.
func (m Member) Mention() string {
	return UserMention(m.ID)
}

// Label renders "name (id)" for audit records.
func (m Member) Label() string {
	return fmt.Sprintf("%s (%s)", m.Name(), m.ID)
}

// Role is a guild role with its hierarchy position.
type Role struct {
	ID       string
	Name     string
	Position int
}

// UserMention renders a mention for a user id.
func UserMention(id string) string {
	return "<@" + id + ">"
}

// RoleMention renders a mention for a role id.
func RoleMention(id string) string {
	return "<@&" + id + ">"
}

// ChannelMention renders a mention for a channel id.
func ChannelMention(id string) string {
	return "<#" + id + ">"
}

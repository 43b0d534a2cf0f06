package platform

import (
	"io"
	"time"
)

// Custom ids of the interactive controls the bot renders.
const (
	ControlCategorySelect = "ticket_menu_select"
	ControlClaimTicket    = "ticket_claim"
	ControlCloseTicket    = "ticket_close"
)

// SubjectType distinguishes role overwrites from member overwrites.
type SubjectType string

const (
	SubjectRole   SubjectType = "role"
	SubjectMember SubjectType = "member"
)

// AccessGrant describes one permission overwrite on a channel.
// Read=false hides the channel from the subject.
type AccessGrant struct {
	SubjectID   string
	SubjectType SubjectType
	Read        bool
	Write       bool
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	Name       string
	Topic      string
	ParentName string
	Access     []AccessGrant
}

// Channel is a created or fetched channel.
type Channel struct {
	ID       string
	Name     string
	ParentID string
	Position int
}

// MessageRef locates a message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Color values used by embeds.
const (
	ColorGreen  = 0x57F287
	ColorGold   = 0xF1C40F
	ColorRed    = 0xED4245
	ColorOrange = 0xE67E22
	ColorDark   = 0x2B2D31
)

// EmbedField is one name/value row of an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card.
type Embed struct {
	Title         string
	Description   string
	Color         int
	Fields        []EmbedField
	Footer        string
	FooterIconURL string
	Timestamp     time.Time
	ThumbnailURL  string
	ImageURL      string
}

// ButtonStyle selects a button's color.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is a clickable control.
type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
	Disabled bool
}

// MenuOption is one entry of a select menu.
type MenuOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// SelectMenu is a single-choice dropdown.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []MenuOption
}

// Attachment is a file uploaded with a message.
type Attachment struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// OutgoingMessage is the content of a sent or edited message.
type OutgoingMessage struct {
	Content    string
	Embed      *Embed
	Buttons    []Button
	Menu       *SelectMenu
	Attachment *Attachment
}

// Message is a fetched message.
type Message struct {
	Ref     MessageRef
	Content string
	Embeds  []Embed
}

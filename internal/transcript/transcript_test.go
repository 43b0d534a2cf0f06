package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticketbot/internal/domain"
)

func TestBuildSkipsEmptyMessagesAndKeepsOrder(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := []domain.HistoryMessage{
		{ID: "1", AuthorName: "Alice", Content: "hi", CreatedAt: base},
		{ID: "2", AuthorName: "Bob", Content: "", CreatedAt: base.Add(time.Second)},
		{ID: "3", AuthorName: "Alice", Content: "bye", CreatedAt: base.Add(2 * time.Second)},
	}

	out, err := Build("general-alice", base, history)
	require.NoError(t, err)
	doc := string(out)

	assert.Equal(t, 2, strings.Count(doc, `<div class="msg">`))
	assert.NotContains(t, doc, "Bob")
	hi := strings.Index(doc, "hi</p>")
	bye := strings.Index(doc, "bye</p>")
	require.True(t, hi > 0 && bye > 0)
	assert.Less(t, hi, bye)
	assert.Contains(t, doc, "Transcript: general-alice")
}

func TestBuildSanitizesContent(t *testing.T) {
	history := []domain.HistoryMessage{
		{AuthorName: "<b>mallory</b>", Content: "**bold** <script>alert(1)</script>", CreatedAt: time.Now()},
	}

	out, err := Build("bug-mallory", time.Now(), history)
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, "<strong>bold</strong>")
	assert.NotContains(t, doc, "<script>")
	assert.Contains(t, doc, "&lt;b&gt;mallory&lt;/b&gt;", "author names are escaped")
}

func TestBuildKeepsWhitespaceOnlyMessages(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := []domain.HistoryMessage{
		{ID: "1", AuthorName: "Alice", Content: "hi", CreatedAt: base},
		{ID: "2", AuthorName: "Bob", Content: "   ", CreatedAt: base.Add(time.Second)},
		{ID: "3", AuthorName: "Cleo", Content: "", CreatedAt: base.Add(2 * time.Second)},
	}

	out, err := Build("general-alice", base, history)
	require.NoError(t, err)
	doc := string(out)

	assert.Equal(t, 2, strings.Count(doc, `<div class="msg">`))
	assert.Contains(t, doc, "Bob")
	assert.NotContains(t, doc, "Cleo")
}

func TestBuildEmptyHistory(t *testing.T) {
	out, err := Build("store-x", time.Now(), nil)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `<div class="msg">`)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "transcript-bug-bob.html", FileName("bug-bob"))
}

// Package transcript renders a ticket channel's history as a standalone HTML page.
package transcript

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/guildops/ticketbot/internal/domain"
)

// ContentType is the MIME type of a built transcript.
const ContentType = "text/html; charset=utf-8"

const page = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Transcript {{ channel }}</title>
<style>
body { font-family: sans-serif; background: #36393f; color: #dcddde; padding: 20px; }
.msg { margin-bottom: 12px; border-bottom: 1px solid #444; padding-bottom: 6px; }
.author { font-weight: bold; color: #fff; }
.time { color: #72767d; font-size: 0.8em; margin-left: 6px; }
.content p { margin: 4px 0; }
</style>
</head>
<body>
<h2>Transcript: {{ channel }}</h2>
<p class="generated">Generated {{ generated }}</p>
{% for m in messages %}<div class="msg"><span class="author">{{ m.Author }}</span><span class="time">{{ m.Time }}</span><div class="content">{{ m.HTML|safe }}</div></div>
{% endfor %}</body>
</html>
`

type entry struct {
	Author string
	Time   string
	HTML   string
}

var (
	tplOnce sync.Once
	tpl     *pongo2.Template
	tplErr  error

	mdOnce   sync.Once
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
)

func template() (*pongo2.Template, error) {
	tplOnce.Do(func() {
		tpl, tplErr = pongo2.FromString(page)
	})
	return tpl, tplErr
}

func renderer() (goldmark.Markdown, *bluemonday.Policy) {
	mdOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
		policy = bluemonday.UGCPolicy()
	})
	return markdown, policy
}

// Build renders history, oldest first, into an HTML document. Messages with
// empty content are skipped.
func Build(channelName string, generatedAt time.Time, history []domain.HistoryMessage) ([]byte, error) {
	t, err := template()
	if err != nil {
		return nil, fmt.Errorf("compile transcript template: %w", err)
	}

	entries := make([]entry, 0, len(history))
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		html, err := renderContent(m.Content)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{
			Author: m.AuthorName,
			Time:   m.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			HTML:   html,
		})
	}

	out, err := t.ExecuteBytes(pongo2.Context{
		"channel":   channelName,
		"generated": generatedAt.UTC().Format(time.RFC1123),
		"messages":  entries,
	})
	if err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}
	return out, nil
}

// FileName returns the attachment name for a channel's transcript.
func FileName(channelName string) string {
	return "transcript-" + channelName + ".html"
}

func renderContent(content string) (string, error) {
	md, p := renderer()
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render message markdown: %w", err)
	}
	return p.Sanitize(buf.String()), nil
}

package summary

import (
	"fmt"
	"strings"
)

// SectionKeys is the required section order for every summary document.
var SectionKeys = []string{
	"核心觀點",
	"提及標的",
	"關鍵數據",
	"投資機會",
	"風險提示",
	"個人行動建議",
}

// Sections maps a section heading to its body text.
type Sections map[string]string

// Missing returns the required section keys absent from s, in canonical
// order. An empty body under a present heading is acceptable.
func (s Sections) Missing() []string {
	var missing []string
	for _, key := range SectionKeys {
		if _, ok := s[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Document is a rendered episode summary: frontmatter metadata plus the
// six-section body.
type Document struct {
	VideoID     string
	ChannelID   string
	ChannelName string
	Title       string
	Published   string // as reported by the feed
	Processed   string // YYYY-MM-DD
	Sections    Sections
}

// Render produces the markdown document: frontmatter, title heading, source
// link, then the sections in canonical order.
func (d *Document) Render() string {
	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", sanitizeMetaValue(d.Title))
	fmt.Fprintf(&sb, "video_id: %s\n", d.VideoID)
	fmt.Fprintf(&sb, "channel_id: %s\n", d.ChannelID)
	fmt.Fprintf(&sb, "channel_name: %s\n", sanitizeMetaValue(d.ChannelName))
	fmt.Fprintf(&sb, "published: %s\n", d.Published)
	fmt.Fprintf(&sb, "processed: %s\n", d.Processed)
	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "# %s\n\n", strings.TrimSpace(d.Title))
	fmt.Fprintf(&sb, "🔗 [YouTube 觀看原片](https://youtube.com/watch?v=%s)\n", d.VideoID)
	for _, key := range SectionKeys {
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", key, strings.TrimSpace(d.Sections[key]))
	}
	return sb.String()
}

// sanitizeMetaValue keeps a frontmatter value on a single line.
func sanitizeMetaValue(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// Parse reads a rendered document back: frontmatter keys and ## sections.
// Tolerates documents without frontmatter (meta fields stay empty).
func Parse(content string) (*Document, error) {
	d := &Document{Sections: make(Sections)}
	body := content

	if strings.HasPrefix(content, "---\n") {
		rest := content[len("---\n"):]
		end := strings.Index(rest, "\n---")
		if end < 0 {
			return nil, fmt.Errorf("unterminated frontmatter")
		}
		for _, line := range strings.Split(rest[:end], "\n") {
			key, val, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			val = strings.TrimSpace(val)
			switch strings.TrimSpace(key) {
			case "title":
				d.Title = val
			case "video_id":
				d.VideoID = val
			case "channel_id":
				d.ChannelID = val
			case "channel_name":
				d.ChannelName = val
			case "published":
				d.Published = val
			case "processed":
				d.Processed = val
			}
		}
		body = rest[end+len("\n---"):]
	}

	var current string
	var buf strings.Builder
	flush := func() {
		if current != "" {
			d.Sections[current] = strings.TrimSpace(buf.String())
		}
		buf.Reset()
	}
	for _, line := range strings.Split(body, "\n") {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			current = strings.TrimSpace(heading)
			continue
		}
		if current != "" {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	flush()
	return d, nil
}

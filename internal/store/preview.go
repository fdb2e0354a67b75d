package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/quillhq/vellum/internal/frontmatter"
	"github.com/quillhq/vellum/internal/models"
)

// previewMeta is the frontmatter of a generated conversation preview.
type previewMeta struct {
	ID      string    `yaml:"id"`
	Created time.Time `yaml:"created"`
	Model   string    `yaml:"model"`
	Title   string    `yaml:"title,omitempty"`
}

// renderPreview builds the human-readable Markdown mirror of a
// conversation: frontmatter plus a blockquote transcript. The preview is
// regenerated wholesale on every save and is never hand-edited.
func renderPreview(c *models.Conversation) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "<!-- Generated from %s.yaml. Edits are overwritten on the next save. -->\n\n", c.ID)
	if c.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", c.Title)
	}

	for _, m := range c.Messages {
		fmt.Fprintf(&b, "**%s** · %s\n\n", m.Role, m.Timestamp.Format("2006-01-02 15:04"))
		for _, line := range strings.Split(strings.TrimRight(m.Content, "\n"), "\n") {
			b.WriteString("> ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
		for _, a := range m.Attachments {
			fmt.Fprintf(&b, ">\n> _attachment: %s_\n", a)
		}
		b.WriteByte('\n')
	}

	return frontmatter.Render(previewMeta{
		ID:      c.ID,
		Created: c.Created,
		Model:   c.Model,
		Title:   c.Title,
	}, b.String())
}

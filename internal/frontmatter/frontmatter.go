// Package frontmatter parses and renders documents of the restricted
// "YAML frontmatter + Markdown body" shape used by vault files.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Split separates the raw YAML frontmatter block (between leading ---
// delimiters) from the body. If no frontmatter is found, or the block is
// unterminated, the entire content is body and the returned block is nil.
func Split(data []byte) (block []byte, body string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	block = rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body = strings.TrimLeft(string(afterDelim), "\n\r")
	return block, body
}

// Parse unmarshals the frontmatter block into meta and returns the body.
// A document without frontmatter yields the zero meta and the full content
// as body. Invalid YAML in the block is an error; callers decide whether
// that means "malformed entity" or "plain document".
func Parse(data []byte, meta any) (body string, err error) {
	block, body := Split(data)
	if block == nil {
		return body, nil
	}
	if err := yaml.Unmarshal(block, meta); err != nil {
		return "", fmt.Errorf("frontmatter: unmarshal: %w", err)
	}
	return body, nil
}

// Render serializes meta and body back into a frontmatter document:
// --- / yaml / --- / blank line / body.
func Render(meta any, body string) ([]byte, error) {
	block, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim)
	buf.WriteByte('\n')
	buf.Write(block)
	buf.WriteString(delim)
	buf.WriteString("\n\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Title returns the first H1 heading of body, or empty string.
func Title(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

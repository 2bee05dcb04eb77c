package store

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

const frontmatterDelimiter = "---"

// ParseFrontmatter splits a goal file into YAML frontmatter and a markdown
// body. The body becomes the goal's notes.
func ParseFrontmatter(content string) (*goals.Goal, error) {
	content = strings.TrimSpace(content)

	if !strings.HasPrefix(content, frontmatterDelimiter) {
		// No frontmatter, so the whole file is notes
		return &goals.Goal{Notes: content}, nil
	}

	rest := content[len(frontmatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter)
	if idx == -1 {
		return nil, fmt.Errorf("unclosed frontmatter delimiter")
	}

	yamlContent := rest[:idx]
	body := rest[idx+len("\n"+frontmatterDelimiter):]
	body = strings.TrimLeft(body, "\n")

	var g goals.Goal
	if err := yaml.Unmarshal([]byte(yamlContent), &g); err != nil {
		return nil, fmt.Errorf("parsing frontmatter YAML: %w", err)
	}

	g.Notes = body
	return &g, nil
}

// SerializeFrontmatter renders a goal back to markdown with YAML frontmatter.
func SerializeFrontmatter(g *goals.Goal) (string, error) {
	yamlBytes, err := yaml.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("serializing frontmatter YAML: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(string(yamlBytes), "\n"))
	b.WriteString("\n")
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	if g.Notes != "" {
		b.WriteString("\n")
		b.WriteString(g.Notes)
		if !strings.HasSuffix(g.Notes, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}

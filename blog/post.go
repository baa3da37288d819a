package blog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// Post is a generated blog post.
type Post struct {
	Topic string
	// Sections holds the generated text indexed by Section.
	Sections [len(Sections)]string
	// Provider names the LLM provider that wrote the post.
	Provider string
	// WordTarget is the requested length, shown in the Markdown header.
	WordTarget int
}

// Section returns the text generated for s.
func (p *Post) Section(s Section) string {
	if s < 0 || int(s) >= len(p.Sections) {
		return ""
	}
	return p.Sections[s]
}

// Text returns the sections concatenated in order, with nothing added.
func (p *Post) Text() string {
	var sb strings.Builder
	for _, s := range Sections {
		sb.WriteString(p.Sections[s])
	}
	return sb.String()
}

// Markdown renders the post with a title, section headings and separators.
func (p *Post) Markdown() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", p.Topic)
	if p.WordTarget > 0 {
		fmt.Fprintf(&sb, "*Target Word Count: %d*\n\n", p.WordTarget)
	}
	sb.WriteString("---\n\n")

	for _, s := range Sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n---\n\n", s.Heading(), strings.TrimSpace(p.Sections[s]))
	}

	if p.Provider != "" {
		fmt.Fprintf(&sb, "*Generated using %s*\n", p.Provider)
	}
	return sb.String()
}

// HTML renders Markdown() as an HTML fragment.
func (p *Post) HTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(p.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.String(), nil
}

// WordCount returns the number of words across all sections.
func (p *Post) WordCount() int {
	n := 0
	for _, text := range p.Sections {
		n += len(strings.Fields(text))
	}
	return n
}

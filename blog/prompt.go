package blog

import (
	"fmt"
	"strings"

	"github.com/xostack/xoblog/config"
	"github.com/xostack/xoblog/source"
)

const (
	introWords = 150
	// Words reserved for the introduction and conclusion.
	frameWords = 300
)

// Prompt is the text sent to the LLM for one section.
type Prompt string

// Composer builds section prompts for a target post length.
// The zero value targets config.DefaultWordCount words.
type Composer struct {
	// WordCount is the target length of the whole post. It is clamped to
	// [config.MinWordCount, config.MaxWordCount].
	WordCount int
}

// Compose builds the prompt for section with the default Composer.
func Compose(topic string, section Section, snippets []source.Snippet) Prompt {
	return Composer{}.Compose(topic, section, snippets)
}

// TargetWords returns the clamped target length of the whole post.
func (c Composer) TargetWords() int {
	switch {
	case c.WordCount == 0:
		return config.DefaultWordCount
	case c.WordCount < config.MinWordCount:
		return config.MinWordCount
	case c.WordCount > config.MaxWordCount:
		return config.MaxWordCount
	default:
		return c.WordCount
	}
}

// Compose builds the prompt for one section of a post about topic. The
// result depends only on its arguments. Without snippets the background
// block is left out.
func (c Composer) Compose(topic string, section Section, snippets []source.Snippet) Prompt {
	var sb strings.Builder

	sb.WriteString(c.instructions(topic, section))
	sb.WriteString("\n\nReturn only the text of this section, without a section heading or any preamble.")

	if len(snippets) > 0 {
		sb.WriteString("\n\nBackground facts:\n")
		for _, s := range snippets {
			sb.WriteString(formatSnippet(s))
			sb.WriteByte('\n')
		}
		sb.WriteString("\nUse the background facts where they are relevant and do not invent sources.")
	}

	return Prompt(sb.String())
}

func (c Composer) instructions(topic string, section Section) string {
	switch section {
	case Introduction:
		return fmt.Sprintf("Write a %d-word engaging introduction about '%s'.", introWords, topic)
	case Body:
		return fmt.Sprintf("Write a detailed explanation of '%s' (~%d words). "+
			"Organise it with Markdown subheadings (###).", topic, c.TargetWords()-frameWords)
	case Conclusion:
		return fmt.Sprintf("Write a short conclusion summarizing '%s'. "+
			"End with a clear takeaway for the reader.", topic)
	default:
		return fmt.Sprintf("Write about '%s'.", topic)
	}
}

// formatSnippet renders s as "- [origin] title: text (url)".
func formatSnippet(s source.Snippet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- [%s] ", s.Origin)
	if s.Title != "" {
		sb.WriteString(s.Title)
		sb.WriteString(": ")
	}
	sb.WriteString(strings.Join(strings.Fields(s.Text), " "))
	if s.URL != "" {
		fmt.Fprintf(&sb, " (%s)", s.URL)
	}
	return sb.String()
}

package blog

// Section is one of the three fixed parts of a blog post.
type Section int

const (
	Introduction Section = iota
	Body
	Conclusion
)

// Sections lists the sections in the order they appear in a post.
var Sections = [...]Section{Introduction, Body, Conclusion}

func (s Section) String() string {
	switch s {
	case Introduction:
		return "introduction"
	case Body:
		return "body"
	case Conclusion:
		return "conclusion"
	default:
		return "unknown"
	}
}

// Heading returns the Markdown heading text used for s.
func (s Section) Heading() string {
	switch s {
	case Introduction:
		return "Introduction"
	case Body:
		return "Main Content"
	case Conclusion:
		return "Conclusion"
	default:
		return ""
	}
}

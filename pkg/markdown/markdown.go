package markdown

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

type Style int

const (
	Plain Style = iota
	Bold
	Italic
	Underline
	Strike
	Code
)

type LineKind int

const (
	TextLine LineKind = iota
	Blockquote
	ListItem
)

type (
	// Segment is a run of text carrying a single style, delimiters stripped.
	Segment struct {
		Text  string
		Style Style
	}

	Line struct {
		Kind     LineKind
		Segments []Segment
	}
)

// Longer marker pairs come first so ** is never read as two italics.
var inlineRe = regexp.MustCompile(`\*\*.*?\*\*|__.*?__|~~.*?~~|\*.*?\*|` + "`.*?`")

var listRe = regexp.MustCompile(`^\d+\.\s`)

// Render parses the restricted inline subset into styled lines. Markers
// must be paired on the same line; anything unmatched falls through as
// literal text, except a bare ** which reads as an empty italic pair.
// Empty input yields no lines at all.
func Render(input string) []Line {
	if input == "" {
		return nil
	}

	var out []Line
	for _, raw := range strings.Split(input, "\n") {
		switch {
		case strings.HasPrefix(raw, "> "):
			out = append(out, Line{
				Kind:     Blockquote,
				Segments: []Segment{{Text: strings.TrimPrefix(raw, "> ")}},
			})
		case strings.HasPrefix(raw, "• ") || listRe.MatchString(raw):
			// List items keep their bullet/number verbatim.
			out = append(out, Line{
				Kind:     ListItem,
				Segments: []Segment{{Text: raw}},
			})
		default:
			out = append(out, Line{Kind: TextLine, Segments: parseInline(raw)})
		}
	}
	return out
}

func parseInline(text string) []Segment {
	var segments []Segment
	last := 0
	for _, loc := range inlineRe.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			segments = append(segments, Segment{Text: text[last:loc[0]]})
		}
		segments = append(segments, styled(text[loc[0]:loc[1]]))
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, Segment{Text: text[last:]})
	}
	return segments
}

func styled(token string) Segment {
	switch {
	case strings.HasPrefix(token, "**") && len(token) >= 4:
		return Segment{Text: token[2 : len(token)-2], Style: Bold}
	case strings.HasPrefix(token, "__"):
		return Segment{Text: token[2 : len(token)-2], Style: Underline}
	case strings.HasPrefix(token, "~~"):
		return Segment{Text: token[2 : len(token)-2], Style: Strike}
	case strings.HasPrefix(token, "`"):
		return Segment{Text: token[1 : len(token)-1], Style: Code}
	default:
		// A bare ** is matched by the single-star pattern with nothing
		// inside and renders as an empty italic run, like the app always
		// has.
		return Segment{Text: token[1 : len(token)-1], Style: Italic}
	}
}

var markers = map[Style]string{
	Bold:      "**",
	Italic:    "*",
	Underline: "__",
	Strike:    "~~",
	Code:      "`",
}

const placeholder = "text"

// Splice wraps the selected range [start, end) of text in the marker pair
// for the given style, or a placeholder word when the selection is empty.
// This is the write-only inverse of Render; the two are not bijective for
// nested or malformed input.
func Splice(text string, start, end int, style Style) (string, error) {
	marker, ok := markers[style]
	if !ok {
		return "", errors.Errorf("markdown: style %d has no inline marker", style)
	}
	if start < 0 || end < start || end > len(text) {
		return "", errors.New("markdown: selection out of range")
	}

	selected := text[start:end]
	if selected == "" {
		selected = placeholder
	}
	return text[:start] + marker + selected + marker + text[end:], nil
}

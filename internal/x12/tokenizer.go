package x12

import (
	"regexp"
	"strings"
)

const (
	// SegmentTerminator is the standard X12 segment terminator.
	SegmentTerminator = "~"

	// DefaultElementSeparator separates elements inside a segment.
	DefaultElementSeparator = "*"

	// fallbackThreshold is the segment count at or below which the
	// terminators are assumed to be collapsed or stripped.
	fallbackThreshold = 2
)

// segmentPattern recovers "<TAG>*..." runs when terminators were lost in transport.
var segmentPattern = regexp.MustCompile(`[A-Z0-9]{2,3}\*[^~\n\r]*`)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Tokenize splits raw interchange text into trimmed, non-empty segments.
//
// Segments are split on "~" when it occurs anywhere in the text, otherwise on
// newlines. When that yields two or fewer segments the text is rescanned with
// a tag pattern, favoring best-effort recovery over rejection.
func Tokenize(text string) []string {
	t := strings.TrimSpace(lineEndings.Replace(text))
	if t == "" {
		return nil
	}

	sep := "\n"
	if strings.Contains(t, SegmentTerminator) {
		sep = SegmentTerminator
	}
	segments := splitNonEmpty(t, sep)

	if len(segments) <= fallbackThreshold {
		var recovered []string
		for _, m := range segmentPattern.FindAllString(t, -1) {
			if s := strings.TrimSpace(m); s != "" {
				recovered = append(recovered, s)
			}
		}
		return recovered
	}

	return segments
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, piece := range strings.Split(s, sep) {
		if p := strings.TrimSpace(piece); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Elements are the positional fields of a segment, after the tag.
// Out-of-range access yields the zero value instead of panicking.
type Elements []string

// Get returns the element at i and whether it exists.
func (e Elements) Get(i int) (string, bool) {
	if i < 0 || i >= len(e) {
		return "", false
	}
	return e[i], true
}

// Value returns the element at i, or "" when absent.
func (e Elements) Value(i int) string {
	v, _ := e.Get(i)
	return v
}

// Segment is a tag with its positional elements.
type Segment struct {
	Tag      string
	Elements Elements
}

// SplitElements splits one segment into its tag and trimmed elements.
// An empty sep means DefaultElementSeparator. Composite elements are opaque.
func SplitElements(segment, sep string) (string, Elements) {
	if sep == "" {
		sep = DefaultElementSeparator
	}
	parts := strings.Split(segment, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts[0], Elements(parts[1:])
}

// Segments tokenizes text and splits every segment into tag and elements.
func Segments(text string) []Segment {
	raw := Tokenize(text)
	out := make([]Segment, 0, len(raw))
	for _, s := range raw {
		tag, el := SplitElements(s, DefaultElementSeparator)
		out = append(out, Segment{Tag: tag, Elements: el})
	}
	return out
}

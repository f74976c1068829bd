package richtext

import (
	"regexp"
	"sort"
	"strings"
)

type SpanKind int

const (
	SpanLink SpanKind = iota
	SpanMention
)

// Span is a byte range of text that should become a facet. Value is the
// link target for SpanLink and the bare handle (no @) for SpanMention.
type Span struct {
	Kind      SpanKind
	ByteStart int
	ByteEnd   int
	Value     string
}

var mentionPattern = regexp.MustCompile(`(?:^|[\s(])(@([a-zA-Z0-9](?:[a-zA-Z0-9.-]*[a-zA-Z0-9])?))`)

// Detect finds links and handle mentions in text. Mentions must look like a
// domain handle (contain a dot); "@user@instance" forms are left alone.
func Detect(text string) []Span {
	var spans []Span

	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		spans = append(spans, Span{
			Kind:      SpanLink,
			ByteStart: loc[0],
			ByteEnd:   loc[1],
			Value:     text[loc[0]:loc[1]],
		})
	}

	for _, loc := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if end < len(text) && text[end] == '@' {
			continue
		}
		handle := text[loc[4]:loc[5]]
		if !strings.Contains(handle, ".") {
			continue
		}
		spans = append(spans, Span{
			Kind:      SpanMention,
			ByteStart: start,
			ByteEnd:   end,
			Value:     strings.ToLower(handle),
		})
	}

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].ByteStart < spans[j].ByteStart
	})
	return spans
}

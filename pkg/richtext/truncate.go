package richtext

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mvdan.cc/xurls/v2"
)

const Ellipsis = "…"

var urlPattern = xurls.Strict()

type segment struct {
	text  string
	isURL bool
}

func split(text string) []segment {
	var segments []segment
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			segments = append(segments, segment{text: text[last:loc[0]]})
		}
		segments = append(segments, segment{text: text[loc[0]:loc[1]], isURL: true})
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, segment{text: text[last:]})
	}
	return segments
}

// Truncate shortens text to at most max characters. URLs are never cut: their
// full length is reserved up front, plus one separating space each, and only
// the surrounding text is shortened, the cut segment ending in an ellipsis.
// Text after the cut is dropped while later URLs are kept, each set apart
// from what precedes it by a space. If the URLs alone exceed max they are
// still returned whole. The second result reports whether text was changed.
func Truncate(text string, max int) (string, bool) {
	if utf8.RuneCountInString(text) <= max {
		return text, false
	}

	segments := split(text)
	sb := strings.Builder{}
	written := 0
	cut := false
	for i, seg := range segments {
		if seg.isURL {
			if cut && needsSeparator(sb.String()) {
				sb.WriteString(" ")
				written++
			}
			sb.WriteString(seg.text)
			written += utf8.RuneCountInString(seg.text)
			continue
		}
		if cut {
			continue
		}

		n := utf8.RuneCountInString(seg.text)
		room := max - written - reservedAfter(segments, i)
		if n <= room {
			sb.WriteString(seg.text)
			written += n
			continue
		}

		cut = true
		if room > 0 {
			kept := strings.TrimRightFunc(string([]rune(seg.text)[:room-1]), unicode.IsSpace)
			sb.WriteString(kept)
			sb.WriteString(Ellipsis)
			written += utf8.RuneCountInString(kept) + 1
		}
	}

	return sb.String(), true
}

// reservedAfter is the room kept for the URLs following segment i, each with
// one separating space.
func reservedAfter(segments []segment, i int) int {
	reserved := 0
	for _, seg := range segments[i+1:] {
		if seg.isURL {
			reserved += utf8.RuneCountInString(seg.text) + 1
		}
	}
	return reserved
}

func needsSeparator(written string) bool {
	if written == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(written)
	return !unicode.IsSpace(last)
}

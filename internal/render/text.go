package render

import "strings"

// productTitle keeps the display name up to the first variant delimiter.
func productTitle(name string) string {
	if i := strings.Index(name, "-"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// wrapTitle greedily word-wraps s at the given column width. Words longer
// than the width are split across lines rather than overflowing the text
// block.
func wrapTitle(s string, width int) []string {
	if width <= 0 {
		width = 1
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var current string
	flush := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}

	for _, word := range words {
		for len(word) > width {
			flush()
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			flush()
			current = word
		}
	}
	flush()

	return lines
}

package sqlguard

import "unicode/utf8"

// positionAtRune converts a 0-based character index into a line/column pair.
// Indexes past the end of text clamp to the last position.
func positionAtRune(text string, index int) *Position {
	pos := &Position{Line: 1, Column: 1}
	i := 0
	for _, r := range text {
		if i >= index {
			break
		}
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
		i++
	}
	return pos
}

// positionAtByte converts a 0-based byte offset into a line/column pair.
func positionAtByte(text string, offset int) *Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	return positionAtRune(text, utf8.RuneCountInString(text[:offset]))
}

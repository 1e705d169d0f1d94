package conversation

import (
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLength = 47
	defaultTitle   = "New conversation"
)

// GenerateTitle derives a conversation title from the first message sent in it.
// Words are joined by single spaces; once the next word would push the title past
// 47 characters the title is cut there and "..." is appended.
func GenerateTitle(content string) string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return defaultTitle
	}

	var b strings.Builder
	length := 0
	for _, word := range words {
		next := utf8.RuneCountInString(word)
		if length > 0 {
			next++
		}
		if length+next > maxTitleLength {
			if length == 0 {
				// a single oversized word is cut mid-word
				return string([]rune(word)[:maxTitleLength]) + "..."
			}
			return b.String() + "..."
		}
		if length > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		length += next
	}
	return b.String()
}

package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// PlainText strips markup from s and collapses whitespace
func PlainText(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way keep what was read
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isHiddenTag(string(name)) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isHiddenTag(string(name)) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// Excerpt returns at most max runes of the plain text of s, ending in "..." when cut
func Excerpt(s string, max int) string {
	text := PlainText(s)
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	cut := strings.TrimSpace(string(runes[:max]))
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return cut + "..."
}

func isHiddenTag(name string) bool {
	return name == "script" || name == "style"
}

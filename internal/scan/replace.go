package scan

import "strings"

// ReplaceAll is a literal, non-rescanning global substring replacement.
// The cursor advances past each inserted replacement, so replacement text
// containing the search string is never rescanned. search == replace is a
// no-op and search == "" returns the input unchanged.
func ReplaceAll(s, search, replace string) string {
	if search == "" || search == replace {
		return s
	}
	var b strings.Builder
	pos := 0
	for {
		idx := strings.Index(s[pos:], search)
		if idx == -1 {
			if pos == 0 {
				return s
			}
			b.WriteString(s[pos:])
			return b.String()
		}
		idx += pos
		b.WriteString(s[pos:idx])
		b.WriteString(replace)
		pos = idx + len(search)
	}
}

// Package instanceid derives a stable identifier for a conversation from
// its opening message. The text is normalized first so that the system's
// own writes can never perturb the identity: macro placeholders collapse to
// a neutral token and previously recorded outfit item names are blanked
// out. Two messages differing only in those regions hash identically.
//
// The hash is a sha-256 digest truncated to 16 hex characters. That choice
// is fixed at build time; there is no environment-dependent fallback, since
// a runtime branch would silently produce different IDs for the same
// content on different hosts.
package instanceid

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"wardrobe/internal/slots"
)

// placeholder replaces a stripped macro. Four characters, not the empty
// string, so surrounding structure and length signal is partially kept.
const placeholder = "{{}}"

// itemSentinel replaces a known outfit item occurrence.
const itemSentinel = "\x00item\x00"

// Generator derives instance IDs. Known supplies every outfit item value
// ever recorded for the active character (all instances plus presets); it
// may be nil.
type Generator struct {
	Known func() []string
}

// Derive returns the instance ID for a conversation whose first message is
// text.
func (g *Generator) Derive(text string) string {
	var known []string
	if g != nil && g.Known != nil {
		known = g.Known()
	}
	return Hash(Normalize(text, known))
}

// Hash returns the sha-256 digest of text truncated to 16 hex characters.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// Normalize strips macro placeholders and known outfit item values from
// text so the result is invariant under outfit changes.
func Normalize(text string, known []string) string {
	text = stripMacros(text)
	return stripKnownValues(text, known)
}

// stripMacros replaces every {{prefix_slot}}-shaped macro with the neutral
// placeholder. The prefix is an alphanumeric/underscore token (char, user,
// or a character name) and the slot part uses the slot charset [a-z0-9_-].
func stripMacros(text string) string {
	var b strings.Builder
	pos := 0
	for {
		start := strings.Index(text[pos:], "{{")
		if start == -1 {
			break
		}
		start += pos
		close := strings.Index(text[start+2:], "}}")
		if close == -1 {
			break
		}
		end := start + 2 + close + 2
		if macroShaped(text[start+2 : end-2]) {
			b.WriteString(text[pos:start])
			b.WriteString(placeholder)
			pos = end
		} else {
			b.WriteString(text[pos : start+2])
			pos = start + 2
		}
	}
	if pos == 0 {
		return text
	}
	b.WriteString(text[pos:])
	return b.String()
}

// macroShaped reports whether content looks like prefix_slot: a prefix of
// [A-Za-z0-9_] bytes, an underscore, and a slot token of [a-z0-9_-] bytes.
func macroShaped(content string) bool {
	sep := strings.IndexByte(content, '_')
	if sep <= 0 || sep == len(content)-1 {
		return false
	}
	for i := 0; i < sep; i++ {
		if !isPrefixByte(content[i]) {
			return false
		}
	}
	for i := sep + 1; i < len(content); i++ {
		if !isSlotByte(content[i]) {
			return false
		}
	}
	return true
}

// stripKnownValues removes each known item value occurring at a word
// boundary, longest value first so substrings of longer items never leave
// fragments behind.
func stripKnownValues(text string, known []string) string {
	values := make([]string, 0, len(known))
	seen := make(map[string]struct{}, len(known))
	for _, v := range known {
		v = strings.TrimSpace(v)
		if v == "" || v == slots.None {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if len(values[i]) != len(values[j]) {
			return len(values[i]) > len(values[j])
		}
		return values[i] < values[j]
	})

	for _, v := range values {
		text = replaceBounded(text, v, itemSentinel)
	}
	return text
}

// replaceBounded is scan.ReplaceAll restricted to word-boundary matches:
// the match must not be directly adjacent to a letter or digit.
func replaceBounded(s, search, replace string) string {
	if search == "" || search == replace {
		return s
	}
	var b strings.Builder
	pos := 0
	wrote := false
	for {
		idx := strings.Index(s[pos:], search)
		if idx == -1 {
			break
		}
		idx += pos
		if !boundaryBefore(s, idx) || !boundaryAfter(s, idx+len(search)) {
			b.WriteString(s[pos : idx+1])
			pos = idx + 1
			wrote = true
			continue
		}
		b.WriteString(s[pos:idx])
		b.WriteString(replace)
		pos = idx + len(search)
		wrote = true
	}
	if !wrote {
		return s
	}
	b.WriteString(s[pos:])
	return b.String()
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	return !isWordByte(s[idx-1])
}

func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	return !isWordByte(s[idx])
}

func isWordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	}
	return false
}

func isPrefixByte(b byte) bool {
	return isWordByte(b) || b == '_'
}

func isSlotByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-':
		return true
	}
	return false
}

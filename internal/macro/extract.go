// Package macro resolves {{...}} outfit placeholders in arbitrary text
// against live store state. Extraction is a byte scanner, not a regex:
// the input is prompt text that may embed arbitrary LLM output, and the
// slot grammar needs progressive prefix matching that a single pattern
// cannot express cleanly.
package macro

import (
	"strings"

	"wardrobe/internal/slots"
)

// Kind classifies a recognized placeholder.
type Kind string

const (
	// KindCharName is {{char}} (or its {{bot}} alias).
	KindCharName Kind = "char"
	// KindUserName is {{user}}.
	KindUserName Kind = "user"
	// KindCharSlot is {{char_<slot>}}.
	KindCharSlot Kind = "char_slot"
	// KindUserSlot is {{user_<slot>}}.
	KindUserSlot Kind = "user_slot"
	// KindNamedSlot is {{<CharacterName>_<slot>}}.
	KindNamedSlot Kind = "named_slot"
	// KindBareName is {{<CharacterName>}}, a literal name substitution.
	KindBareName Kind = "bare_name"
)

// Placeholder is one recognized macro occurrence. Start and End index the
// enclosing braces in the scanned text.
type Placeholder struct {
	Full  string
	Kind  Kind
	Slot  string
	Name  string
	Start int
	End   int
}

// Extract returns all recognized placeholders in text, in order. Content
// that matches neither a slot pattern nor a name token is skipped.
func Extract(text string) []Placeholder {
	var out []Placeholder
	pos := 0
	for {
		start := strings.Index(text[pos:], "{{")
		if start == -1 {
			return out
		}
		start += pos
		close := strings.Index(text[start+2:], "}}")
		if close == -1 {
			return out
		}
		end := start + 2 + close + 2
		content := text[start+2 : end-2]

		if p, ok := classify(content); ok {
			p.Full = text[start:end]
			p.Start = start
			p.End = end
			out = append(out, p)
		}
		pos = end
	}
}

// classify maps placeholder content to its kind. Slot detection splits on
// each underscore left to right and takes the first suffix that names a
// canonical slot, so character names containing underscores still match.
func classify(content string) (Placeholder, bool) {
	switch content {
	case "char", "bot":
		return Placeholder{Kind: KindCharName}, true
	case "user":
		return Placeholder{Kind: KindUserName}, true
	}

	if prefix, slot, ok := splitSlot(content); ok {
		switch prefix {
		case "char", "bot":
			return Placeholder{Kind: KindCharSlot, Slot: slot}, true
		case "user":
			return Placeholder{Kind: KindUserSlot, Slot: slot}, true
		default:
			return Placeholder{Kind: KindNamedSlot, Slot: slot, Name: prefix}, true
		}
	}

	if isNameToken(content) {
		return Placeholder{Kind: KindBareName, Name: content}, true
	}
	return Placeholder{}, false
}

// splitSlot finds the underscore that separates a prefix from a canonical
// slot name, trying progressively longer prefixes.
func splitSlot(content string) (prefix, slot string, ok bool) {
	for i := 0; i < len(content); i++ {
		if content[i] != '_' {
			continue
		}
		candidate := content[i+1:]
		if slots.Valid(candidate) {
			return content[:i], candidate, true
		}
	}
	return "", "", false
}

// isNameToken accepts a bare character-name substitution: letters,
// digits, spaces, and the joiners names actually contain.
func isNameToken(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	for i := 0; i < len(content); i++ {
		b := content[i]
		switch {
		case b >= 'a' && b <= 'z':
		case b >= 'A' && b <= 'Z':
		case b >= '0' && b <= '9':
		case b == ' ' || b == '_' || b == '-' || b == '\'':
		default:
			return false
		}
	}
	return true
}

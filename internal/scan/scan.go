// Package scan extracts outfit commands and legacy macros from free-form
// text. The input is LLM output and therefore untrusted; everything here is
// a hand-rolled byte scanner so quoting, escaping, and nesting stay under
// explicit control and worst-case behavior is O(n). Malformed candidates
// are dropped, never reported as errors.
package scan

import "strings"

// CommandPrefix introduces every outfit command on the wire.
const CommandPrefix = "outfit-system_"

// Actions is the fixed command verb vocabulary.
var Actions = map[string]struct{}{
	"wear":    {},
	"remove":  {},
	"change":  {},
	"replace": {},
	"unequip": {},
}

// Commands returns every structurally complete command substring in text,
// verbatim and in order. A candidate that fails validation is skipped by
// advancing a single byte past the prefix match, so adjacent malformed
// patterns are never merged into one.
func Commands(text string) []string {
	var out []string
	pos := 0
	for {
		start := strings.Index(text[pos:], CommandPrefix)
		if start == -1 {
			return out
		}
		start += pos
		end, ok := scanCommand(text, start)
		if !ok {
			pos = start + 1
			continue
		}
		out = append(out, text[start:end])
		pos = end
	}
}

// scanCommand validates the command starting at start and returns the index
// one past its closing parenthesis.
func scanCommand(text string, start int) (int, bool) {
	i := start + len(CommandPrefix)

	// Action token, terminated by '_', must be a known verb.
	actionEnd := i
	for actionEnd < len(text) && isTokenByte(text[actionEnd]) {
		actionEnd++
	}
	if actionEnd >= len(text) || text[actionEnd] != '_' {
		return 0, false
	}
	if _, ok := Actions[text[i:actionEnd]]; !ok {
		return 0, false
	}

	// Slot token, terminated by '(', charset [A-Za-z0-9_-].
	i = actionEnd + 1
	slotEnd := i
	for slotEnd < len(text) && isSlotByte(text[slotEnd]) {
		slotEnd++
	}
	if slotEnd == i || slotEnd >= len(text) || text[slotEnd] != '(' {
		return 0, false
	}

	end, ok := scanArgs(text, slotEnd)
	if !ok {
		return 0, false
	}
	return end, true
}

// scanArgs consumes a balanced-parenthesis argument list starting at the
// opening '(' at index open. Parentheses and quotes inside a double-quoted
// argument do not count toward nesting; backslash escapes a quote.
func scanArgs(text string, open int) (int, bool) {
	depth := 0
	i := open
	for i < len(text) {
		switch text[i] {
		case '(':
			depth++
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return i, true
			}
		case '"':
			j, ok := skipQuoted(text, i)
			if !ok {
				return 0, false
			}
			i = j
		default:
			i++
		}
	}
	return 0, false
}

// skipQuoted returns the index one past the closing quote of the
// double-quoted string opening at index open.
func skipQuoted(text string, open int) (int, bool) {
	i := open + 1
	for i < len(text) {
		switch text[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1, true
		default:
			i++
		}
	}
	return 0, false
}

func isTokenByte(b byte) bool {
	return b >= 'a' && b <= 'z'
}

func isSlotByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-':
		return true
	}
	return false
}

const macroOpen = "{{getglobalvar::"

// Macro is one legacy {{getglobalvar::NAME}} occurrence.
type Macro struct {
	Full string
	Name string
}

// Macros returns every well-formed legacy global-variable macro in text.
// A macro with no closing braces is skipped by advancing past its opening
// brace.
func Macros(text string) []Macro {
	var out []Macro
	pos := 0
	for {
		start := strings.Index(text[pos:], macroOpen)
		if start == -1 {
			return out
		}
		start += pos
		nameStart := start + len(macroOpen)
		close := strings.Index(text[nameStart:], "}}")
		if close == -1 {
			pos = start + 1
			continue
		}
		end := nameStart + close + 2
		out = append(out, Macro{
			Full: text[start:end],
			Name: text[nameStart : nameStart+close],
		})
		pos = end
	}
}

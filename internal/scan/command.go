package scan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCommand = errors.New("invalid command format")
	ErrInvalidAction  = errors.New("invalid action")
)

// Command is a parsed outfit command. Action and Slot are verbatim; verb
// aliasing (replace/unequip) is the caller's concern.
type Command struct {
	Action string
	Slot   string
	Value  string
}

// ParseCommand splits a command substring produced by Commands into its
// action, slot, and value parts. The value is empty for an empty argument
// list, an unquoted run up to the closing parenthesis, or a double-quoted
// string with backslash-escaped quotes.
func ParseCommand(cmd string) (Command, error) {
	if !strings.HasPrefix(cmd, CommandPrefix) {
		return Command{}, fmt.Errorf("%w: missing %q prefix", ErrInvalidCommand, CommandPrefix)
	}
	rest := cmd[len(CommandPrefix):]

	sep := strings.IndexByte(rest, '_')
	if sep <= 0 {
		return Command{}, fmt.Errorf("%w: no action separator", ErrInvalidCommand)
	}
	action := rest[:sep]
	if _, ok := Actions[action]; !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	rest = rest[sep+1:]
	open := strings.IndexByte(rest, '(')
	if open <= 0 {
		return Command{}, fmt.Errorf("%w: no argument list", ErrInvalidCommand)
	}
	slot := rest[:open]
	for i := 0; i < len(slot); i++ {
		if !isSlotByte(slot[i]) {
			return Command{}, fmt.Errorf("%w: bad slot token %q", ErrInvalidCommand, slot)
		}
	}

	value, err := parseValue(rest[open:])
	if err != nil {
		return Command{}, err
	}
	return Command{Action: action, Slot: slot, Value: value}, nil
}

// parseValue scans the argument list, args[0] being '('.
func parseValue(args string) (string, error) {
	if len(args) < 2 || args[0] != '(' {
		return "", fmt.Errorf("%w: no argument list", ErrInvalidCommand)
	}
	i := 1
	if args[i] == ')' {
		return "", nil
	}

	if args[i] == '"' {
		var b strings.Builder
		i++
		for i < len(args) {
			switch args[i] {
			case '\\':
				if i+1 >= len(args) {
					return "", fmt.Errorf("%w: dangling escape", ErrInvalidCommand)
				}
				b.WriteByte(args[i+1])
				i += 2
			case '"':
				// Closing quote; require the ')' right after optional spaces.
				i++
				for i < len(args) && args[i] == ' ' {
					i++
				}
				if i >= len(args) || args[i] != ')' {
					return "", fmt.Errorf("%w: unterminated argument list", ErrInvalidCommand)
				}
				return b.String(), nil
			default:
				b.WriteByte(args[i])
				i++
			}
		}
		return "", fmt.Errorf("%w: unterminated quoted value", ErrInvalidCommand)
	}

	end := strings.IndexByte(args[i:], ')')
	if end == -1 {
		return "", fmt.Errorf("%w: unterminated argument list", ErrInvalidCommand)
	}
	return args[i : i+end], nil
}

package autoupdate

import (
	"wardrobe/internal/scan"
	"wardrobe/internal/slots"
)

// DefaultConfidenceThreshold gates command application. The score is a
// heuristic sum of structural-validity signals, built to tolerate LLM
// hallucination of malformed slot and action names without corrupting
// stored state.
const DefaultConfidenceThreshold = 0.7

// Confidence scores a command candidate in [0, 1]. A candidate that does
// not parse keeps whatever partial credit its pieces earn; a fully valid
// command scores 1.0.
func Confidence(candidate string) (scan.Command, float64) {
	cmd, err := scan.ParseCommand(candidate)
	if err != nil {
		return scan.Command{}, 0
	}
	score := 0.5
	if _, ok := scan.Actions[cmd.Action]; ok {
		score += 0.2
	}
	if slots.Valid(cmd.Slot) {
		score += 0.2
	}
	if !requiresValue(cmd.Action) || cmd.Value != "" {
		score += 0.1
	}
	return cmd, score
}

// requiresValue reports whether the action needs a non-empty argument.
// Removal verbs carry the target in the slot name alone.
func requiresValue(action string) bool {
	switch action {
	case "remove", "unequip":
		return false
	}
	return true
}

// normalizeAction folds the alias verbs onto their canonical forms.
func normalizeAction(action string) string {
	switch action {
	case "replace":
		return "change"
	case "unequip":
		return "remove"
	}
	return action
}

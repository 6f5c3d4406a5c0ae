// Package slots defines the canonical outfit slot set. The set is fixed:
// seven clothing slots and twelve body-location accessory slots. There are
// no dynamic slots.
package slots

import (
	"errors"
	"fmt"
	"strings"
)

// None is the sentinel for an empty slot. Persisted slot values are never
// the empty string; anything unset normalizes to None.
const None = "None"

// MaxValueLen caps a single slot value. Longer values are truncated.
const MaxValueLen = 1000

var ErrInvalidSlot = errors.New("invalid slot")

var clothing = []string{
	"headwear",
	"topwear",
	"topunderwear",
	"bottomwear",
	"bottomunderwear",
	"footwear",
	"footunderwear",
}

var accessories = []string{
	"head-accessory",
	"ears-accessory",
	"eyes-accessory",
	"face-accessory",
	"neck-accessory",
	"body-accessory",
	"arms-accessory",
	"hands-accessory",
	"waist-accessory",
	"bottom-accessory",
	"legs-accessory",
	"foot-accessory",
}

var all = append(append([]string{}, clothing...), accessories...)

var index = func() map[string]struct{} {
	m := make(map[string]struct{}, len(all))
	for _, s := range all {
		m[s] = struct{}{}
	}
	return m
}()

// All returns the canonical slot set in declaration order.
func All() []string {
	return append([]string{}, all...)
}

// Clothing returns the clothing slots.
func Clothing() []string {
	return append([]string{}, clothing...)
}

// Accessories returns the accessory slots.
func Accessories() []string {
	return append([]string{}, accessories...)
}

// Valid reports whether name is a canonical slot.
func Valid(name string) bool {
	_, ok := index[name]
	return ok
}

// Validate returns ErrInvalidSlot when name is not canonical.
func Validate(name string) error {
	if !Valid(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, name)
	}
	return nil
}

// Normalize coerces a raw value into a storable slot value: empty or
// whitespace-only input becomes None, and overlong values are truncated to
// MaxValueLen. The second result reports whether truncation happened.
func Normalize(value string) (string, bool) {
	if strings.TrimSpace(value) == "" {
		return None, false
	}
	if len(value) > MaxValueLen {
		return value[:MaxValueLen], true
	}
	return value, false
}

// EmptyMap returns a slot map with every canonical slot set to None.
func EmptyMap() map[string]string {
	m := make(map[string]string, len(all))
	for _, s := range all {
		m[s] = None
	}
	return m
}

// FillMissing coerces missing or empty slots in m to None, in place.
func FillMissing(m map[string]string) {
	for _, s := range all {
		if v, ok := m[s]; !ok || strings.TrimSpace(v) == "" {
			m[s] = None
		}
	}
}

package outfit

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"wardrobe/internal/slots"
)

// DefaultPresetName is the preset auto-applied after a chat reset.
const DefaultPresetName = "default"

// Prompter asks an interactive question and returns the answer, or
// ok=false when the user cancels. UI hosts supply a dialog; tests supply a
// scripted implementation.
type Prompter interface {
	PromptForValue(question string) (value string, ok bool)
}

// Manager is a per-entity facade over the Store. A bot manager is scoped
// to a character; a user manager has no character dimension. The manager
// keeps the working slot map in memory and writes through to the store.
type Manager struct {
	store      *Store
	kind       Kind
	entityName string

	characterID string
	instanceID  string

	values   SlotMap
	prompter Prompter
	logger   *zap.Logger
}

// NewBotManager returns a manager for one character's outfit. entityName
// is the display name used in transition messages.
func NewBotManager(store *Store, characterID, entityName string, logger *zap.Logger) *Manager {
	return newManager(store, KindBot, characterID, entityName, logger)
}

// NewUserManager returns a manager for the user persona's outfit.
func NewUserManager(store *Store, entityName string, logger *zap.Logger) *Manager {
	return newManager(store, KindUser, "", entityName, logger)
}

func newManager(store *Store, kind Kind, characterID, entityName string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:       store,
		kind:        kind,
		characterID: characterID,
		entityName:  entityName,
		values:      slotMapFromDefaults(),
		logger:      logger,
	}
}

func slotMapFromDefaults() SlotMap {
	m := SlotMap{}
	slots.FillMissing(map[string]string(m))
	return m
}

// SetPrompter installs the interactive value source for ChangeOutfitItem.
func (m *Manager) SetPrompter(p Prompter) { m.prompter = p }

// SetEntityName updates the display name used in transition messages.
func (m *Manager) SetEntityName(name string) { m.entityName = name }

// EntityName returns the display name.
func (m *Manager) EntityName() string { return m.entityName }

// Kind returns the manager's entity kind.
func (m *Manager) Kind() Kind { return m.kind }

// CharacterID returns the scoped character id (bot managers only).
func (m *Manager) CharacterID() string { return m.characterID }

// InstanceID returns the active conversation instance id.
func (m *Manager) InstanceID() string { return m.instanceID }

// Value returns the current value of a slot, defaulting to None.
func (m *Manager) Value(slot string) string {
	if v, ok := m.values[slot]; ok && v != "" {
		return v
	}
	return slots.None
}

// Values returns a copy of the working slot map.
func (m *Manager) Values() SlotMap {
	return m.values.Clone()
}

// SetOutfitItem validates and normalizes value into slot, persists the
// outfit when the manager is fully addressed, and returns a human-readable
// transition message. Setting a slot to its existing value returns an
// empty message.
func (m *Manager) SetOutfitItem(slot, value string) (string, error) {
	if err := slots.Validate(slot); err != nil {
		return "", err
	}
	normalized, truncated := slots.Normalize(value)
	if truncated {
		m.logger.Warn("outfit value truncated",
			zap.String("slot", slot), zap.Int("max", slots.MaxValueLen))
	}

	previous := m.Value(slot)
	if previous == normalized {
		return "", nil
	}
	m.values[slot] = normalized
	m.saveOutfit()

	return m.transitionMessage(slot, previous, normalized), nil
}

func (m *Manager) transitionMessage(slot, previous, current string) string {
	entity := m.entityName
	if entity == "" {
		entity = string(m.kind)
	}
	switch {
	case previous == slots.None:
		return fmt.Sprintf("%s put on %s.", entity, current)
	case current == slots.None:
		return fmt.Sprintf("%s removed %s.", entity, previous)
	default:
		return fmt.Sprintf("%s changed from %s to %s.", entity, previous, current)
	}
}

// ChangeOutfitItem interactively replaces a slot value through the
// prompter. Returns the transition message, or "" when the user cancels
// or the value does not change.
func (m *Manager) ChangeOutfitItem(slot string) (string, error) {
	if err := slots.Validate(slot); err != nil {
		return "", err
	}
	if m.prompter == nil {
		return "", nil
	}
	entity := m.entityName
	if entity == "" {
		entity = string(m.kind)
	}
	question := fmt.Sprintf("What is %s wearing in the %s slot? (current: %s, answer %q to clear)",
		entity, slot, m.Value(slot), "remove")
	answer, ok := m.prompter.PromptForValue(question)
	if !ok {
		return "", nil
	}
	if strings.EqualFold(strings.TrimSpace(answer), "remove") {
		answer = slots.None
	}
	return m.SetOutfitItem(slot, answer)
}

// SetInstanceID switches the manager to another conversation instance.
// Current in-memory values are saved under the old id first, so unsaved
// edits are never dropped, then the new instance's values are loaded.
func (m *Manager) SetInstanceID(instanceID string) {
	if instanceID == m.instanceID {
		return
	}
	if m.instanceID != "" {
		m.saveOutfit()
	}
	m.instanceID = instanceID
	m.loadOutfit()
}

// addressed reports whether the manager can persist: bot managers need
// both a character id and an instance id, user managers an instance id.
func (m *Manager) addressed() bool {
	if m.instanceID == "" {
		return false
	}
	if m.kind == KindBot {
		return m.characterID != ""
	}
	return true
}

func (m *Manager) saveOutfit() {
	if !m.addressed() {
		return
	}
	if m.kind == KindBot {
		m.store.SetBotOutfit(m.characterID, m.instanceID, m.values)
		return
	}
	m.store.SetUserOutfit(m.instanceID, m.values)
}

func (m *Manager) loadOutfit() {
	m.values = slotMapFromDefaults()
	if !m.addressed() {
		return
	}
	var stored SlotMap
	if m.kind == KindBot {
		stored = m.store.GetBotOutfit(m.characterID, m.instanceID)
	} else {
		stored = m.store.GetUserOutfit(m.instanceID)
	}
	for slot, v := range stored {
		if slots.Valid(slot) && v != "" {
			m.values[slot] = v
		}
	}
}

// Reload discards in-memory values and re-reads the store.
func (m *Manager) Reload() { m.loadOutfit() }

// SavePreset snapshots the current slot values under name.
func (m *Manager) SavePreset(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("preset name is required")
	}
	if !m.addressed() {
		return fmt.Errorf("no active outfit instance")
	}
	m.store.SavePreset(m.kind, m.characterID, m.instanceID, name, m.values)
	return nil
}

// OverwritePreset is SavePreset for an existing name; it fails when the
// preset does not exist yet.
func (m *Manager) OverwritePreset(name string) error {
	if !m.addressed() {
		return fmt.Errorf("no active outfit instance")
	}
	if m.store.GetPreset(m.kind, m.characterID, m.instanceID, name) == nil {
		return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	return m.SavePreset(name)
}

// DeletePreset removes a named preset for the current instance.
func (m *Manager) DeletePreset(name string) error {
	if !m.addressed() {
		return fmt.Errorf("no active outfit instance")
	}
	return m.store.DeletePreset(m.kind, m.characterID, m.instanceID, name)
}

// Presets lists the presets saved for the current instance, sorted.
func (m *Manager) Presets() []string {
	if !m.addressed() {
		return nil
	}
	byName := m.store.GetPresets(m.kind, m.characterID, m.instanceID)
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPreset applies a named preset slot by slot. Only slots whose value
// actually differs are written and reported; slots absent from the preset
// are reset to None. Returns the transition messages of the changed slots.
func (m *Manager) LoadPreset(name string) ([]string, error) {
	if !m.addressed() {
		return nil, fmt.Errorf("no active outfit instance")
	}
	preset := m.store.GetPreset(m.kind, m.characterID, m.instanceID, name)
	if preset == nil {
		return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	return m.applySnapshot(preset), nil
}

// applySnapshot diffs the snapshot against current values and applies only
// actual changes. Slots missing from the snapshot count as None.
func (m *Manager) applySnapshot(snapshot SlotMap) []string {
	var messages []string
	for _, slot := range slots.All() {
		target, ok := snapshot[slot]
		if !ok || target == "" {
			target = slots.None
		}
		previous := m.Value(slot)
		if previous == target {
			continue
		}
		m.values[slot] = target
		messages = append(messages, m.transitionMessage(slot, previous, target))
	}
	if len(messages) > 0 {
		m.saveOutfit()
	}
	return messages
}

// SetPresetAsDefault copies a named preset to the default slot for the
// current instance.
func (m *Manager) SetPresetAsDefault(name string) error {
	preset := m.store.GetPreset(m.kind, m.characterID, m.instanceID, name)
	if preset == nil {
		return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	m.store.SavePreset(m.kind, m.characterID, m.instanceID, DefaultPresetName, preset)
	return nil
}

// LoadDefaultOutfit applies the default preset for the current instance.
func (m *Manager) LoadDefaultOutfit() ([]string, error) {
	return m.LoadPreset(DefaultPresetName)
}

// ApplyDefaultAfterReset applies the default preset after a chat clear.
// It first tries the default preset saved for instanceID (the current
// instance when empty), then falls back to the preset saved under the
// instance literally named "default". Reports whether anything applied;
// when false the caller should reload raw saved state instead.
func (m *Manager) ApplyDefaultAfterReset(instanceID string) bool {
	if instanceID == "" {
		instanceID = m.instanceID
	}
	if instanceID == "" {
		return false
	}
	preset := m.store.GetPreset(m.kind, m.characterID, instanceID, DefaultPresetName)
	if preset == nil {
		preset = m.store.GetPreset(m.kind, m.characterID, DefaultPresetName, DefaultPresetName)
	}
	if preset == nil {
		return false
	}
	m.instanceID = instanceID
	m.applySnapshot(preset)
	return true
}

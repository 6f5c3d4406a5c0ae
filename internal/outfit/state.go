// Package outfit holds the outfit state store and the per-entity manager
// facade on top of it. The store is the single source of truth; everything
// else reads through defensive copies and writes through mutation methods
// that notify subscribers synchronously.
package outfit

import "wardrobe/internal/slots"

// Kind distinguishes the two outfit owners.
type Kind string

const (
	KindBot  Kind = "bot"
	KindUser Kind = "user"
)

// SlotMap maps canonical slot names to worn item values.
type SlotMap map[string]string

// Clone returns an independent copy of m.
func (m SlotMap) Clone() SlotMap {
	if m == nil {
		return nil
	}
	out := make(SlotMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// BotInstance is the persisted unit for one bot conversation instance. It
// carries both the bot's and the user's slot maps for that conversation,
// plus the prompt-injection gate (default true when unset).
type BotInstance struct {
	Bot                    SlotMap `json:"bot"`
	User                   SlotMap `json:"user"`
	PromptInjectionEnabled *bool   `json:"promptInjectionEnabled,omitempty"`
}

func (b *BotInstance) clone() *BotInstance {
	if b == nil {
		return nil
	}
	out := &BotInstance{
		Bot:  b.Bot.Clone(),
		User: b.User.Clone(),
	}
	if b.PromptInjectionEnabled != nil {
		v := *b.PromptInjectionEnabled
		out.PromptInjectionEnabled = &v
	}
	return out
}

// injectionEnabled resolves the gate with its default.
func (b *BotInstance) injectionEnabled() bool {
	if b == nil || b.PromptInjectionEnabled == nil {
		return true
	}
	return *b.PromptInjectionEnabled
}

// Presets groups saved outfit snapshots. Bot presets key by
// "{characterId}_{instanceId}", user presets by instanceId alone.
type Presets struct {
	Bot  map[string]map[string]SlotMap `json:"bot"`
	User map[string]map[string]SlotMap `json:"user"`
}

func clonePresetTree(t map[string]map[string]SlotMap) map[string]map[string]SlotMap {
	if t == nil {
		return nil
	}
	out := make(map[string]map[string]SlotMap, len(t))
	for owner, byName := range t {
		inner := make(map[string]SlotMap, len(byName))
		for name, m := range byName {
			inner[name] = m.Clone()
		}
		out[owner] = inner
	}
	return out
}

// State is the full store state. It is also the persisted document shape.
type State struct {
	BotInstances  map[string]map[string]*BotInstance `json:"botInstances"`
	UserInstances map[string]SlotMap                 `json:"userInstances"`
	Presets       Presets                            `json:"presets"`
	Settings      map[string]any                     `json:"settings"`

	CurrentCharacterID string `json:"currentCharacterId"`
	CurrentChatID      string `json:"currentChatId"`
	CurrentInstanceID  string `json:"currentOutfitInstanceId"`

	PanelVisible bool              `json:"panelVisibility"`
	References   map[string]string `json:"references"`
}

// NewState returns an empty state with all containers allocated.
func NewState() *State {
	return &State{
		BotInstances:  map[string]map[string]*BotInstance{},
		UserInstances: map[string]SlotMap{},
		Presets: Presets{
			Bot:  map[string]map[string]SlotMap{},
			User: map[string]map[string]SlotMap{},
		},
		Settings:   map[string]any{},
		References: map[string]string{},
	}
}

// Clone returns a deep, independent copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{
		BotInstances:       make(map[string]map[string]*BotInstance, len(s.BotInstances)),
		UserInstances:      make(map[string]SlotMap, len(s.UserInstances)),
		Settings:           make(map[string]any, len(s.Settings)),
		CurrentCharacterID: s.CurrentCharacterID,
		CurrentChatID:      s.CurrentChatID,
		CurrentInstanceID:  s.CurrentInstanceID,
		PanelVisible:       s.PanelVisible,
		References:         make(map[string]string, len(s.References)),
	}
	for charID, byInstance := range s.BotInstances {
		inner := make(map[string]*BotInstance, len(byInstance))
		for instID, inst := range byInstance {
			inner[instID] = inst.clone()
		}
		out.BotInstances[charID] = inner
	}
	for instID, m := range s.UserInstances {
		out.UserInstances[instID] = m.Clone()
	}
	out.Presets.Bot = clonePresetTree(s.Presets.Bot)
	out.Presets.User = clonePresetTree(s.Presets.User)
	for k, v := range s.Settings {
		out.Settings[k] = v
	}
	for k, v := range s.References {
		out.References[k] = v
	}
	return out
}

// normalize allocates missing containers and coerces every loaded slot map
// to cover the canonical slot set. Called after loading persisted state.
func (s *State) normalize() {
	if s.BotInstances == nil {
		s.BotInstances = map[string]map[string]*BotInstance{}
	}
	if s.UserInstances == nil {
		s.UserInstances = map[string]SlotMap{}
	}
	if s.Presets.Bot == nil {
		s.Presets.Bot = map[string]map[string]SlotMap{}
	}
	if s.Presets.User == nil {
		s.Presets.User = map[string]map[string]SlotMap{}
	}
	if s.Settings == nil {
		s.Settings = map[string]any{}
	}
	if s.References == nil {
		s.References = map[string]string{}
	}
	for _, byInstance := range s.BotInstances {
		for _, inst := range byInstance {
			if inst == nil {
				continue
			}
			if inst.Bot == nil {
				inst.Bot = SlotMap{}
			}
			if inst.User == nil {
				inst.User = SlotMap{}
			}
			slots.FillMissing(inst.Bot)
			slots.FillMissing(inst.User)
		}
	}
	for instID, m := range s.UserInstances {
		if m == nil {
			m = SlotMap{}
			s.UserInstances[instID] = m
		}
		slots.FillMissing(m)
	}
}

package outfit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"wardrobe/internal/slots"
)

var (
	ErrNoPersistence  = errors.New("no persistence collaborator attached")
	ErrPresetNotFound = errors.New("preset not found")
)

// Persistence is the external storage collaborator. Save may be debounced
// by the implementation; Flush forces any pending write through before the
// caller reads the same data back.
type Persistence interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Listener receives a deep copy of the full state after every mutation.
type Listener func(State)

// Store is the single source of truth for outfit state. Every exported
// mutation is atomic under the store lock and is followed by a synchronous
// notification to all subscribers before the mutation call returns.
type Store struct {
	mu        sync.Mutex
	state     *State
	listeners map[int]Listener
	nextID    int
	persist   Persistence
	logger    *zap.Logger
}

// NewStore returns an empty store. persist may be nil, in which case
// SaveState and LoadState degrade to in-memory only and log the fact.
func NewStore(persist Persistence, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		state:     NewState(),
		listeners: map[int]Listener{},
		persist:   persist,
		logger:    logger,
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// notify fans the current state out to all listeners, outside the store
// lock so listeners can read back through the store. Each listener gets
// its own copy. A listener that panics is logged and skipped; it never
// breaks the fan-out for the others.
func (s *Store) notify() {
	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	snapshots := make([]*State, len(fns))
	for i := range fns {
		snapshots[i] = s.state.Clone()
	}
	s.mu.Unlock()

	for i, fn := range fns {
		id := ids[i]
		snapshot := *snapshots[i]
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("outfit store listener panicked",
						zap.Int("listener", id), zap.Any("panic", r))
				}
			}()
			fn(snapshot)
		}()
	}
}

// GetState returns a deep, independent copy of the full state.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state.Clone()
}

// GetBotOutfit returns a copy of the bot slot map for the instance, or an
// empty map when the instance does not exist yet. Callers default missing
// slots to None.
func (s *Store) GetBotOutfit(characterID, instanceID string) SlotMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst := s.botInstance(characterID, instanceID); inst != nil {
		return inst.Bot.Clone()
	}
	return SlotMap{}
}

// SetBotOutfit upserts the bot slot map for the instance, preserving any
// previously set prompt-injection flag.
func (s *Store) SetBotOutfit(characterID, instanceID string, m SlotMap) {
	s.mu.Lock()
	inst := s.ensureBotInstance(characterID, instanceID)
	inst.Bot = m.Clone()
	if inst.Bot == nil {
		inst.Bot = SlotMap{}
	}
	slots.FillMissing(inst.Bot)
	s.mu.Unlock()
	s.notify()
}

// GetUserOutfit returns a copy of the user slot map for the instance.
func (s *Store) GetUserOutfit(instanceID string) SlotMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.state.UserInstances[instanceID]; ok {
		return m.Clone()
	}
	return SlotMap{}
}

// SetUserOutfit upserts the user slot map for the instance.
func (s *Store) SetUserOutfit(instanceID string, m SlotMap) {
	s.mu.Lock()
	cp := m.Clone()
	if cp == nil {
		cp = SlotMap{}
	}
	slots.FillMissing(cp)
	s.state.UserInstances[instanceID] = cp
	s.mu.Unlock()
	s.notify()
}

// SetPromptInjection sets the prompt-injection gate for a bot instance.
func (s *Store) SetPromptInjection(characterID, instanceID string, enabled bool) {
	s.mu.Lock()
	inst := s.ensureBotInstance(characterID, instanceID)
	inst.PromptInjectionEnabled = &enabled
	s.mu.Unlock()
	s.notify()
}

// PromptInjectionEnabled reports the gate for a bot instance; instances
// that were never configured default to true.
func (s *Store) PromptInjectionEnabled(characterID, instanceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botInstance(characterID, instanceID).injectionEnabled()
}

// presetOwnerKey builds the composite preset key.
func presetOwnerKey(kind Kind, ownerKey, instanceID string) string {
	if kind == KindBot {
		return fmt.Sprintf("%s_%s", ownerKey, instanceID)
	}
	return instanceID
}

// SavePreset stores a named snapshot. ownerKey is the characterId for bot
// presets and ignored for user presets.
func (s *Store) SavePreset(kind Kind, ownerKey, instanceID, name string, m SlotMap) {
	s.mu.Lock()
	tree := s.presetTree(kind)
	key := presetOwnerKey(kind, ownerKey, instanceID)
	if tree[key] == nil {
		tree[key] = map[string]SlotMap{}
	}
	tree[key][name] = m.Clone()
	s.mu.Unlock()
	s.notify()
}

// DeletePreset removes a named snapshot. Owner keys left without presets
// are pruned. Returns ErrPresetNotFound when the preset does not exist.
func (s *Store) DeletePreset(kind Kind, ownerKey, instanceID, name string) error {
	s.mu.Lock()
	tree := s.presetTree(kind)
	key := presetOwnerKey(kind, ownerKey, instanceID)
	byName, ok := tree[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrPresetNotFound, key, name)
	}
	if _, ok := byName[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrPresetNotFound, key, name)
	}
	delete(byName, name)
	if len(byName) == 0 {
		delete(tree, key)
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// GetPreset returns a copy of one preset, or nil when absent.
func (s *Store) GetPreset(kind Kind, ownerKey, instanceID, name string) SlotMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := presetOwnerKey(kind, ownerKey, instanceID)
	if byName, ok := s.presetTree(kind)[key]; ok {
		return byName[name].Clone()
	}
	return nil
}

// GetPresets returns copies of all presets saved for one instance.
func (s *Store) GetPresets(kind Kind, ownerKey, instanceID string) map[string]SlotMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := presetOwnerKey(kind, ownerKey, instanceID)
	byName, ok := s.presetTree(kind)[key]
	if !ok {
		return map[string]SlotMap{}
	}
	out := make(map[string]SlotMap, len(byName))
	for name, m := range byName {
		out[name] = m.Clone()
	}
	return out
}

// GetAllPresets returns a copy of the whole preset tree for one kind.
func (s *Store) GetAllPresets(kind Kind) map[string]map[string]SlotMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePresetTree(s.presetTree(kind))
}

// SetSetting stores a flat setting and notifies.
func (s *Store) SetSetting(key string, value any) {
	s.mu.Lock()
	s.state.Settings[key] = value
	s.mu.Unlock()
	s.notify()
}

// GetSetting returns a setting value and whether it was present.
func (s *Store) GetSetting(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state.Settings[key]
	return v, ok
}

// SetCurrentContext records the active character, chat, and instance ids.
func (s *Store) SetCurrentContext(characterID, chatID, instanceID string) {
	s.mu.Lock()
	s.state.CurrentCharacterID = characterID
	s.state.CurrentChatID = chatID
	s.state.CurrentInstanceID = instanceID
	s.mu.Unlock()
	s.notify()
}

// CurrentContext returns the active character, chat, and instance ids.
func (s *Store) CurrentContext() (characterID, chatID, instanceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentCharacterID, s.state.CurrentChatID, s.state.CurrentInstanceID
}

// SetPanelVisible records panel visibility for the UI collaborator.
func (s *Store) SetPanelVisible(visible bool) {
	s.mu.Lock()
	s.state.PanelVisible = visible
	s.mu.Unlock()
	s.notify()
}

// KnownValues collects every non-None item value recorded for a character
// across all of its instances and presets. Feeds instance-ID derivation.
func (s *Store) KnownValues(characterID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	add := func(m SlotMap) {
		for _, v := range m {
			if v == "" || v == slots.None {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, inst := range s.state.BotInstances[characterID] {
		if inst != nil {
			add(inst.Bot)
			add(inst.User)
		}
	}
	prefix := characterID + "_"
	for key, byName := range s.state.Presets.Bot {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		for _, m := range byName {
			add(m)
		}
	}
	sort.Strings(out)
	return out
}

// CleanupInstances drops bot instances of a character whose instance id is
// not in keep. Used when stale conversation ids accumulate.
func (s *Store) CleanupInstances(characterID string, keep []string) int {
	s.mu.Lock()
	byInstance, ok := s.state.BotInstances[characterID]
	if !ok {
		s.mu.Unlock()
		return 0
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	removed := 0
	for instID := range byInstance {
		if _, ok := keepSet[instID]; !ok {
			delete(byInstance, instID)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		s.notify()
	}
	return removed
}

// WipeAll resets bot instances, user instances, and presets. Settings and
// the current context survive. One notification for the whole wipe.
func (s *Store) WipeAll() {
	s.mu.Lock()
	current := s.state
	s.state = NewState()
	s.state.Settings = current.Settings
	s.state.CurrentCharacterID = current.CurrentCharacterID
	s.state.CurrentChatID = current.CurrentChatID
	s.state.CurrentInstanceID = current.CurrentInstanceID
	s.state.PanelVisible = current.PanelVisible
	s.mu.Unlock()
	s.notify()
}

// SaveState writes the current state through the persistence collaborator.
// Without one the store stays in-memory only; that is logged, not surfaced
// as an error to mutation paths.
func (s *Store) SaveState(ctx context.Context) error {
	s.mu.Lock()
	snapshot := s.state.Clone()
	s.mu.Unlock()
	if s.persist == nil {
		s.logger.Warn("outfit state not persisted", zap.Error(ErrNoPersistence))
		return nil
	}
	if err := s.persist.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("saving outfit state: %w", err)
	}
	return nil
}

// LoadState replaces in-memory state with the persisted document and
// notifies once. A missing document leaves an empty state.
func (s *Store) LoadState(ctx context.Context) error {
	if s.persist == nil {
		s.logger.Warn("outfit state not loaded", zap.Error(ErrNoPersistence))
		return nil
	}
	loaded, err := s.persist.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading outfit state: %w", err)
	}
	if loaded == nil {
		loaded = NewState()
	}
	loaded.normalize()
	s.mu.Lock()
	s.state = loaded
	s.mu.Unlock()
	s.notify()
	return nil
}

// Flush forces any debounced persistence write to complete. Needed before
// operations that immediately read the same data back, e.g. chat resets.
func (s *Store) Flush(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Flush(ctx); err != nil {
		return fmt.Errorf("flushing outfit state: %w", err)
	}
	return nil
}

func (s *Store) presetTree(kind Kind) map[string]map[string]SlotMap {
	if kind == KindBot {
		return s.state.Presets.Bot
	}
	return s.state.Presets.User
}

func (s *Store) botInstance(characterID, instanceID string) *BotInstance {
	if byInstance, ok := s.state.BotInstances[characterID]; ok {
		return byInstance[instanceID]
	}
	return nil
}

// ensureBotInstance lazily creates the instance with all-None slot maps.
func (s *Store) ensureBotInstance(characterID, instanceID string) *BotInstance {
	byInstance, ok := s.state.BotInstances[characterID]
	if !ok {
		byInstance = map[string]*BotInstance{}
		s.state.BotInstances[characterID] = byInstance
	}
	inst, ok := byInstance[instanceID]
	if !ok {
		inst = &BotInstance{Bot: SlotMap{}, User: SlotMap{}}
		slots.FillMissing(inst.Bot)
		slots.FillMissing(inst.User)
		byInstance[instanceID] = inst
	}
	return inst
}

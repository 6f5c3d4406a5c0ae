package macro

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"wardrobe/internal/chat"
	"wardrobe/internal/instanceid"
	"wardrobe/internal/outfit"
	"wardrobe/internal/slots"
)

// Engine resolves placeholders against live outfit state. Resolution
// never propagates an error into the surrounding prompt-construction
// pipeline: anything that goes wrong resolves to None.
type Engine struct {
	store   *outfit.Store
	session chat.Session
	cache   *resultCache
	group   singleflight.Group
	logger  *zap.Logger
}

// NewEngine builds an engine over the store and session. ttl and size
// fall back to DefaultTTL and a default cache size when non-positive.
// Wiring code should subscribe InvalidateAll (or Invalidate) to store
// mutations so cached values never outlive an outfit change.
func NewEngine(store *outfit.Store, session chat.Session, size int, ttl time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:   store,
		session: session,
		cache:   newResultCache(size, ttl),
		logger:  logger,
	}
}

// ResolveText replaces every recognized placeholder in text.
func (e *Engine) ResolveText(text string) string {
	placeholders := Extract(text)
	if len(placeholders) == 0 {
		return text
	}
	var b strings.Builder
	pos := 0
	for _, p := range placeholders {
		b.WriteString(text[pos:p.Start])
		b.WriteString(e.Resolve(p))
		pos = p.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

// Resolve returns the live value for one placeholder.
func (e *Engine) Resolve(p Placeholder) (value string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("macro resolution panicked",
				zap.String("macro", p.Full), zap.Any("panic", r))
			value = slots.None
		}
	}()

	switch p.Kind {
	case KindCharName:
		return e.charName()
	case KindUserName:
		return e.userName()
	case KindBareName:
		return p.Name
	}

	key := e.cacheKey(p)
	if cached, ok := e.cache.get(key); ok {
		return cached
	}
	value = e.resolveSlot(p)
	e.cache.add(key, value)
	return value
}

// InvalidateAll drops every cached value. Subscribed to store mutations.
func (e *Engine) InvalidateAll() {
	e.cache.purge()
}

// Invalidate drops cached values mentioning the character, instance, or
// slot. Finer-grained alternative to InvalidateAll.
func (e *Engine) Invalidate(characterID, instanceID, slot string) {
	e.cache.invalidate(characterID, instanceID, slot)
}

func (e *Engine) cacheKey(p Placeholder) string {
	charID, _, instID := e.store.CurrentContext()
	return fmt.Sprintf("%s|%s|%s|%s|%s", p.Kind, p.Slot, p.Name, charID, instID)
}

// charName prefers the most recent non-user speaker in the transcript and
// falls back to the session's character name.
func (e *Engine) charName() string {
	if name := chat.LastSpeakerName(e.session.Messages(), false); name != "" {
		return name
	}
	return e.session.CharacterName()
}

func (e *Engine) userName() string {
	if name := chat.LastSpeakerName(e.session.Messages(), true); name != "" {
		return name
	}
	return e.session.PersonaName()
}

func (e *Engine) resolveSlot(p Placeholder) string {
	switch p.Kind {
	case KindCharSlot:
		charID := e.session.CharacterID()
		instID := e.currentInstanceID(charID)
		if instID == "" {
			return slots.None
		}
		return e.botSlotValue(charID, instID, p.Slot)

	case KindUserSlot:
		charID := e.session.CharacterID()
		instID := e.currentInstanceID(charID)
		if instID == "" {
			return slots.None
		}
		if !e.store.PromptInjectionEnabled(charID, instID) {
			return slots.None
		}
		if v := e.store.GetUserOutfit(instID)[p.Slot]; v != "" {
			return v
		}
		return slots.None

	case KindNamedSlot:
		charID := e.session.CharacterIDByName(p.Name)
		if charID == "" {
			return slots.None
		}
		instID := e.instanceForCharacter(charID)
		if instID == "" {
			return slots.None
		}
		return e.botSlotValue(charID, instID, p.Slot)
	}
	return slots.None
}

func (e *Engine) botSlotValue(charID, instID, slot string) string {
	if !e.store.PromptInjectionEnabled(charID, instID) {
		return slots.None
	}
	if v := e.store.GetBotOutfit(charID, instID)[slot]; v != "" {
		return v
	}
	return slots.None
}

// currentInstanceID returns the store-cached instance id, deriving it
// from the chat's first bot message when unset. Concurrent derivations
// for the same character collapse into one.
func (e *Engine) currentInstanceID(charID string) string {
	if _, _, instID := e.store.CurrentContext(); instID != "" {
		return instID
	}
	first, ok := chat.FirstBotMessage(e.session.Messages())
	if !ok {
		return ""
	}
	v, _, _ := e.group.Do(charID, func() (any, error) {
		gen := &instanceid.Generator{Known: func() []string {
			return e.store.KnownValues(charID)
		}}
		id := gen.Derive(first.Text)
		e.store.SetCurrentContext(charID, e.session.ChatID(), id)
		return id, nil
	})
	id, _ := v.(string)
	return id
}

// instanceForCharacter picks the instance to read for a named character
// that is not necessarily the active one: the active instance when that
// character has state for it, otherwise the character's only instance.
func (e *Engine) instanceForCharacter(charID string) string {
	state := e.store.GetState()
	byInstance := state.BotInstances[charID]
	if len(byInstance) == 0 {
		return ""
	}
	if _, _, instID := e.store.CurrentContext(); instID != "" {
		if _, ok := byInstance[instID]; ok {
			return instID
		}
	}
	if len(byInstance) == 1 {
		for instID := range byInstance {
			return instID
		}
	}
	return ""
}

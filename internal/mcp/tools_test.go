package mcp

import (
	"context"
	"testing"

	"wardrobe/internal/outfit"
)

func newTestServer(t *testing.T) (*Server, *outfit.Store) {
	t.Helper()
	store := outfit.NewStore(nil, nil)
	return NewServer(store, nil, "test", nil), store
}

func TestOutfitTools(t *testing.T) {
	ctx := context.Background()

	t.Run("set then get round trip", func(t *testing.T) {
		s, _ := newTestServer(t)
		_, set, err := s.handleSetOutfitItem(ctx, nil, SetOutfitItemInput{
			CharacterID: "char-1",
			InstanceID:  "inst-1",
			Slot:        "topwear",
			Value:       "Red Shirt",
		})
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		if set.Message == "" || set.Slots["topwear"] != "Red Shirt" {
			t.Fatalf("set output: %#v", set)
		}

		_, got, err := s.handleGetOutfit(ctx, nil, GetOutfitInput{
			CharacterID: "char-1",
			InstanceID:  "inst-1",
		})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Slots["topwear"] != "Red Shirt" || !got.PromptInjectionEnabled {
			t.Fatalf("get output: %#v", got)
		}
	})

	t.Run("remove clears the slot", func(t *testing.T) {
		s, store := newTestServer(t)
		store.SetBotOutfit("char-1", "inst-1", outfit.SlotMap{"headwear": "Cap"})
		_, out, err := s.handleRemoveOutfitItem(ctx, nil, RemoveOutfitItemInput{
			CharacterID: "char-1",
			InstanceID:  "inst-1",
			Slot:        "headwear",
		})
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if out.Slots["headwear"] != "None" {
			t.Fatalf("output: %#v", out)
		}
	})

	t.Run("character name feeds the transition message", func(t *testing.T) {
		s, _ := newTestServer(t)
		_, out, err := s.handleSetOutfitItem(ctx, nil, SetOutfitItemInput{
			CharacterID:   "char-1",
			CharacterName: "Alice",
			InstanceID:    "inst-1",
			Slot:          "topwear",
			Value:         "Red Shirt",
		})
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		if out.Message != "Alice put on Red Shirt." {
			t.Fatalf("message: %q", out.Message)
		}
	})

	t.Run("message falls back to the character id", func(t *testing.T) {
		s, _ := newTestServer(t)
		_, out, err := s.handleSetOutfitItem(ctx, nil, SetOutfitItemInput{
			CharacterID: "char-1",
			InstanceID:  "inst-1",
			Slot:        "topwear",
			Value:       "Red Shirt",
		})
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		if out.Message != "char-1 put on Red Shirt." {
			t.Fatalf("message: %q", out.Message)
		}
	})

	t.Run("bot outfit requires character id", func(t *testing.T) {
		s, _ := newTestServer(t)
		if _, _, err := s.handleGetOutfit(ctx, nil, GetOutfitInput{InstanceID: "inst-1"}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("user outfit needs no character id", func(t *testing.T) {
		s, _ := newTestServer(t)
		_, out, err := s.handleSetOutfitItem(ctx, nil, SetOutfitItemInput{
			Kind:       "user",
			InstanceID: "inst-1",
			Slot:       "footwear",
			Value:      "Boots",
		})
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		if out.Slots["footwear"] != "Boots" {
			t.Fatalf("output: %#v", out)
		}
	})

	t.Run("invalid slot is rejected", func(t *testing.T) {
		s, _ := newTestServer(t)
		_, _, err := s.handleSetOutfitItem(ctx, nil, SetOutfitItemInput{
			CharacterID: "char-1",
			InstanceID:  "inst-1",
			Slot:        "spacesuit",
			Value:       "x",
		})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSlotAndPresetTools(t *testing.T) {
	ctx := context.Background()

	t.Run("list_slots enumerates both families", func(t *testing.T) {
		s, _ := newTestServer(t)
		_, out, err := s.handleListSlots(ctx, nil, ListSlotsInput{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(out.Clothing) != 7 || len(out.Accessories) != 12 {
			t.Fatalf("output: %#v", out)
		}
	})

	t.Run("preset lifecycle", func(t *testing.T) {
		s, store := newTestServer(t)
		store.SetBotOutfit("char-1", "inst-1", outfit.SlotMap{"topwear": "Vest"})

		addr := SavePresetInput{CharacterID: "char-1", InstanceID: "inst-1", Name: "casual"}
		if _, _, err := s.handleSavePreset(ctx, nil, addr); err != nil {
			t.Fatalf("save: %v", err)
		}
		if _, _, err := s.handleSavePreset(ctx, nil, addr); err == nil {
			t.Fatal("duplicate save should fail without overwrite")
		}
		addr.Overwrite = true
		if _, _, err := s.handleSavePreset(ctx, nil, addr); err != nil {
			t.Fatalf("overwrite: %v", err)
		}

		_, list, err := s.handleListPresets(ctx, nil, ListPresetsInput{
			CharacterID: "char-1", InstanceID: "inst-1",
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list.Presets) != 1 || list.Presets[0] != "casual" {
			t.Fatalf("presets: %#v", list)
		}

		store.SetBotOutfit("char-1", "inst-1", outfit.SlotMap{"topwear": "Coat"})
		_, loaded, err := s.handleLoadPreset(ctx, nil, LoadPresetInput{
			CharacterID: "char-1", InstanceID: "inst-1", Name: "casual",
		})
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.Slots["topwear"] != "Vest" {
			t.Fatalf("loaded: %#v", loaded)
		}

		if _, _, err := s.handleDeletePreset(ctx, nil, DeletePresetInput{
			CharacterID: "char-1", InstanceID: "inst-1", Name: "casual",
		}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, _, err := s.handleLoadPreset(ctx, nil, LoadPresetInput{
			CharacterID: "char-1", InstanceID: "inst-1", Name: "casual",
		}); err == nil {
			t.Fatal("expected load of deleted preset to fail")
		}
	})
}

func TestUtilityTools(t *testing.T) {
	ctx := context.Background()

	t.Run("derive_instance_id is deterministic", func(t *testing.T) {
		s, _ := newTestServer(t)
		_, a, err := s.handleDeriveInstanceID(ctx, nil, DeriveInstanceIDInput{Text: "Welcome."})
		if err != nil {
			t.Fatalf("derive: %v", err)
		}
		_, b, _ := s.handleDeriveInstanceID(ctx, nil, DeriveInstanceIDInput{Text: "Welcome."})
		if a.InstanceID != b.InstanceID || len(a.InstanceID) != 16 {
			t.Fatalf("ids %q %q", a.InstanceID, b.InstanceID)
		}
	})

	t.Run("resolve_text without an engine errors", func(t *testing.T) {
		s, _ := newTestServer(t)
		if _, _, err := s.handleResolveText(ctx, nil, ResolveTextInput{Text: "{{char}}"}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("wipe_all requires confirmation", func(t *testing.T) {
		s, store := newTestServer(t)
		store.SetBotOutfit("char-1", "inst-1", outfit.SlotMap{"topwear": "Vest"})
		if _, _, err := s.handleWipeAll(ctx, nil, WipeAllInput{}); err == nil {
			t.Fatal("expected error without confirm")
		}
		_, out, err := s.handleWipeAll(ctx, nil, WipeAllInput{Confirm: true})
		if err != nil {
			t.Fatalf("wipe: %v", err)
		}
		if !out.Wiped {
			t.Fatalf("output: %#v", out)
		}
		if len(store.GetState().BotInstances) != 0 {
			t.Fatal("state not wiped")
		}
	})
}

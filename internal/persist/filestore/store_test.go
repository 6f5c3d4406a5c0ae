package filestore

import (
	"context"
	"path/filepath"
	"testing"

	"wardrobe/internal/outfit"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file loads as nil", func(t *testing.T) {
		s, err := New(filepath.Join(t.TempDir(), "state.json"))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		state, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if state != nil {
			t.Fatalf("expected nil state, got %#v", state)
		}
	})

	t.Run("save then load round trips", func(t *testing.T) {
		s, err := New(filepath.Join(t.TempDir(), "state.json"))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		state := outfit.NewState()
		state.CurrentCharacterID = "char1"
		state.BotInstances["char1"] = map[string]*outfit.BotInstance{
			"inst1": {Bot: outfit.SlotMap{"topwear": "Shirt"}, User: outfit.SlotMap{}},
		}
		if err := s.Save(ctx, state); err != nil {
			t.Fatalf("save: %v", err)
		}
		loaded, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.CurrentCharacterID != "char1" {
			t.Fatalf("got %#v", loaded)
		}
		if loaded.BotInstances["char1"]["inst1"].Bot["topwear"] != "Shirt" {
			t.Fatalf("got %#v", loaded.BotInstances)
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")
		s, err := New(path)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := s.Save(ctx, outfit.NewState()); err != nil {
			t.Fatalf("save: %v", err)
		}
	})
}

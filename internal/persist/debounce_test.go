package persist

import (
	"context"
	"sync"
	"testing"
	"time"

	"wardrobe/internal/outfit"
	"wardrobe/internal/persist/filestore"
)

type countingPersistence struct {
	mu    sync.Mutex
	saves int
	last  *outfit.State
}

func (p *countingPersistence) Load(ctx context.Context) (*outfit.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, nil
}

func (p *countingPersistence) Save(ctx context.Context, s *outfit.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	p.last = s
	return nil
}

func (p *countingPersistence) Flush(ctx context.Context) error { return nil }
func (p *countingPersistence) Close(ctx context.Context) error { return nil }

func (p *countingPersistence) counts() (int, *outfit.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves, p.last
}

func TestDebounced(t *testing.T) {
	ctx := context.Background()

	t.Run("coalesces a burst into one write", func(t *testing.T) {
		inner := &countingPersistence{}
		d := NewDebounced(inner, time.Hour, nil)

		for i := 0; i < 5; i++ {
			state := outfit.NewState()
			state.CurrentChatID = "chat"
			if err := d.Save(ctx, state); err != nil {
				t.Fatalf("save: %v", err)
			}
		}
		if saves, _ := inner.counts(); saves != 0 {
			t.Fatalf("wrote before flush: %d", saves)
		}

		if err := d.Flush(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		saves, last := inner.counts()
		if saves != 1 {
			t.Fatalf("expected one coalesced write, got %d", saves)
		}
		if last.CurrentChatID != "chat" {
			t.Fatalf("wrong snapshot written: %#v", last)
		}
	})

	t.Run("flush without pending is a no-op", func(t *testing.T) {
		inner := &countingPersistence{}
		d := NewDebounced(inner, time.Hour, nil)
		if err := d.Flush(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		if saves, _ := inner.counts(); saves != 0 {
			t.Fatalf("spurious write: %d", saves)
		}
	})

	t.Run("load flushes pending first", func(t *testing.T) {
		inner := &countingPersistence{}
		d := NewDebounced(inner, time.Hour, nil)
		state := outfit.NewState()
		state.CurrentChatID = "pending"
		if err := d.Save(ctx, state); err != nil {
			t.Fatalf("save: %v", err)
		}
		loaded, err := d.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded == nil || loaded.CurrentChatID != "pending" {
			t.Fatalf("load observed stale state: %#v", loaded)
		}
	})

	t.Run("timer writes eventually", func(t *testing.T) {
		inner := &countingPersistence{}
		d := NewDebounced(inner, 10*time.Millisecond, nil)
		if err := d.Save(ctx, outfit.NewState()); err != nil {
			t.Fatalf("save: %v", err)
		}
		deadline := time.Now().Add(2 * time.Second)
		for {
			if saves, _ := inner.counts(); saves == 1 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("timer never fired")
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	t.Run("store mutations survive a restart via a save subscriber", func(t *testing.T) {
		path := t.TempDir() + "/outfits.json"

		inner, err := filestore.New(path)
		if err != nil {
			t.Fatalf("filestore: %v", err)
		}
		d := NewDebounced(inner, time.Hour, nil)
		store := outfit.NewStore(d, nil)
		if err := store.LoadState(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}
		store.Subscribe(func(outfit.State) {
			if err := store.SaveState(ctx); err != nil {
				t.Errorf("save: %v", err)
			}
		})

		store.SetBotOutfit("char-1", "inst-1", outfit.SlotMap{"topwear": "Red Shirt"})
		if err := store.Flush(ctx); err != nil {
			t.Fatalf("flush: %v", err)
		}
		if err := d.Close(ctx); err != nil {
			t.Fatalf("close: %v", err)
		}

		reopened, err := filestore.New(path)
		if err != nil {
			t.Fatalf("filestore: %v", err)
		}
		restarted := outfit.NewStore(NewDebounced(reopened, time.Hour, nil), nil)
		if err := restarted.LoadState(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}
		if got := restarted.GetBotOutfit("char-1", "inst-1"); got["topwear"] != "Red Shirt" {
			t.Fatalf("mutation lost across restart: %#v", got)
		}
	})

	t.Run("close flushes", func(t *testing.T) {
		inner := &countingPersistence{}
		d := NewDebounced(inner, time.Hour, nil)
		if err := d.Save(ctx, outfit.NewState()); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := d.Close(ctx); err != nil {
			t.Fatalf("close: %v", err)
		}
		if saves, _ := inner.counts(); saves != 1 {
			t.Fatalf("close did not flush: %d", saves)
		}
	})
}

package chat

import "testing"

func TestBus(t *testing.T) {
	t.Run("delivers in subscription order", func(t *testing.T) {
		b := NewBus(nil)
		var order []int
		b.On(EventChatChanged, func(Event) { order = append(order, 1) })
		b.On(EventChatChanged, func(Event) { order = append(order, 2) })
		b.Emit(Event{Type: EventChatChanged})
		if len(order) != 2 || order[0] != 1 || order[1] != 2 {
			t.Fatalf("order: %#v", order)
		}
	})

	t.Run("off stops delivery", func(t *testing.T) {
		b := NewBus(nil)
		calls := 0
		off := b.On(EventAppReady, func(Event) { calls++ })
		b.Emit(Event{Type: EventAppReady})
		off()
		b.Emit(Event{Type: EventAppReady})
		if calls != 1 {
			t.Fatalf("calls: %d", calls)
		}
	})

	t.Run("panicking handler does not break others", func(t *testing.T) {
		b := NewBus(nil)
		second := 0
		b.On(EventMessageReceived, func(Event) { panic("boom") })
		b.On(EventMessageReceived, func(Event) { second++ })
		b.Emit(Event{Type: EventMessageReceived, Message: &Message{Text: "hi"}})
		if second != 1 {
			t.Fatalf("second handler starved: %d", second)
		}
	})

	t.Run("event types are independent", func(t *testing.T) {
		b := NewBus(nil)
		calls := 0
		b.On(EventChatChanged, func(Event) { calls++ })
		b.Emit(Event{Type: EventAppReady})
		if calls != 0 {
			t.Fatalf("wrong event delivered: %d", calls)
		}
	})
}

func TestTranscriptHelpers(t *testing.T) {
	messages := []Message{
		{Text: "sys", IsSystem: true, Name: "Narrator"},
		{Text: "hi", IsUser: true, Name: "Traveler"},
		{Text: "hello", Name: "Alice"},
		{Text: "more", IsUser: true, Name: "Traveler"},
	}

	t.Run("first bot message skips system and user", func(t *testing.T) {
		m, ok := FirstBotMessage(messages)
		if !ok || m.Text != "hello" {
			t.Fatalf("got %#v ok=%v", m, ok)
		}
	})

	t.Run("no bot message", func(t *testing.T) {
		if _, ok := FirstBotMessage(messages[:2]); ok {
			t.Fatal("expected ok=false")
		}
	})

	t.Run("last speaker names", func(t *testing.T) {
		if got := LastSpeakerName(messages, false); got != "Alice" {
			t.Fatalf("bot speaker %q", got)
		}
		if got := LastSpeakerName(messages, true); got != "Traveler" {
			t.Fatalf("user speaker %q", got)
		}
	})
}

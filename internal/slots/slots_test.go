package slots

import (
	"errors"
	"strings"
	"testing"
)

func TestSlotSet(t *testing.T) {
	t.Run("fixed sizes", func(t *testing.T) {
		if got := len(Clothing()); got != 7 {
			t.Fatalf("clothing slots: %d", got)
		}
		if got := len(Accessories()); got != 12 {
			t.Fatalf("accessory slots: %d", got)
		}
		if got := len(All()); got != 19 {
			t.Fatalf("all slots: %d", got)
		}
	})

	t.Run("clothing precedes accessories", func(t *testing.T) {
		all := All()
		if all[0] != "headwear" || all[7] != "head-accessory" {
			t.Fatalf("order: %v", all)
		}
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		All()[0] = "mutated"
		if All()[0] != "headwear" {
			t.Fatal("internal slice leaked")
		}
	})

	t.Run("validation", func(t *testing.T) {
		for _, s := range All() {
			if !Valid(s) {
				t.Errorf("%q should be valid", s)
			}
		}
		for _, s := range []string{"", "Headwear", "spacesuit", "head_accessory"} {
			if Valid(s) {
				t.Errorf("%q should be invalid", s)
			}
			if err := Validate(s); !errors.Is(err, ErrInvalidSlot) {
				t.Errorf("Validate(%q) = %v", s, err)
			}
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Run("empty becomes the sentinel", func(t *testing.T) {
		for _, in := range []string{"", "   ", "\t\n"} {
			got, truncated := Normalize(in)
			if got != None || truncated {
				t.Errorf("Normalize(%q) = %q, %v", in, got, truncated)
			}
		}
	})

	t.Run("plain values pass through", func(t *testing.T) {
		got, truncated := Normalize("Red Shirt")
		if got != "Red Shirt" || truncated {
			t.Fatalf("got %q, %v", got, truncated)
		}
	})

	t.Run("overlong values truncate", func(t *testing.T) {
		got, truncated := Normalize(strings.Repeat("x", MaxValueLen+10))
		if len(got) != MaxValueLen || !truncated {
			t.Fatalf("len %d, truncated %v", len(got), truncated)
		}
	})
}

func TestMaps(t *testing.T) {
	t.Run("empty map covers every slot", func(t *testing.T) {
		m := EmptyMap()
		if len(m) != len(All()) {
			t.Fatalf("size %d", len(m))
		}
		for slot, v := range m {
			if v != None {
				t.Errorf("%s = %q", slot, v)
			}
		}
	})

	t.Run("fill missing preserves real values", func(t *testing.T) {
		m := map[string]string{"topwear": "Vest", "footwear": " "}
		FillMissing(m)
		if m["topwear"] != "Vest" {
			t.Fatalf("topwear: %q", m["topwear"])
		}
		if m["footwear"] != None || m["headwear"] != None {
			t.Fatalf("fill: %#v", m)
		}
	})
}

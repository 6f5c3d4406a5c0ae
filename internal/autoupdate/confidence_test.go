package autoupdate

import (
	"math"
	"testing"
)

func TestConfidence(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		want      float64
	}{
		{"fully valid wear", `outfit-system_wear_topwear("Red Shirt")`, 1.0},
		{"fully valid remove without value", `outfit-system_remove_headwear()`, 1.0},
		{"hallucinated slot", `outfit-system_wear_spacesuit("Helmet")`, 0.8},
		{"wear with empty value", `outfit-system_wear_topwear()`, 0.9},
		{"unparseable", `outfit-system_wear_("x")`, 0},
		{"bogus action", `outfit-system_teleport_topwear("x")`, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, got := Confidence(c.candidate)
			if math.Abs(got-c.want) > 1e-9 {
				t.Fatalf("score %v, want %v", got, c.want)
			}
		})
	}
}

func TestNormalizeAction(t *testing.T) {
	cases := map[string]string{
		"wear":    "wear",
		"remove":  "remove",
		"change":  "change",
		"replace": "change",
		"unequip": "remove",
	}
	for in, want := range cases {
		if got := normalizeAction(in); got != want {
			t.Errorf("normalizeAction(%q) = %q, want %q", in, got, want)
		}
	}
}

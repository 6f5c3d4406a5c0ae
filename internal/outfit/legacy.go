package outfit

import (
	"strings"

	"wardrobe/internal/slots"
)

// legacyPrefix is the flat global-variable namespace the old storage
// scheme used: OUTFIT_INST_{characterId}_{instanceId}_{slot}.
const legacyPrefix = "OUTFIT_INST_"

// ImportLegacy reads the old flat-variable outfit scheme and writes it
// into the store's canonical character/instance addressing. It is a
// one-shot migration input, never a live code path. Returns the number of
// slot values imported; unparseable keys and invalid slots are skipped.
//
// Slot names never contain underscores, so the trailing two underscore
// segments of a key are unambiguous. Character and instance ids produced
// by this system are hex strings without underscores; keys whose character
// part still contains an underscore are legacy name-keyed entries, kept
// as-is since the name was the only key the old scheme had.
func ImportLegacy(store *Store, vars map[string]string) int {
	imported := 0
	for key, value := range vars {
		if !strings.HasPrefix(key, legacyPrefix) {
			continue
		}
		rest := key[len(legacyPrefix):]

		slotSep := strings.LastIndexByte(rest, '_')
		if slotSep <= 0 {
			continue
		}
		slot := rest[slotSep+1:]
		if !slots.Valid(slot) {
			continue
		}

		rest = rest[:slotSep]
		instSep := strings.LastIndexByte(rest, '_')
		if instSep <= 0 {
			continue
		}
		characterID := rest[:instSep]
		instanceID := rest[instSep+1:]
		if characterID == "" || instanceID == "" {
			continue
		}

		normalized, _ := slots.Normalize(value)
		current := store.GetBotOutfit(characterID, instanceID)
		slots.FillMissing(current)
		current[slot] = normalized
		store.SetBotOutfit(characterID, instanceID, current)
		imported++
	}
	return imported
}

package model

import (
	"encoding/json"
	"sort"
)

// MarkerSet records reminder dedup markers: once a reminder has been
// delivered for an entity's threshold date, the date is added here and
// the reminder never fires again for that date. Markers are only ever
// added, never removed, so a union merge is always safe.
type MarkerSet map[string]struct{}

// Add inserts the marker for the given date and reports whether it was
// newly added. Adding a present marker is a no-op.
func (m MarkerSet) Add(d Date) bool {
	key := d.String()
	if _, ok := m[key]; ok {
		return false
	}
	m[key] = struct{}{}
	return true
}

// Has reports whether a marker exists for the given date.
func (m MarkerSet) Has(d Date) bool {
	_, ok := m[d.String()]
	return ok
}

// Clone returns an independent copy.
func (m MarkerSet) Clone() MarkerSet {
	out := make(MarkerSet, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array of date strings so the
// persisted snapshot is stable across saves.
func (m MarkerSet) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return json.Marshal(keys)
}

// UnmarshalJSON decodes an array of date strings.
func (m *MarkerSet) UnmarshalJSON(b []byte) error {
	var keys []string
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}
	out := make(MarkerSet, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	*m = out
	return nil
}

package types

import (
	"time"
)

// Accessors for the well-known keys of the freeform node data bag.
// Different node kinds carry different fields; every accessor tolerates
// absence and wrong shapes so handlers never panic on foreign payloads.

// TextBody returns the report text, or ""
func (n *Node) TextBody() string {
	return dataString(n.Data, "text_body")
}

// MediaURL returns the attached media URL, or ""
func (n *Node) MediaURL() string {
	return dataString(n.Data, "media_url")
}

// Timestamp returns the report's observation time. The second value is
// false when the data bag has no parseable timestamp.
func (n *Node) Timestamp() (time.Time, bool) {
	if n.Data == nil {
		return time.Time{}, false
	}
	switch v := n.Data["timestamp"].(type) {
	case time.Time:
		return v, true
	case string:
		if v == "" {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Location returns the report's location, or nil when absent.
func (n *Node) Location() *Location {
	if n.Data == nil {
		return nil
	}
	switch v := n.Data["location"].(type) {
	case *Location:
		cp := *v
		return &cp
	case Location:
		cp := v
		return &cp
	case map[string]any:
		loc := &Location{}
		lat, okLat := asFloat(v["lat"])
		lng, okLng := asFloat(v["lng"])
		if b, ok := v["building"].(string); ok {
			loc.Building = b
		}
		if !okLat || !okLng {
			if loc.Building == "" {
				return nil
			}
			return loc
		}
		loc.Lat, loc.Lng = lat, lng
		return loc
	}
	return nil
}

// Claims returns the extracted claims. Seeded nodes carry claims under
// "text"; AI extraction uses "statement". Both are accepted.
func (n *Node) Claims() []Claim {
	if n.Data == nil {
		return nil
	}
	raw, ok := n.Data["claims"].([]any)
	if !ok {
		if typed, ok := n.Data["claims"].([]Claim); ok {
			out := make([]Claim, len(typed))
			copy(out, typed)
			return out
		}
		return nil
	}
	var out []Claim
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s, _ := m["statement"].(string)
		if s == "" {
			s, _ = m["text"].(string)
		}
		if s != "" {
			out = append(out, Claim{Statement: s})
		}
	}
	return out
}

// DebunkCount returns the fact-check hit count recorded on a report
func (n *Node) DebunkCount() int {
	if n.Data == nil {
		return 0
	}
	if f, ok := asFloat(n.Data["debunk_count"]); ok {
		return int(f)
	}
	return 0
}

// Role returns the semantic role assigned by the classifier, or ""
func (n *Node) Role() SemanticRole {
	return SemanticRole(dataString(n.Data, "semantic_role"))
}

// Clone returns a deep copy safe to hand across mutation boundaries
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Data = CloneData(n.Data)
	return &cp
}

// Clone returns a deep copy safe to hand across mutation boundaries
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Data = CloneData(e.Data)
	return &cp
}

// CloneData deep-copies a data bag. Maps and slices are copied
// recursively; scalar values are shared (they are immutable).
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func dataString(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

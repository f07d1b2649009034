package export

import "strings"

// OverlayStatus is the approval lifecycle state of an overlay suggestion.
type OverlayStatus string

const (
	StatusPending  OverlayStatus = "pending"
	StatusApproved OverlayStatus = "approved"
	StatusRejected OverlayStatus = "rejected"
)

// OverlaySuggestion is a rule-engine annotation on base geometry, consumed
// read-only by the exporter. Engine is the free-form engine payload; besides
// the recognized keys below it may carry arbitrary properties, which travel
// into the manifest untouched.
type OverlaySuggestion struct {
	Code     string
	Title    string
	Type     string
	Status   string
	Severity string
	Engine   map[string]any
}

// Engine payload keys the exporter interprets. Everything else is passed
// through as properties.
const (
	engineNodesKey    = "nodes"
	engineTargetsKey  = "target_ids"
	engineRuleRefsKey = "rule_refs"
)

// EffectiveStatus normalizes the raw status: case-insensitive, defaulting to
// pending when absent or unrecognized.
func (o OverlaySuggestion) EffectiveStatus() OverlayStatus {
	switch OverlayStatus(strings.ToLower(strings.TrimSpace(o.Status))) {
	case StatusApproved:
		return StatusApproved
	case StatusRejected:
		return StatusRejected
	default:
		return StatusPending
	}
}

// Nodes returns the normalized affected-node list from the engine payload.
func (o OverlaySuggestion) Nodes() []string {
	return normalizeIDList(o.Engine[engineNodesKey])
}

// TargetIDs returns the normalized explicit target ids, defaulting to the
// affected-node list when the suggestion provides none.
func (o OverlaySuggestion) TargetIDs() []string {
	targets := normalizeIDList(o.Engine[engineTargetsKey])
	if len(targets) == 0 {
		return o.Nodes()
	}
	return targets
}

// RuleRefs returns the normalized rule-reference list.
func (o OverlaySuggestion) RuleRefs() []string {
	return normalizeIDList(o.Engine[engineRuleRefsKey])
}

// Props returns the engine payload entries that are not interpreted by the
// exporter.
func (o OverlaySuggestion) Props() map[string]any {
	props := make(map[string]any)
	for k, v := range o.Engine {
		switch k {
		case engineNodesKey, engineTargetsKey, engineRuleRefsKey:
		default:
			props[k] = v
		}
	}
	return props
}

// normalizeIDList coerces a scalar or nil to a list, drops empty entries, and
// de-duplicates preserving first-seen order.
func normalizeIDList(v any) []string {
	var raw []string
	switch list := v.(type) {
	case nil:
	case string:
		raw = []string{list}
	case []string:
		raw = list
	case []any:
		for _, entry := range list {
			if s, ok := entry.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// AnyPending reports whether any suggestion in the full set has effective
// status pending, independent of inclusion flags. It drives the watermark.
func AnyPending(suggestions []OverlaySuggestion) bool {
	for _, s := range suggestions {
		if s.EffectiveStatus() == StatusPending {
			return true
		}
	}
	return false
}

package scan

import "strings"

// interactiveAXRoles is the fixed allow-list of accessibility roles that
// mark a node interactive regardless of its boolean properties.
var interactiveAXRoles = map[string]bool{
	"button":     true,
	"link":       true,
	"textbox":    true,
	"searchbox":  true,
	"combobox":   true,
	"checkbox":   true,
	"radio":      true,
	"menuitem":   true,
	"tab":        true,
	"switch":     true,
	"option":     true,
	"listbox":    true,
	"slider":     true,
	"spinbutton": true,
}

// AXNode is the flat accessibility-node shape the index builder consumes,
// decoupled from the DevTools protocol types.
type AXNode struct {
	Role    string
	Name    string
	Ignored bool
	Props   map[string]bool
}

// AXIndex is a normalized-label lookup derived from one accessibility
// tree snapshot. It augments the DOM scan by label matching only; it is
// never used for traversal and is discarded after the scan.
type AXIndex struct {
	Labels map[string]struct{}
	Roles  map[string]string
	Count  int
}

// Match reports whether a label (raw, un-normalized) is known to the
// index and the representative role recorded for it.
func (ix *AXIndex) Match(label string) (string, bool) {
	if ix == nil {
		return "", false
	}
	key := NormalizeLabel(label)
	if key == "" {
		return "", false
	}
	if _, ok := ix.Labels[key]; !ok {
		return "", false
	}
	return ix.Roles[key], true
}

// BuildAXIndex builds the label index from a flat node snapshot. Ignored
// and unnamed nodes are skipped; a node counts as interactive when its
// role is in the allow-list or it carries a true focusable/editable
// property.
func BuildAXIndex(nodes []AXNode) *AXIndex {
	ix := &AXIndex{
		Labels: make(map[string]struct{}),
		Roles:  make(map[string]string),
	}
	for _, n := range nodes {
		if n.Ignored || strings.TrimSpace(n.Name) == "" {
			continue
		}
		role := strings.ToLower(n.Role)
		if !interactiveAXRoles[role] && !n.Props["focusable"] && !n.Props["editable"] {
			continue
		}
		key := NormalizeLabel(n.Name)
		if key == "" {
			continue
		}
		if _, seen := ix.Labels[key]; !seen {
			ix.Labels[key] = struct{}{}
			ix.Roles[key] = role
		}
		ix.Count++
	}
	return ix
}

// NormalizeLabel lowercases, strips non-alphanumerics to spaces, and
// collapses whitespace, yielding the index key for a label.
func NormalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

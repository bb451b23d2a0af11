package browser

import (
	"context"
	"encoding/json"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/chromedp"

	"github.com/wayfind-ai/wayfind/internal/devlog"
	"github.com/wayfind-ai/wayfind/internal/scan"
)

// AXSnapshot fetches the full accessibility tree and flattens it into
// the shape the index builder consumes. The accessibility domain is
// enabled only for the duration of the fetch. Any failure returns an
// empty snapshot; the DOM scan stays authoritative either way.
func (p *Page) AXSnapshot(ctx context.Context) ([]scan.AXNode, error) {
	var nodes []*accessibility.Node
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := accessibility.Enable().Do(ctx); err != nil {
			return err
		}
		defer func() { _ = accessibility.Disable().Do(ctx) }()

		tree, err := accessibility.GetFullAXTree().Do(ctx)
		if err != nil {
			return err
		}
		nodes = tree
		return nil
	}))
	if err != nil {
		devlog.Tagf("Browser", "ax snapshot failed: %v", err)
		return nil, err
	}

	out := make([]scan.AXNode, 0, len(nodes))
	for _, node := range nodes {
		if node == nil {
			continue
		}
		n := scan.AXNode{
			Role:    axString(node.Role),
			Name:    axString(node.Name),
			Ignored: node.Ignored,
		}
		for _, prop := range node.Properties {
			name := string(prop.Name)
			if name != "focusable" && name != "editable" {
				continue
			}
			if axBool(prop.Value) {
				if n.Props == nil {
					n.Props = make(map[string]bool)
				}
				n.Props[name] = true
			}
		}
		out = append(out, n)
	}
	return out, nil
}

// axString unwraps a protocol AXValue holding a string.
func axString(v *accessibility.Value) string {
	if v == nil || v.Value == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return ""
	}
	return s
}

// axBool unwraps a protocol AXValue holding a bool. "editable" arrives
// as a string kind ("plaintext" etc) on some pages; any non-empty,
// non-false payload counts as set.
func axBool(v *accessibility.Value) bool {
	if v == nil || v.Value == nil {
		return false
	}
	var b bool
	if err := json.Unmarshal(v.Value, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s != "" && s != "false"
	}
	return false
}

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// interactiveAXRoles is the allow-list of accessibility roles that are
// always worth surfacing, whether or not the node carries a name.
var interactiveAXRoles = map[string]struct{}{
	"button":           {},
	"link":             {},
	"textbox":          {},
	"checkbox":         {},
	"radio":            {},
	"combobox":         {},
	"listbox":          {},
	"menuitem":         {},
	"tab":              {},
	"slider":           {},
	"searchbox":        {},
	"spinbutton":       {},
	"switch":           {},
	"option":           {},
	"menuitemcheckbox": {},
	"menuitemradio":    {},
	"treeitem":         {},
	"heading":          {},
	"img":              {},
	"navigation":       {},
	"main":             {},
	"article":          {},
	"section":          {},
}

// snapshotStrategy is one way of extracting page elements. Strategies
// are tried in order until one returns a non-empty node set.
type snapshotStrategy struct {
	name string
	run  func(ctx context.Context) ([]AccessibilityNode, error)
}

// Snapshot extracts the flattened accessibility view of the current
// page. The native accessibility tree is preferred; when it fails or
// comes back empty, a DOM walk runs instead. Refs restart at "@e1" on
// every call and stale ref markers are cleared first, so a snapshot
// invalidates all refs from earlier snapshots of the session. The node
// list is bounded by the configured cap.
func (s *Session) Snapshot() (*Snapshot, error) {
	s.UpdateLastUsed()

	snap := &Snapshot{Nodes: []AccessibilityNode{}}
	err := chromedp.Run(s.ctx,
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := chromedp.Evaluate(clearRefsJS, nil).Do(ctx); err != nil {
				return fmt.Errorf("failed to clear ref markers: %w", err)
			}

			strategies := []snapshotStrategy{
				{name: "accessibility-tree", run: extractAXNodes},
				{name: "dom-walk", run: extractDOMNodes},
			}

			var lastErr error
			for _, strategy := range strategies {
				nodes, err := strategy.run(ctx)
				if err != nil {
					s.logger.Debugf("snapshot strategy %s failed: %v", strategy.name, err)
					lastErr = err
					continue
				}
				if len(nodes) == 0 {
					s.logger.Debugf("snapshot strategy %s returned no nodes", strategy.name)
					lastErr = nil
					continue
				}
				snap.Nodes = capNodes(nodes, s.snapshotMaxNodes)
				return nil
			}
			return lastErr
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}

	snap.ElementCount = len(snap.Nodes)
	return snap, nil
}

// extractAXNodes reads the full native accessibility tree, filters it
// down to interesting nodes and tags their DOM counterparts with ref
// attributes so "@eN" selectors resolve later.
func extractAXNodes(ctx context.Context) ([]AccessibilityNode, error) {
	axNodes, err := accessibility.GetFullAXTree().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accessibility tree: %w", err)
	}

	nodes, backendIDs := convertAXNodes(axNodes)
	tagBackendNodes(ctx, nodes, backendIDs)
	return nodes, nil
}

// convertAXNodes filters raw accessibility nodes down to the flat node
// list, assigning refs e1, e2, ... in traversal order. The returned
// backend node ids are parallel to the nodes; a zero id means the node
// has no DOM counterpart to tag.
func convertAXNodes(axNodes []*accessibility.Node) ([]AccessibilityNode, []cdp.BackendNodeID) {
	nodes := []AccessibilityNode{}
	backendIDs := []cdp.BackendNodeID{}
	counter := 0

	for _, n := range axNodes {
		if n == nil || n.Ignored {
			continue
		}

		role := axValueString(n.Role)
		name := axValueString(n.Name)
		value := axValueString(n.Value)
		focusable := axPropertyBool(n, accessibility.PropertyNameFocusable)
		focused := axPropertyBool(n, accessibility.PropertyNameFocused)

		if !includeAXNode(role, name, value, focusable) {
			continue
		}

		counter++
		nodes = append(nodes, AccessibilityNode{
			Ref:       fmt.Sprintf("@e%d", counter),
			Role:      role,
			Name:      name,
			Value:     value,
			Focusable: focusable,
			Focused:   focused,
			Children:  []AccessibilityNode{},
		})
		backendIDs = append(backendIDs, n.BackendDOMNodeID)
	}

	return nodes, backendIDs
}

// includeAXNode decides whether a node makes it into the snapshot:
// interactive roles always do, focusable nodes always do, and anything
// else needs a non-empty role, name or value.
func includeAXNode(role, name, value string, focusable bool) bool {
	if _, ok := interactiveAXRoles[role]; ok {
		return true
	}
	if focusable {
		return true
	}
	return role != "" || name != "" || value != ""
}

// capNodes bounds a node list to limit entries, keeping extraction
// order. A non-positive limit means no bound.
func capNodes(nodes []AccessibilityNode, limit int) []AccessibilityNode {
	if limit > 0 && len(nodes) > limit {
		return nodes[:limit]
	}
	return nodes
}

// tagBackendNodes writes ref attributes onto the DOM nodes backing the
// snapshot. Tagging is best-effort per node: accessibility nodes
// without a usable DOM counterpart keep their ref but stay untagged.
func tagBackendNodes(ctx context.Context, nodes []AccessibilityNode, backendIDs []cdp.BackendNodeID) {
	for i, backendID := range backendIDs {
		if backendID == 0 {
			continue
		}
		nodeIDs, err := dom.PushNodesByBackendIDsToFrontend([]cdp.BackendNodeID{backendID}).Do(ctx)
		if err != nil || len(nodeIDs) == 0 {
			continue
		}
		attrValue := strings.TrimPrefix(nodes[i].Ref, "@")
		_ = dom.SetAttributeValue(nodeIDs[0], RefAttribute, attrValue).Do(ctx)
	}
}

// axValueString extracts a string out of an accessibility value.
// Anything missing or non-string normalizes to "".
func axValueString(v *accessibility.Value) string {
	if v == nil || len(v.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return ""
	}
	return s
}

// axPropertyBool reads a boolean property off a node, false when the
// property is absent or not a boolean.
func axPropertyBool(n *accessibility.Node, name accessibility.PropertyName) bool {
	for _, p := range n.Properties {
		if p == nil || p.Name != name {
			continue
		}
		if p.Value == nil || len(p.Value.Value) == 0 {
			return false
		}
		var b bool
		if err := json.Unmarshal(p.Value.Value, &b); err != nil {
			return false
		}
		return b
	}
	return false
}

// extractDOMNodes runs the in-page walk over interactive elements. The
// script tags elements as it goes, so refs here line up with the
// returned order the same way the native pass does.
func extractDOMNodes(ctx context.Context) ([]AccessibilityNode, error) {
	var raw []domWalkNode
	if err := chromedp.Evaluate(domWalkJS, &raw).Do(ctx); err != nil {
		return nil, fmt.Errorf("dom walk failed: %w", err)
	}

	nodes := make([]AccessibilityNode, 0, len(raw))
	for i, rn := range raw {
		nodes = append(nodes, AccessibilityNode{
			Ref:       fmt.Sprintf("@e%d", i+1),
			Role:      rn.Role,
			Name:      rn.Name,
			Value:     rn.Value,
			Focusable: rn.Focusable,
			Focused:   rn.Focused,
			Children:  []AccessibilityNode{},
		})
	}
	return nodes, nil
}

// domWalkNode is the wire shape produced by domWalkJS.
type domWalkNode struct {
	Role      string `json:"role"`
	Name      string `json:"name"`
	Value     string `json:"value"`
	Focusable bool   `json:"focusable"`
	Focused   bool   `json:"focused"`
}

var clearRefsJS = fmt.Sprintf(
	`document.querySelectorAll('[%s]').forEach((el) => el.removeAttribute('%s'))`,
	RefAttribute, RefAttribute)

var domWalkJS = fmt.Sprintf(`(() => {
	const selectorList = 'a, button, input, select, textarea, option, [role], img, nav, main, article, section, h1, h2, h3, h4, h5, h6, [contenteditable]';
	const seen = new Set();
	const out = [];
	let counter = 0;

	const roleFor = (el) => {
		const explicit = el.getAttribute('role');
		if (explicit) return explicit;
		const tag = el.tagName.toLowerCase();
		switch (tag) {
			case 'a': return 'link';
			case 'button': return 'button';
			case 'select': return 'combobox';
			case 'textarea': return 'textbox';
			case 'option': return 'option';
			case 'img': return 'img';
			case 'nav': return 'navigation';
			case 'main': return 'main';
			case 'article': return 'article';
			case 'section': return 'section';
			case 'h1': case 'h2': case 'h3': case 'h4': case 'h5': case 'h6': return 'heading';
			case 'input': {
				const type = (el.getAttribute('type') || 'text').toLowerCase();
				if (type === 'checkbox') return 'checkbox';
				if (type === 'radio') return 'radio';
				if (type === 'range') return 'slider';
				if (type === 'search') return 'searchbox';
				if (type === 'number') return 'spinbutton';
				return 'textbox';
			}
		}
		if (el.isContentEditable) return 'textbox';
		return '';
	};

	const nameFor = (el) => {
		const label = el.getAttribute('aria-label');
		if (label) return label;
		const alt = el.getAttribute('alt');
		if (alt) return alt;
		const title = el.getAttribute('title');
		if (title) return title;
		const text = (el.textContent || '').trim();
		return text.length > 80 ? text.slice(0, 80) : text;
	};

	for (const el of document.querySelectorAll(selectorList)) {
		if (seen.has(el)) continue;
		seen.add(el);
		const role = roleFor(el);
		if (!role) continue;
		counter++;
		el.setAttribute('%s', 'e' + counter);
		out.push({
			role: role,
			name: nameFor(el),
			value: typeof el.value === 'string' ? el.value : '',
			focusable: el.tabIndex >= 0,
			focused: document.activeElement === el,
		});
	}
	return out;
})()`, RefAttribute)

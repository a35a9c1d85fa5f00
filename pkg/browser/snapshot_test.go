package browser

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func axStr(s string) *accessibility.Value {
	return &accessibility.Value{Value: jsontext.Value(strconv.Quote(s))}
}

func axBoolProp(name accessibility.PropertyName, b bool) *accessibility.Property {
	return &accessibility.Property{
		Name:  name,
		Value: &accessibility.Value{Value: jsontext.Value(strconv.FormatBool(b))},
	}
}

func TestConvertAXNodesFiltering(t *testing.T) {
	raw := []*accessibility.Node{
		nil,
		{Ignored: true, Role: axStr("button"), Name: axStr("hidden")},
		{Role: axStr("button"), Name: axStr("Submit"), BackendDOMNodeID: cdp.BackendNodeID(11)},
		{},                            // no role, name or value, dropped
		{Role: axStr("generic")},      // role alone is enough
		{Name: axStr("orphan label")}, // so is a name alone
		{Role: axStr("link"), BackendDOMNodeID: cdp.BackendNodeID(12)},
	}

	nodes, backendIDs := convertAXNodes(raw)
	require.Len(t, nodes, 4)
	require.Len(t, backendIDs, 4)

	assert.Equal(t, "@e1", nodes[0].Ref)
	assert.Equal(t, "button", nodes[0].Role)
	assert.Equal(t, "Submit", nodes[0].Name)
	assert.Equal(t, cdp.BackendNodeID(11), backendIDs[0])

	assert.Equal(t, "@e2", nodes[1].Ref)
	assert.Equal(t, "generic", nodes[1].Role)

	assert.Equal(t, "@e3", nodes[2].Ref)
	assert.Equal(t, "orphan label", nodes[2].Name)

	assert.Equal(t, "@e4", nodes[3].Ref)
	assert.Equal(t, "link", nodes[3].Role)
	assert.Equal(t, cdp.BackendNodeID(12), backendIDs[3])
}

func TestConvertAXNodesFocusable(t *testing.T) {
	raw := []*accessibility.Node{
		{
			Role:       axStr(""),
			Properties: []*accessibility.Property{axBoolProp(accessibility.PropertyNameFocusable, true)},
		},
	}

	nodes, _ := convertAXNodes(raw)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].Focusable)
}

func TestConvertAXNodesFocusedState(t *testing.T) {
	raw := []*accessibility.Node{
		{
			Role: axStr("textbox"),
			Name: axStr("Search"),
			Properties: []*accessibility.Property{
				axBoolProp(accessibility.PropertyNameFocusable, true),
				axBoolProp(accessibility.PropertyNameFocused, true),
			},
		},
		{Role: axStr("button"), Name: axStr("Go")},
	}

	nodes, _ := convertAXNodes(raw)
	require.Len(t, nodes, 2)
	assert.True(t, nodes[0].Focused)
	assert.False(t, nodes[1].Focused)
}

func TestConvertAXNodesRefsRestartPerCall(t *testing.T) {
	raw := []*accessibility.Node{
		{Role: axStr("button"), Name: axStr("One")},
		{Role: axStr("button"), Name: axStr("Two")},
	}

	first, _ := convertAXNodes(raw)
	second, _ := convertAXNodes(raw)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, "@e1", first[0].Ref)
	assert.Equal(t, "@e1", second[0].Ref, "refs restart at @e1 on every extraction")
}

func TestConvertAXNodesChildrenAlwaysEmpty(t *testing.T) {
	raw := []*accessibility.Node{
		{Role: axStr("navigation"), Name: axStr("Main")},
	}

	nodes, _ := convertAXNodes(raw)
	require.Len(t, nodes, 1)
	assert.NotNil(t, nodes[0].Children)
	assert.Empty(t, nodes[0].Children)
}

func TestIncludeAXNode(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		nodeName  string
		value     string
		focusable bool
		want      bool
	}{
		{"interactive role alone", "button", "", "", false, true},
		{"landmark role alone", "navigation", "", "", false, true},
		{"focusable without role", "", "", "", true, true},
		{"named non-interactive role", "paragraph", "intro", "", false, true},
		{"valued non-interactive role", "paragraph", "", "42", false, true},
		{"bare non-interactive role", "paragraph", "", "", false, true},
		{"name without role", "", "orphan", "", false, true},
		{"value without role", "", "", "42", false, true},
		{"nothing at all", "", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, includeAXNode(tt.role, tt.nodeName, tt.value, tt.focusable))
		})
	}
}

func TestAXValueString(t *testing.T) {
	assert.Equal(t, "", axValueString(nil))
	assert.Equal(t, "", axValueString(&accessibility.Value{}))
	assert.Equal(t, "", axValueString(&accessibility.Value{Value: jsontext.Value("{broken")}))
	assert.Equal(t, "", axValueString(&accessibility.Value{Value: jsontext.Value("123")}))
	assert.Equal(t, "button", axValueString(axStr("button")))
}

func TestAXPropertyBool(t *testing.T) {
	node := &accessibility.Node{
		Properties: []*accessibility.Property{
			axBoolProp(accessibility.PropertyNameFocusable, true),
			{Name: accessibility.PropertyNameFocused, Value: axStr("not-a-bool")},
		},
	}

	assert.True(t, axPropertyBool(node, accessibility.PropertyNameFocusable))
	assert.False(t, axPropertyBool(node, accessibility.PropertyNameFocused))
	assert.False(t, axPropertyBool(node, accessibility.PropertyNameBusy))
}

func TestCapNodes(t *testing.T) {
	nodes := make([]AccessibilityNode, 5)
	for i := range nodes {
		nodes[i].Ref = fmt.Sprintf("@e%d", i+1)
	}

	capped := capNodes(nodes, 3)
	require.Len(t, capped, 3)
	assert.Equal(t, "@e1", capped[0].Ref)
	assert.Equal(t, "@e3", capped[2].Ref)

	assert.Len(t, capNodes(nodes, 5), 5)
	assert.Len(t, capNodes(nodes, 100), 5)
	assert.Len(t, capNodes(nodes, 0), 5, "zero means no bound")
	assert.Len(t, capNodes(nodes, -1), 5, "negative means no bound")
}

func TestDOMWalkScriptTagsRefAttribute(t *testing.T) {
	// Both extraction tiers must write the same attribute the selector
	// layer resolves against.
	assert.Contains(t, domWalkJS, RefAttribute)
	assert.Contains(t, clearRefsJS, RefAttribute)
	assert.Contains(t, ResolveSelector("@e1"), RefAttribute)
}

package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAXIndexRoleAllowList(t *testing.T) {
	ix := BuildAXIndex([]AXNode{
		{Role: "button", Name: "Add to Cart"},
		{Role: "link", Name: "Today's Deals"},
		{Role: "paragraph", Name: "Some prose"},
		{Role: "generic", Name: "Focusable widget", Props: map[string]bool{"focusable": true}},
		{Role: "generic", Name: "Editable field", Props: map[string]bool{"editable": true}},
		{Role: "generic", Name: "Inert box"},
	})

	assert.Equal(t, 4, ix.Count)

	role, ok := ix.Match("Add to Cart")
	require.True(t, ok)
	assert.Equal(t, "button", role)

	_, ok = ix.Match("Some prose")
	assert.False(t, ok)

	_, ok = ix.Match("Focusable widget")
	assert.True(t, ok)
}

func TestBuildAXIndexSkipsIgnoredAndUnnamed(t *testing.T) {
	ix := BuildAXIndex([]AXNode{
		{Role: "button", Name: "Hidden", Ignored: true},
		{Role: "button", Name: "   "},
		{Role: "button", Name: "!!!"}, // normalizes to empty
	})
	assert.Equal(t, 0, ix.Count)
	assert.Empty(t, ix.Labels)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "add to cart", NormalizeLabel("  Add TO (cart)! "))
	assert.Equal(t, "sign in", NormalizeLabel("Sign-In"))
	assert.Equal(t, "", NormalizeLabel("✨"))
}

func TestMatchNilIndex(t *testing.T) {
	var ix *AXIndex
	_, ok := ix.Match("anything")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		el   Element
		want string
	}{
		{Element{Tag: "a"}, "link"},
		{Element{Tag: "button"}, "button"},
		{Element{Tag: "input", InputType: "text"}, "input_text"},
		{Element{Tag: "input", InputType: "password"}, "input_password"},
		{Element{Tag: "input", InputType: "submit"}, "input_submit"},
		{Element{Tag: "input", InputType: "checkbox"}, "checkbox"},
		{Element{Tag: "select"}, "select"},
		{Element{Tag: "textarea"}, "textarea"},
		{Element{Tag: "div", Role: "button"}, "button"},
		{Element{Tag: "span", Role: "searchbox"}, "input_text"},
		{Element{Tag: "div"}, "other"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.el), "element %+v", c.el)
	}
}

func TestBuildTargetsAnnotatesFromIndex(t *testing.T) {
	ix := BuildAXIndex([]AXNode{{Role: "button", Name: "Search"}})
	targets := BuildTargets([]Element{
		{Index: 0, Tag: "button", Text: "Search"},
		{Index: 1, Tag: "a", Text: "Help"},
	}, ix)

	require.Len(t, targets, 2)
	assert.True(t, targets[0].AxMatch)
	assert.Equal(t, "button", targets[0].AxRole)
	assert.False(t, targets[1].AxMatch)
}

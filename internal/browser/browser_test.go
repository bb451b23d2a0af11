package browser

import (
	"encoding/json"
	"testing"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind-ai/wayfind/internal/scan"
)

// The page-side agent serializes scans with these exact field names;
// the Go side must decode them without loss.
func TestScanResultDecode(t *testing.T) {
	raw := `{
		"status": "ok",
		"page": {"url": "https://example.com/", "title": "Example"},
		"elements": [
			{"index": 0, "tag": "a", "text": "More information", "href": "https://www.iana.org/domains/example", "xpath": "/html/body[1]/div[1]/p[2]/a[1]"},
			{"index": 1, "tag": "input", "inputType": "search", "placeholder": "Search", "name": "q", "xpath": "//*[@id=\"q\"]", "framePath": "/html/body[1]/iframe[1]"}
		],
		"iframes": [{"src": "https://ads.example.com/", "crossOrigin": true}],
		"textSample": "Example Domain. More information..."
	}`

	var result scan.Result
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	assert.Equal(t, "ok", result.Status)
	assert.False(t, result.Skipped())
	assert.Equal(t, "https://example.com/", result.Page.URL)
	require.Len(t, result.Elements, 2)
	assert.Equal(t, "link", scan.Classify(result.Elements[0]))
	assert.Equal(t, "https://www.iana.org/domains/example", result.Elements[0].Href)
	assert.Equal(t, "input_text", scan.Classify(result.Elements[1]))
	assert.Equal(t, "/html/body[1]/iframe[1]", result.Elements[1].FramePath)
	require.Len(t, result.Iframes, 1)
	assert.True(t, result.Iframes[0].CrossOrigin)
}

func TestScanResultSkippedFrame(t *testing.T) {
	raw := `{"status": "skipped", "reason": "embedded_frame", "page": {"url": "https://widget.example.com/", "title": ""}, "elements": []}`
	var result scan.Result
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	assert.True(t, result.Skipped())
	assert.Equal(t, "embedded_frame", result.Reason)
}

// Command field names are part of the contract with the injected agent.
func TestCommandWireFormat(t *testing.T) {
	data, err := json.Marshal(Command{
		Kind:        "type",
		Index:       7,
		XPath:       "//*[@id=\"search\"]",
		Value:       "wireless mouse",
		SubmitAfter: true,
	})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "type", m["kind"])
	assert.Equal(t, float64(7), m["index"])
	assert.Equal(t, "wireless mouse", m["value"])
	assert.Equal(t, true, m["submitAfter"])
	_, hasFrame := m["framePath"]
	assert.False(t, hasFrame, "empty framePath must be omitted")
}

func TestFindChromeMissingCustomPath(t *testing.T) {
	_, err := FindChrome("/nonexistent/chrome-binary")
	assert.Error(t, err)
}

func TestAXValueDecoding(t *testing.T) {
	str := &accessibility.Value{Value: []byte(`"Search"`)}
	assert.Equal(t, "Search", axString(str))

	assert.True(t, axBool(&accessibility.Value{Value: []byte(`true`)}))
	assert.False(t, axBool(&accessibility.Value{Value: []byte(`false`)}))
	assert.True(t, axBool(&accessibility.Value{Value: []byte(`"plaintext"`)}))
	assert.False(t, axBool(&accessibility.Value{Value: []byte(`"false"`)}))
	assert.False(t, axBool(nil))
	assert.Equal(t, "", axString(nil))
}

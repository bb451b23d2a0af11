package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	ID  int    `json:"id"`
	Act string `json:"act"`
}

func TestUnmarshalStrict(t *testing.T) {
	var got []step
	err := Unmarshal(`[{"id":1,"act":"navigate to amazon.com"}]`, &got)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "navigate to amazon.com", got[0].Act)
}

func TestUnmarshalWithProseAndFences(t *testing.T) {
	raw := "Sure! Here is the plan:\n```json\n[{\"id\":1,\"act\":\"click\"}]\n```\nLet me know."
	var got []step
	require.NoError(t, Unmarshal(raw, &got))
	require.Len(t, got, 1)
}

func TestUnmarshalObjectFollowedByProse(t *testing.T) {
	raw := `{"thought":"ok","action":{"type":"click","index":3}} I will click now.`
	var got struct {
		Thought string `json:"thought"`
		Action  struct {
			Type  string `json:"type"`
			Index int    `json:"index"`
		} `json:"action"`
	}
	require.NoError(t, Unmarshal(raw, &got))
	assert.Equal(t, "click", got.Action.Type)
	assert.Equal(t, 3, got.Action.Index)
}

func TestUnmarshalTruncatedArray(t *testing.T) {
	var got []step
	require.NoError(t, Unmarshal(`[{"id":1,"act":"click"},{"id":2,"act":"type"}`, &got))
	require.Len(t, got, 2)
}

func TestUnmarshalTruncatedString(t *testing.T) {
	var got []step
	require.NoError(t, Unmarshal(`[{"id":1,"act":"navigate to ama`, &got))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
}

func TestUnmarshalTruncatedMidElement(t *testing.T) {
	var got []step
	err := Unmarshal(`[{"id":1,"act":"click"},{"id":2,`, &got)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "click", got[0].Act)
}

func TestUnmarshalNoJSON(t *testing.T) {
	var got []step
	err := Unmarshal("I cannot help with that.", &got)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractBracesInsideStrings(t *testing.T) {
	frag, err := Extract(`{"a":"has } brace and \" quote"} trailing`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"has } brace and \" quote"}`, frag)
}

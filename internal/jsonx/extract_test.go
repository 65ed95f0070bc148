package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractObjectDirect(t *testing.T) {
	raw, err := ExtractObject(`{"a": 1}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"a": 1}`, string(raw))
}

func TestExtractObjectFromProse(t *testing.T) {
	text := `Sure! Here is the architecture you asked for:

{"technology_stack": {"backend": "Go"}, "data_model": {}}

Let me know if you need anything else.`
	raw, err := ExtractObject(text)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(raw, &obj))
	require.Contains(t, obj, "technology_stack")
}

func TestExtractObjectFromFencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n{\"feedback_summary\": \"solid\", \"overall_rating\": 4}\n```\nDone."
	raw, err := ExtractObject(text)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(raw, &obj))
	require.Equal(t, "solid", obj["feedback_summary"])
}

func TestExtractObjectRepairsLiteralNewlines(t *testing.T) {
	// A raw newline inside a string literal is invalid JSON until escaped.
	text := "{\"summary\": \"line one\nline two\"}"
	raw, err := ExtractObject(text)
	require.NoError(t, err)

	var obj map[string]string
	require.NoError(t, json.Unmarshal(raw, &obj))
	require.Equal(t, "line one\nline two", obj["summary"])
}

func TestExtractArrayFromProse(t *testing.T) {
	text := `The plan is:
[{"id": "T1", "description": "setup"}, {"id": "T2", "description": "build"}]`
	raw, err := ExtractArray(text)
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(raw, &items))
	require.Len(t, items, 2)
	require.Equal(t, "T1", items[0]["id"])
}

func TestExtractArrayRejectsObject(t *testing.T) {
	_, err := ExtractArray(`{"not": "an array"}`)
	require.ErrorIs(t, err, ErrNoValue)
}

func TestExtractNoValue(t *testing.T) {
	_, err := ExtractObject("I could not produce any JSON, sorry.")
	require.ErrorIs(t, err, ErrNoValue)
}

func TestExtractShapeSelectsAmongMultipleBrackets(t *testing.T) {
	// Object requested inside text that also carries array brackets.
	text := `Steps [1] and [2] give {"ok": true}.`
	raw, err := ExtractObject(text)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok": true}`, string(raw))
}

func TestStringListCoercions(t *testing.T) {
	require.Equal(t, []string{}, StringList(nil))
	require.Equal(t, []string{"a", "b"}, StringList([]any{"a", "b"}))
	require.Equal(t, []string{"solo"}, StringList("solo"))
	require.Equal(t, []string{"42"}, StringList(float64(42)))
	require.Equal(t, []string{}, StringList(""))
}

func TestClampRating(t *testing.T) {
	require.Equal(t, 4, ClampRating(float64(4), 3))
	require.Equal(t, 5, ClampRating(float64(9), 3))
	require.Equal(t, 1, ClampRating(float64(-2), 3))
	require.Equal(t, 3, ClampRating(nil, 3))
	require.Equal(t, 2, ClampRating("2", 3))
	require.Equal(t, 3, ClampRating("not a number", 3))
}

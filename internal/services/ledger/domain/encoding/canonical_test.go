package encoding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsKeysRecursively(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{
		"b": 1,
		"a": map[string]any{"z": true, "y": []any{map[string]any{"d": 1, "c": 2}}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":[{"c":2,"d":1}],"z":true},"b":1}`, string(got))
}

func TestCanonicalJSONRawMessageIsDocument(t *testing.T) {
	got, err := CanonicalJSON(json.RawMessage(`{ "title": "<Q1>", "count" : 2 }`))
	require.NoError(t, err)
	assert.Equal(t, `{"count":2,"title":"<Q1>"}`, string(got))
}

func TestCanonicalJSONPreservesLargeIntegers(t *testing.T) {
	got, err := CanonicalJSON(json.RawMessage(`{"n":18446744073709551615}`))
	require.NoError(t, err)
	assert.Equal(t, `{"n":18446744073709551615}`, string(got))
}

func TestCanonicalJSONStructMatchesMap(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
		Yes   uint64 `json:"yes_votes"`
	}
	fromStruct, err := CanonicalJSON(payload{Title: "Q1", Yes: 3})
	require.NoError(t, err)
	fromMap, err := CanonicalJSON(map[string]any{"yes_votes": 3, "title": "Q1"})
	require.NoError(t, err)
	assert.Equal(t, fromMap, fromStruct)
}

func TestCanonicalJSONRejectsInvalid(t *testing.T) {
	_, err := CanonicalJSON(json.RawMessage(`{"a":`))
	assert.Error(t, err)
	_, err = CanonicalJSON(json.RawMessage(`{} {}`))
	assert.Error(t, err)
}

func TestContentHashIgnoresKeyOrder(t *testing.T) {
	a, err := ContentHash(json.RawMessage(`{"x":1,"y":2}`))
	require.NoError(t, err)
	b, err := ContentHash(json.RawMessage(`{"y":2,"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

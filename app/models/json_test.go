package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeJSONAccumulates(t *testing.T) {
	first, err := MergeJSON(nil, map[string]interface{}{"a": 1, "b": "x"})
	require.NoError(t, err)

	second, err := MergeJSON(first, map[string]interface{}{"b": "y", "c": true})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(second, &out))
	assert.Equal(t, float64(1), out["a"])
	assert.Equal(t, "y", out["b"])
	assert.Equal(t, true, out["c"])
}

func TestMergeJSONEmptyPatch(t *testing.T) {
	existing := JSON(`{"keep":"me"}`)
	merged, err := MergeJSON(existing, nil)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(merged, &out))
	assert.Equal(t, "me", out["keep"])
}

func TestMergeJSONRejectsCorruptExisting(t *testing.T) {
	_, err := MergeJSON(JSON(`not json`), map[string]interface{}{"a": 1})
	assert.Error(t, err)
}

func TestJSONValue(t *testing.T) {
	v, err := JSON(`{"a":1}`).Value()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	v, err = JSON(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestJSONScan(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, JSON(`{"a":1}`), j)

	require.NoError(t, j.Scan(nil))
	assert.Equal(t, JSON("{}"), j)

	assert.Error(t, j.Scan(42))
}

package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_JSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42,"b":"6f1c2d3e-aaaa","c":null}`), &v))
	assert.Equal(t, ID("42"), v.A)
	assert.Equal(t, ID("6f1c2d3e-aaaa"), v.B)
	assert.True(t, v.C.IsZero())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":42,"b":"6f1c2d3e-aaaa","c":""}`, string(out))
}

func TestID_IsNumeric(t *testing.T) {
	assert.True(t, ID("7").IsNumeric())
	assert.False(t, ID("-7").IsNumeric())
	assert.False(t, ID("").IsNumeric())
	assert.False(t, ID("abc").IsNumeric())
}

package rodbrowser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
)

func decode(t *testing.T, raw string) gson.JSON {
	t.Helper()
	var v gson.JSON
	require.NoError(t, v.UnmarshalJSON([]byte(raw)))
	return v
}

func TestJSValue(t *testing.T) {
	assert.Nil(t, jsValue(gson.JSON{}))
	assert.Nil(t, jsValue(decode(t, `null`)))
	assert.Equal(t, "Mozilla/5.0", jsValue(decode(t, `"Mozilla/5.0"`)))
	assert.Equal(t, []any{10.0, 20.0, 300.0, 65.0}, jsValue(decode(t, `[10,20,300,65]`)))
	assert.Equal(t, map[string]any{"sitekey": "0x4AAA"}, jsValue(decode(t, `{"sitekey":"0x4AAA"}`)))
}

package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeys(t *testing.T) {
	b, err := Marshal(map[string]any{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(b))
}

func TestMarshalInsertionOrderIrrelevant(t *testing.T) {
	m1 := map[string]any{}
	m1["zulu"] = "z"
	m1["alpha"] = "a"

	m2 := map[string]any{}
	m2["alpha"] = "a"
	m2["zulu"] = "z"

	b1, err := Marshal(m1)
	require.NoError(t, err)
	b2, err := Marshal(m2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestMarshalNested(t *testing.T) {
	b, err := Marshal(map[string]any{
		"outer": map[string]any{"y": 2, "x": 1},
		"list":  []any{"b", map[string]any{"k": "v"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"list":["b",{"k":"v"}],"outer":{"x":1,"y":2}}`, string(b))
}

func TestMarshalNoHTMLEscaping(t *testing.T) {
	b, err := Marshal(map[string]any{"q": "a<b&c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a<b&c>d"}`, string(b))
}

func TestMarshalEmpty(t *testing.T) {
	b, err := Marshal(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))

	b, err = Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

func TestMarshalNoTrailingNewline(t *testing.T) {
	b, err := Marshal(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "\n")
}

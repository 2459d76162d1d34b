package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindAndTypeName(t *testing.T) {
	assert.Equal(t, "integer", TypeName(json.Number("1.0")))
	assert.Equal(t, "number", TypeName(json.Number("1.5")))
	assert.Equal(t, "integer", TypeName(3))
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "object", TypeName(map[string]any{}))
	assert.Equal(t, Invalid, KindOf(struct{}{}))
}

func TestEqual_NumericAware(t *testing.T) {
	a := map[string]any{"x": []any{json.Number("1"), "s"}, "y": nil}
	b := map[string]any{"y": nil, "x": []any{1.0, "s"}}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal([]any{1}, []any{1, 2}))
	assert.False(t, Equal(map[string]any{"a": 1}, map[string]any{"b": 1}))
	assert.False(t, Equal(true, 1))
}

func TestIsMultipleOf_Exact(t *testing.T) {
	assert.True(t, IsMultipleOf(json.Number("0.3"), json.Number("0.1")))
	assert.True(t, IsMultipleOf(json.Number("1e308"), json.Number("0.5")))
	assert.False(t, IsMultipleOf(json.Number("0.35"), json.Number("0.1")))
	assert.False(t, IsMultipleOf(1, 0))
}

func TestCompareNumbers(t *testing.T) {
	c, ok := CompareNumbers(json.Number("15"), 10)
	require.True(t, ok)
	assert.Equal(t, 1, c)
	_, ok = CompareNumbers("15", 10)
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	type item struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	out, err := Normalize([]item{{Name: "a", Count: 2}})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"name": "a", "count": json.Number("2")}}, out)

	in := map[string]any{"k": []any{true}}
	same, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, in, same)
}

func TestJSON(t *testing.T) {
	assert.Equal(t, "15", JSON(json.Number("15")))
	assert.Equal(t, "2.5", JSON(2.5))
	assert.Equal(t, `"x"`, JSON("x"))
	assert.Equal(t, "null", JSON(nil))
}

func TestDigest_KeyOrderAndSets(t *testing.T) {
	sets := func(_, key string) bool { return key == "required" }
	a := map[string]any{"type": "object", "required": []any{"a", "b"}, "n": json.Number("1")}
	b := map[string]any{"n": 1.0, "required": []any{"b", "a"}, "type": "object"}
	assert.Equal(t, Digest(a, sets), Digest(b, sets))
	assert.NotEqual(t, Digest(a, nil), Digest(b, nil))
	assert.NotEqual(t, Digest("1", nil), Digest(json.Number("1"), nil))
}

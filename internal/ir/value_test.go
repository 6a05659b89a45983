package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{"string", IRString("DEFAULT"), "DEFAULT"},
		{"index name", IRString("parent_ix"), "parent_ix"},
		{"int", IRInt(5), "5"},
		{"negative int", IRInt(-1), "-1"},
		{"bool true", IRBool(true), "TRUE"},
		{"bool false", IRBool(false), "FALSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Token(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tok)
		})
	}
}

func TestTokenRejectsNonScalars(t *testing.T) {
	for _, v := range []IRValue{nil, IRNull{}, IRArray{IRInt(1)}, IRObject{"a": IRInt(1)}} {
		_, err := Token(v)
		assert.Error(t, err, "%T should have no token form", v)
	}
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as the surrogate 0xD83D and sorts before U+FF61 in
	// UTF-16, but after it in UTF-8 byte order. RFC 8785 requires UTF-16.
	obj := IRObject{
		"\U0001F600": IRInt(1),
		"\uff61":     IRInt(2),
		"a":          IRInt(3),
	}

	keys := obj.SortedKeys()
	assert.Equal(t, []string{"a", "\U0001F600", "\uff61"}, keys)
}

func TestSortedKeysPrefix(t *testing.T) {
	obj := IRObject{"ab": IRInt(1), "a": IRInt(2), "b": IRInt(3)}
	assert.Equal(t, []string{"a", "ab", "b"}, obj.SortedKeys())
}

func TestIRObjectMarshalJSONSorted(t *testing.T) {
	obj := IRObject{
		"zebra": IRInt(1),
		"alpha": IRArray{IRString("x"), IRBool(true), IRNull{}},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":["x",true,null],"zebra":1}`, string(data))
}

func TestScalarFromAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected IRValue
	}{
		{"string", "DEFAULT", IRString("DEFAULT")},
		{"int", 5, IRInt(5)},
		{"int64", int64(25), IRInt(25)},
		{"uint64", uint64(7), IRInt(7)},
		{"integral float", float64(3), IRInt(3)},
		{"bool", true, IRBool(true)},
		{"json number", json.Number("42"), IRInt(42)},
		{"largest uint64", uint64(math.MaxInt64), IRInt(math.MaxInt64)},
		{"smallest float", float64(math.MinInt64), IRInt(math.MinInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ScalarFromAny(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestScalarFromAnyRejects(t *testing.T) {
	for _, v := range []any{
		nil, 1.5, json.Number("1.5"), []any{1}, map[string]any{},
		uint64(math.MaxInt64) + 1, math.MaxUint64 * 1.0, 9.3e18, -1e19, math.NaN(), math.Inf(1),
	} {
		_, err := ScalarFromAny(v)
		assert.Error(t, err, "%#v should be rejected", v)
	}
}

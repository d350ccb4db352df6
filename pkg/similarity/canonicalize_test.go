package similarity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize_JSONKeysSortedAndFieldsIgnored(t *testing.T) {
	ignored := DefaultIgnoredJSONFields()
	a, err := Canonicalize("application/json", []byte(`{"prompt":"hello world","id":"1"}`), ignored)
	require.NoError(t, err)
	b, err := Canonicalize("application/json", []byte(`{"id":"2","prompt":"hello world"}`), ignored)
	require.NoError(t, err)
	require.Equal(t, a, b, "ignored fields and key order must not affect the canonical form")
}

func TestCanonicalize_JSONMalformedFails(t *testing.T) {
	_, err := Canonicalize("application/json", []byte(`{not json`), nil)
	require.ErrorIs(t, err, ErrCanonicalizationFailed)
}

func TestCanonicalize_TextLowercasesAndCollapsesWhitespace(t *testing.T) {
	got, err := Canonicalize("text/plain", []byte("  Hello    World  \n\tAgain "), nil)
	require.NoError(t, err)
	require.Equal(t, "hello world again", got)
}

func TestCanonicalize_NestedArraysAndObjects(t *testing.T) {
	got, err := Canonicalize("application/json", []byte(`{"b":[1,2,3],"a":{"z":true,"y":null}}`), nil)
	require.NoError(t, err)
	require.Equal(t, `{a:{y:null,z:true},b:[1,2,3]}`, got)
}

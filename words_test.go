package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupWordlist(t *testing.T) {
	simple := lookupWordlist("simple")
	advanced := lookupWordlist("advanced")

	require.NotEmpty(t, simple)
	require.NotEmpty(t, advanced)
	assert.NotEqual(t, simple, advanced)

	// Unknown names get the simple list.
	assert.Equal(t, simple, lookupWordlist(""))
	assert.Equal(t, simple, lookupWordlist("custom"))
	assert.Equal(t, simple, lookupWordlist("mystery"))

	for _, word := range simple {
		assert.NotEmpty(t, word)
	}
}

func TestLookupWordlistReturnsACopy(t *testing.T) {
	first := lookupWordlist("simple")
	first[0] = "clobbered"

	assert.NotEqual(t, "clobbered", lookupWordlist("simple")[0])
}

func TestParseCustomWords(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain", "cat,dog", []string{"cat", "dog"}},
		{"trims whitespace", " cat , dog ", []string{"cat", "dog"}},
		{"keeps spaces and quotes", `space dog,it's "art"`, []string{"space dog", `it's "art"`}},
		{"strips other symbols", "<cat>!,d@og", []string{"cat", "dog"}},
		{"drops empty entries", "cat,,!!,dog", []string{"cat", "dog"}},
		{"empty input", "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseCustomWords(tc.raw))
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Bob23", sanitizeName("Bob!23"))
	assert.Equal(t, "bBobb", sanitizeName("<b>Bob</b>"))
	assert.Equal(t, "Jörg", sanitizeName("Jörg"))
	assert.Equal(t, "", sanitizeName("!@#$"))
}

// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/tyler-smith/go-bip39/wordlists"
)

func TestWordlist(t *testing.T) {
	is := is.New(t)

	is.Equal(Wordlist("en")[0], wordlists.English[0])
	is.Equal(Wordlist("english")[0], wordlists.English[0])
	is.Equal(Wordlist("en-US")[0], wordlists.English[0])
	is.Equal(Wordlist("Japanese")[0], wordlists.Japanese[0])
	is.Equal(Wordlist("es-419")[0], wordlists.Spanish[0])
	is.Equal(Wordlist("fr-CA")[0], wordlists.French[0]) // falls back to the base language

	is.True(Wordlist("") == nil)
	is.True(Wordlist("klingon") == nil)
	is.True(Wordlist("de") == nil) // no German list
}

func TestSetLanguage(t *testing.T) {
	is := is.New(t)
	defer func() { is.NoErr(SetLanguage("en")) }()

	is.NoErr(SetLanguage("spanish"))
	phrase, err := NewMnemonic(DefaultWordCount)
	is.NoErr(err)

	spanish := make(map[string]bool, len(wordlists.Spanish))
	for _, w := range wordlists.Spanish {
		spanish[w] = true
	}
	for _, w := range strings.Fields(phrase) {
		is.True(spanish[w])
	}

	is.True(SetLanguage("klingon") != nil)
}

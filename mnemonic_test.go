// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// TestNewMnemonic_WordCounts tests that every supported word count produces
// a valid phrase of that length
func TestNewMnemonic_WordCounts(t *testing.T) {
	for _, count := range []int{12, 15, 18, 21, 24} {
		is := is.New(t)

		mnemonic, err := NewMnemonic(count)
		is.NoErr(err)
		is.Equal(len(strings.Fields(mnemonic)), count)

		parsed, err := ParseMnemonic(mnemonic)
		is.NoErr(err)
		is.Equal(parsed, mnemonic)
	}
}

// TestNewMnemonic_InvalidWordCount tests that unsupported word counts are rejected
func TestNewMnemonic_InvalidWordCount(t *testing.T) {
	is := is.New(t)

	for _, count := range []int{0, 11, 13, 16, 25} {
		_, err := NewMnemonic(count)
		is.True(err != nil)
	}
}

// TestNewMnemonic_Random tests that two phrases are never the same
func TestNewMnemonic_Random(t *testing.T) {
	is := is.New(t)

	a, err := NewMnemonic(DefaultWordCount)
	is.NoErr(err)
	b, err := NewMnemonic(DefaultWordCount)
	is.NoErr(err)
	is.True(a != b)
}

func TestParseMnemonic(t *testing.T) {
	is := is.New(t)

	parsed, err := ParseMnemonic("  abandon abandon\tabandon abandon abandon abandon\nabandon abandon abandon abandon abandon about \n")
	is.NoErr(err)
	is.Equal(parsed, testMnemonic)

	_, err = ParseMnemonic("")
	is.True(err != nil) // empty

	_, err = ParseMnemonic(strings.Repeat("abandon ", 12))
	is.True(err != nil) // bad checksum

	_, err = ParseMnemonic("abandon abandon notaword")
	is.True(err != nil)
}

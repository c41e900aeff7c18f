// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// DefaultWordCount is the length of phrases created by the CLI.
const DefaultWordCount = 12

// entropySizeMap maps a BIP39 word count to its entropy size in bytes.
var entropySizeMap = map[int]int{
	12: 16, // 128 bits
	15: 20, // 160 bits
	18: 24, // 192 bits
	21: 28, // 224 bits
	24: 32, // 256 bits
}

// NewMnemonic returns a fresh random BIP39 phrase of the given word count in
// the currently selected word list (see bip39.SetWordList).
//
// Valid word counts are: 12, 15, 18, 21, or 24.
func NewMnemonic(wordCount int) (string, error) {
	entropySize, ok := entropySizeMap[wordCount]
	if !ok {
		return "", errors.Errorf("invalid word count: %d (must be 12, 15, 18, 21, or 24)", wordCount)
	}

	entropy, err := bip39.NewEntropy(entropySize * 8)
	if err != nil {
		return "", errors.Wrap(err, "could not read entropy")
	}

	words, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrap(err, "could not create a mnemonic set of words")
	}
	return words, nil
}

// ParseMnemonic normalizes whitespace in s and validates it as a BIP39
// phrase, checksum included.
func ParseMnemonic(s string) (string, error) {
	phrase := strings.Join(strings.Fields(s), " ")
	if phrase == "" {
		return "", errors.New("empty mnemonic")
	}
	if _, err := bip39.EntropyFromMnemonic(phrase); err != nil {
		return "", errors.Wrap(err, "invalid mnemonic")
	}
	return phrase, nil
}

// seedFromMnemonic returns the 64 byte BIP39 seed for phrase with an empty
// passphrase.
func seedFromMnemonic(phrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(phrase, "")
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	return seed, nil
}

// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"
	lang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var wordLists = map[lang.Tag][]string{
	lang.Chinese:              wordlists.ChineseSimplified,
	lang.SimplifiedChinese:    wordlists.ChineseSimplified,
	lang.TraditionalChinese:   wordlists.ChineseTraditional,
	lang.Czech:                wordlists.Czech,
	lang.AmericanEnglish:      wordlists.English,
	lang.BritishEnglish:       wordlists.English,
	lang.English:              wordlists.English,
	lang.French:               wordlists.French,
	lang.Italian:              wordlists.Italian,
	lang.Japanese:             wordlists.Japanese,
	lang.Korean:               wordlists.Korean,
	lang.Spanish:              wordlists.Spanish,
	lang.EuropeanSpanish:      wordlists.Spanish,
	lang.LatinAmericanSpanish: wordlists.Spanish,
}

// SetLanguage selects the BIP39 word list used by NewMnemonic and
// ParseMnemonic. language is a BCP 47 tag ("en", "es-419") or an English
// language name ("japanese", "traditional chinese").
//
// The word list is process-wide state of the bip39 package.
func SetLanguage(language string) error {
	list := Wordlist(language)
	if list == nil {
		return errors.Errorf("language %q is not supported", language)
	}
	bip39.SetWordList(list)
	return nil
}

// Wordlist returns the BIP39 word list for language, or nil if there is none.
func Wordlist(language string) []string {
	language = sanitizeLang(language)
	if language == "" {
		return nil
	}
	tag, err := lang.Parse(language)
	if err != nil {
		tag = lang.Und
	}
	en := display.English.Languages()
	for t := range wordLists {
		if sanitizeLang(en.Name(t)) == language {
			tag = t
			break
		}
	}
	if tag == lang.Und {
		return nil
	}
	if wl := wordLists[tag]; wl != nil {
		return wl
	}
	base, _ := tag.Base()
	return wordLists[lang.Make(base.String())]
}

func sanitizeLang(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

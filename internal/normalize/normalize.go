// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize canonicalizes strings before equality and substring
// tests. All functions are pure and idempotent.
//
// Normalize repairs mojibake, folds case, collapses whitespace and trims
// special characters from both ends. NameKey additionally transliterates to
// ASCII and drops inner punctuation; it is used only for author names so
// titles and affiliations keep their accents.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize returns the comparison form of text: mojibake repaired, case
// folded, internal whitespace collapsed, special characters trimmed from
// both ends.
func Normalize(text string) string {
	s := RepairMojibake(text)
	s = folder.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return TrimSpecial(s)
}

// NameKey returns the comparison form of an author name: Normalize, then
// ASCII transliteration, with inner punctuation turned into spaces
// ("José-Luis  Pérez." -> "jose luis perez").
func NameKey(name string) string {
	s := Transliterate(Normalize(name))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// TrimSpecial strips spaces, commas, hyphens and other punctuation from both
// ends of text until none remain.
func TrimSpecial(text string) string {
	return strings.TrimFunc(text, isSpecial)
}

func isSpecial(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || r == '∗'
}

// asciiPunctuation is every printable ASCII punctuation character.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// StripPunctuation removes every ASCII punctuation character from text.
func StripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return r
	}, text)
}

// StripPunctuationAll applies StripPunctuation to each element.
func StripPunctuationAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = StripPunctuation(s)
	}
	return out
}

// letterFolds covers letters that do not decompose into base + mark.
var letterFolds = strings.NewReplacer(
	"ß", "ss", "ø", "o", "Ø", "O", "ł", "l", "Ł", "L", "đ", "d", "Đ", "D",
	"æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE", "þ", "th", "Þ", "Th", "ı", "i",
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Transliterate folds diacritics and special letters to ASCII. Runes with
// no ASCII equivalent are kept.
func Transliterate(text string) string {
	s := letterFolds.Replace(text)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// RepairMojibake fixes text that was decoded with the wrong codec, such as
// UTF-8 read as Windows-1252 ("MÃ¼ller" -> "Müller"), including double
// encodings, and recombines spacing accents emitted by PDF text layers
// ("F¨orstner" -> "Förstner"). Text without mojibake markers is returned
// unchanged.
func RepairMojibake(text string) string {
	s := text
	for i := 0; i < 3 && badness(s) > 0; i++ {
		fixed, ok := reencode(s)
		if !ok || badness(fixed) >= badness(s) {
			break
		}
		s = fixed
	}
	return recombineAccents(s)
}

// badness counts runes that typically only appear in mis-decoded UTF-8.
func badness(s string) int {
	n := strings.Count(s, "â€")
	for _, r := range s {
		switch {
		case r == 'Ã', r == 'Â', r == utf8.RuneError:
			n++
		case r >= 0x80 && r <= 0x9f:
			n++
		}
	}
	return n
}

// reencode turns each rune back into its single-byte code point and
// reinterprets the bytes as UTF-8.
func reencode(s string) (string, bool) {
	for _, cm := range []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1} {
		raw, err := cm.NewEncoder().String(s)
		if err != nil {
			continue
		}
		if utf8.ValidString(raw) && raw != s {
			return raw, true
		}
	}
	return "", false
}

// spacingAccents maps spacing accent characters to their combining forms.
var spacingAccents = map[rune]rune{
	'\u00a8': '\u0308', // diaeresis
	'\u00b4': '\u0301', // acute
	'\u02c6': '\u0302', // circumflex
	'\u02dc': '\u0303', // tilde
}

func recombineAccents(s string) string {
	if !strings.ContainsAny(s, "\u00a8\u00b4\u02c6\u02dc") {
		return s
	}
	rs := []rune(s)
	var b strings.Builder
	for i := 0; i < len(rs); i++ {
		mark, isAccent := spacingAccents[rs[i]]
		if isAccent && i+1 < len(rs) && unicode.IsLetter(rs[i+1]) {
			composed := norm.NFC.String(string([]rune{rs[i+1], mark}))
			if utf8.RuneCountInString(composed) == 1 {
				b.WriteString(composed)
				i++
				continue
			}
		}
		b.WriteRune(rs[i])
	}
	return b.String()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

//go:embed words.txt
var embeddedWords string

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// maxEdit2Len bounds the word length for which distance-2 candidates are
// generated.
const maxEdit2Len = 12

// Speller corrects spelling word by word. Implementations must be pure.
type Speller interface {
	Correct(text string) string
}

// Dictionary is a frequency-ranked word list used for edit-distance
// spelling correction. Words not in the dictionary and with no known word
// within two edits are left unchanged.
type Dictionary struct {
	freq map[string]int
}

// NewDictionary builds a dictionary from word frequencies. Words are
// lowercased.
func NewDictionary(freq map[string]int) *Dictionary {
	d := &Dictionary{freq: make(map[string]int, len(freq))}
	for w, n := range freq {
		d.freq[strings.ToLower(w)] += n
	}
	return d
}

// LoadDictionary reads one word per line, optionally followed by a
// whitespace-separated count. Words without a count are ranked by position:
// earlier lines are more frequent. Blank lines and lines starting with #
// are skipped.
func LoadDictionary(r io.Reader) (*Dictionary, error) {
	var lines [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}

	freq := make(map[string]int, len(lines))
	for i, fields := range lines {
		n := len(lines) - i
		if len(fields) > 1 {
			c, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("dictionary line %d: invalid count %q", i+1, fields[1])
			}
			n = c
		}
		freq[strings.ToLower(fields[0])] += n
	}
	return NewDictionary(freq), nil
}

// LoadDictionaryFile reads a dictionary from path and merges the embedded
// word list into it.
func LoadDictionaryFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary %s: %w", path, err)
	}
	defer f.Close()

	d, err := LoadDictionary(f)
	if err != nil {
		return nil, err
	}
	for w, n := range DefaultDictionary().freq {
		d.freq[w] += n
	}
	return d, nil
}

// DefaultDictionary returns the dictionary built from the embedded word list.
func DefaultDictionary() *Dictionary {
	d, err := LoadDictionary(strings.NewReader(embeddedWords))
	if err != nil {
		panic(fmt.Sprintf("embedded dictionary: %v", err))
	}
	return d
}

// Known reports whether word is in the dictionary.
func (d *Dictionary) Known(word string) bool {
	_, ok := d.freq[strings.ToLower(word)]
	return ok
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	return len(d.freq)
}

// Correct lowercases text and replaces each misspelled alphabetic word of
// three or more letters with its most frequent known neighbour. Other
// tokens pass through. Whitespace is collapsed to single spaces.
func (d *Dictionary) Correct(text string) string {
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		words[i] = d.correctWord(w)
	}
	return strings.Join(words, " ")
}

func (d *Dictionary) correctWord(w string) string {
	if len(w) < 3 || !isAlpha(w) {
		return w
	}
	if _, ok := d.freq[w]; ok {
		return w
	}
	e1 := edits1(w)
	if best, ok := d.best(e1); ok {
		return best
	}
	if len(w) > maxEdit2Len {
		return w
	}
	var e2 []string
	for _, c := range e1 {
		e2 = append(e2, edits1(c)...)
	}
	if best, ok := d.best(e2); ok {
		return best
	}
	return w
}

// best returns the most frequent known candidate; ties go to the
// lexicographically smallest word.
func (d *Dictionary) best(candidates []string) (string, bool) {
	var known []string
	for _, c := range candidates {
		if _, ok := d.freq[c]; ok {
			known = append(known, c)
		}
	}
	if len(known) == 0 {
		return "", false
	}
	sort.Slice(known, func(i, j int) bool {
		fi, fj := d.freq[known[i]], d.freq[known[j]]
		if fi != fj {
			return fi > fj
		}
		return known[i] < known[j]
	})
	return known[0], true
}

func edits1(w string) []string {
	out := make([]string, 0, 54*len(w)+25)
	for i := 0; i <= len(w); i++ {
		left, right := w[:i], w[i:]
		if right != "" {
			out = append(out, left+right[1:])
		}
		if len(right) > 1 {
			out = append(out, left+string(right[1])+string(right[0])+right[2:])
		}
		for _, c := range alphabet {
			if right != "" {
				out = append(out, left+string(c)+right[1:])
			}
			out = append(out, left+string(c)+right)
		}
	}
	return out
}

func isAlpha(w string) bool {
	for _, r := range w {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

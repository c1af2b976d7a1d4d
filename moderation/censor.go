// Package moderation masks banned words in message content before it is
// persisted or relayed.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Censor holds an Aho-Corasick automaton over a normalized banned-word list.
// Matching ignores case, punctuation and spacing, so "b a.d" still matches
// "bad"; masking happens on the original runes to preserve layout.
type Censor struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// NewCensor builds the automaton. An empty word list yields a censor that
// returns content untouched.
func NewCensor(words []string, replacement rune) (*Censor, error) {
	if len(words) == 0 {
		return &Censor{replacement: replacement}, nil
	}
	patterns := make([][]rune, len(words))
	for i, w := range words {
		patterns[i] = normalize([]rune(w), nil)
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Censor{machine: machine, replacement: replacement}, nil
}

// Apply replaces every banned span of content with the replacement rune.
func (c *Censor) Apply(content string) string {
	if c.machine == nil {
		return content
	}

	original := []rune(content)
	var origIdx []int
	normalized := normalize(original, &origIdx)
	if len(normalized) == 0 {
		return content
	}

	terms := c.machine.MultiPatternSearch(normalized, false)
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			original[i] = c.replacement
		}
	}
	return string(original)
}

// normalize lowercases and strips punctuation/whitespace. When origIdx is
// non-nil it records, per kept rune, the index into the original slice.
func normalize(in []rune, origIdx *[]int) []rune {
	out := make([]rune, 0, len(in))
	for i, r := range in {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
		if origIdx != nil {
			*origIdx = append(*origIdx, i)
		}
	}
	return out
}

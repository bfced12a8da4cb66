// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

// ContextExtractor cuts the text window around a match
type ContextExtractor struct {
	// Number of characters before and after the match to keep
	ContextChars int
}

// NewContextExtractor creates a new context extractor with default settings
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{
		ContextChars: 20,
	}
}

// WithContextChars sets the number of context characters
func (ce *ContextExtractor) WithContextChars(chars int) *ContextExtractor {
	ce.ContextChars = chars
	return ce
}

// ExtractContext returns the runes in [start-ContextChars, end+ContextChars),
// clamped to the text. Offsets are character offsets.
func (ce *ContextExtractor) ExtractContext(text []rune, start, end int) string {
	if len(text) == 0 || end <= start {
		return ""
	}
	from := max(0, start-ce.ContextChars)
	to := min(len(text), end+ce.ContextChars)
	if from >= to {
		return ""
	}
	return string(text[from:to])
}

// RuneOffsets maps every byte offset of s (plus len(s)) to a character
// offset. Regex engines report byte offsets; the data model is in
// characters. Continuation bytes map to the character they belong to.
func RuneOffsets(s string) []int {
	offsets := make([]int, len(s)+1)
	n := -1
	for i := range s {
		n++
		offsets[i] = n
		for j := i + 1; j < len(s) && !isRuneStart(s[j]); j++ {
			offsets[j] = n
		}
	}
	offsets[len(s)] = n + 1
	return offsets
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

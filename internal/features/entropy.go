package features

import "math"

// Entropy returns the Shannon entropy (base 2) of the character distribution of text.
// The empty string has zero entropy.
func Entropy(text string) float64 {
	if text == "" {
		return 0
	}

	freq := make(map[rune]int)
	total := 0
	for _, c := range text {
		freq[c]++
		total++
	}

	var entropy float64
	for _, count := range freq {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}

	// -0 for single-symbol strings
	if entropy == 0 {
		return 0
	}
	return entropy
}

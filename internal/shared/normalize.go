package shared

import (
	"strings"
	"unicode"
)

var noiseTokens = map[string]struct{}{
	"clean":      {},
	"deluxe":     {},
	"edition":    {},
	"edit":       {},
	"explicit":   {},
	"feat":       {},
	"featuring":  {},
	"ft":         {},
	"live":       {},
	"mono":       {},
	"remaster":   {},
	"remastered": {},
	"stereo":     {},
	"version":    {},
}

// NormalizeText lowercases input, collapses separators to single spaces and keeps bracketed text.
func NormalizeText(input string) string {
	return strings.Join(strings.Fields(cleanSeparators(strings.ToLower(input))), " ")
}

// NormalizeSearchInput prepares a title or artist for fuzzy comparison by dropping bracketed segments and noise tokens.
func NormalizeSearchInput(input string) string {
	if input == "" {
		return ""
	}

	filtered := stripBracketedSegments(strings.ToLower(input))
	tokens := strings.Fields(cleanSeparators(filtered))

	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, drop := noiseTokens[token]; drop {
			continue
		}
		cleaned = append(cleaned, token)
	}

	return strings.Join(cleaned, " ")
}

// Similarity returns 1 - levenshtein(a, b)/max(len(a), len(b)).
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(levenshteinDistance(a, b))/float64(maxLen)
}

// ContainsAny reports whether the normalized haystack contains any of the phrases.
func ContainsAny(haystack string, phrases []string) bool {
	h := " " + NormalizeText(haystack) + " "
	for _, p := range phrases {
		if strings.Contains(h, " "+p+" ") {
			return true
		}
	}
	return false
}

func stripBracketedSegments(input string) string {
	var out strings.Builder
	depth := 0
	for _, r := range input {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				out.WriteRune(r)
			}
		}
	}

	return out.String()
}

func cleanSeparators(input string) string {
	var out strings.Builder
	lastSpace := false
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			out.WriteRune(' ')
			lastSpace = true
		}
	}
	return out.String()
}

func levenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

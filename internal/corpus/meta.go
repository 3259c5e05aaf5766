package corpus

import (
	"regexp"
	"strconv"
	"strings"
)

// yearPattern matches a four-digit year in the 1900s or 2000s anywhere
// in a path. Corpus trees are commonly organized by year directories.
var yearPattern = regexp.MustCompile(`(19\d{2}|20\d{2})`)

// defaultYear is assumed when a path carries no year at all.
const defaultYear = 2024

// Year extracts a four-digit year from a sample path, or defaultYear if
// none is present.
func Year(path string) int {
	m := yearPattern.FindStringSubmatch(path)
	if m == nil {
		return defaultYear
	}
	year, _ := strconv.Atoi(m[1])
	return year
}

// Family guesses the malware family from a sample path by scanning for
// known family names. The first configured name found wins and is
// returned title-cased; unknown paths return "Unknown".
func Family(path string, families []string) string {
	lower := strings.ToLower(path)
	for _, family := range families {
		if strings.Contains(lower, strings.ToLower(family)) {
			return titleCase(family)
		}
	}
	return "Unknown"
}

// titleCase upper-cases the first letter of each space-separated word,
// matching how family names are reported.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

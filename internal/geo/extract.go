package geo

import (
	"regexp"
	"strings"
)

// maxCities caps extraction so a pathological destination string cannot
// trigger an unbounded geocoding run.
const maxCities = 20

// splitPattern covers the delimiters travel agents actually type between
// city names: commas, semicolons, bullets, pipes, slashes, newlines,
// arrows, and dashes. A plain hyphen only splits when space-surrounded so
// names like "Aix-en-Provence" survive.
var splitPattern = regexp.MustCompile(`[,;•|/\n\r]+|->|→|—|–|\s-\s`)

// stoplist filters tokens that describe the trip rather than name a place.
var stoplist = map[string]struct{}{
	"day": {}, "days": {}, "night": {}, "nights": {},
	"week": {}, "weeks": {}, "km": {}, "miles": {},
	"tour": {}, "trip": {}, "and": {}, "via": {},
}

var numericToken = regexp.MustCompile(`^[0-9]+$`)

// ExtractCities pulls candidate city names out of free-text trip
// destinations. It is a heuristic splitter, not an NLP pipeline: text with
// no delimiters between city names comes back as a single token.
// Tokens are trimmed; tokens of two characters or fewer, stoplist words,
// and pure numbers are dropped; duplicates are removed case-insensitively
// preserving first-seen order; the result is capped at 20 entries.
func ExtractCities(text string) []string {
	var cities []string
	seen := make(map[string]struct{})

	for _, token := range splitPattern.Split(text, -1) {
		token = strings.TrimSpace(token)
		if len([]rune(token)) <= 2 {
			continue
		}
		lower := strings.ToLower(token)
		if _, stop := stoplist[lower]; stop {
			continue
		}
		if numericToken.MatchString(token) {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		cities = append(cities, token)
		if len(cities) == maxCities {
			break
		}
	}

	return cities
}

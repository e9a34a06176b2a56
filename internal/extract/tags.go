package extract

import "sort"

// MaxTags caps each tag list.
const MaxTags = 3

// rankTags counts keyword hits per tag and returns the names of the best
// MaxTags, most hits first. Ties keep vocabulary order.
func rankTags(tags []tagMatcher, text string) []string {
	type hit struct {
		name  string
		count int
	}
	hits := make([]hit, 0, len(tags))
	for _, tag := range tags {
		if n := countMatches(tag.re, text); n > 0 {
			hits = append(hits, hit{name: tag.name, count: n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].count > hits[j].count })
	if len(hits) > MaxTags {
		hits = hits[:MaxTags]
	}
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.name)
	}
	return names
}

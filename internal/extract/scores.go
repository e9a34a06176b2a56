package extract

import (
	"math"
	"regexp"
	"strings"
)

const (
	clarityBase          = 85.0
	clarityLongSentence  = 20.0
	clarityLengthWeight  = 1.5
	clarityLengthMax     = 25.0
	clarityPassiveWeight = 20.0
	clarityPassiveMax    = 15.0
	clarityStructure     = 5.0
	clarityListMinItems  = 3

	deiBase    = 80.0
	deiPenalty = 5.0
	deiBonus   = 3.0
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n+`)
	wordPattern   = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	vowelGroups   = regexp.MustCompile(`[aeiouy]+`)
)

type textStats struct {
	prose     string
	words     []string
	sentences int
	headers   int
	bullets   int
}

func collectStats(lines []line) textStats {
	var stats textStats
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		switch l.kind {
		case lineBlank:
			continue
		case lineHeader, lineBold:
			stats.headers++
			continue
		case lineBullet:
			stats.bullets++
		}
		parts = append(parts, plainText([]string{l.raw}))
	}
	stats.prose = strings.Join(parts, "\n")
	stats.words = wordPattern.FindAllString(stats.prose, -1)
	for _, fragment := range sentenceSplit.Split(stats.prose, -1) {
		if wordPattern.MatchString(fragment) {
			stats.sentences++
		}
	}
	return stats
}

func (e *Extractor) score(lines []line) Scores {
	stats := collectStats(lines)
	return Scores{
		Clarity:         clampScore(e.clarity(stats)),
		DEIFriendliness: clampScore(e.deiFriendliness(stats)),
		ReadingLevel:    clampScore(readingEase(stats)),
	}
}

func (e *Extractor) clarity(stats textStats) float64 {
	score := clarityBase
	if stats.sentences > 0 {
		avg := float64(len(stats.words)) / float64(stats.sentences)
		if avg > clarityLongSentence {
			score -= math.Min((avg-clarityLongSentence)*clarityLengthWeight, clarityLengthMax)
		}
		density := float64(countMatches(e.passiveRe, stats.prose)) / float64(stats.sentences)
		score -= math.Min(density*clarityPassiveWeight, clarityPassiveMax)
	}
	if stats.headers > 0 {
		score += clarityStructure
	}
	if stats.bullets >= clarityListMinItems {
		score += clarityStructure
	}
	return score
}

func (e *Extractor) deiFriendliness(stats textStats) float64 {
	excl := countMatches(e.exclusiveRe, stats.prose)
	incl := countMatches(e.inclusiveRe, stats.prose)
	return deiBase - deiPenalty*float64(excl) + deiBonus*float64(incl)
}

// readingEase is the Flesch reading ease of the prose. Text without words
// reads as trivially easy.
func readingEase(stats textStats) float64 {
	if len(stats.words) == 0 || stats.sentences == 0 {
		return ScoreCeiling
	}
	syllables := 0
	for _, w := range stats.words {
		syllables += countSyllables(w)
	}
	words := float64(len(stats.words))
	return 206.835 - 1.015*(words/float64(stats.sentences)) - 84.6*(float64(syllables)/words)
}

// countSyllables approximates syllables as vowel groups, discounting a
// silent trailing "e".
func countSyllables(word string) int {
	word = strings.ToLower(word)
	n := len(vowelGroups.FindAllStringIndex(word, -1))
	if n > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return ScoreFloor
	}
	r := int(math.Round(v))
	if r < ScoreFloor {
		return ScoreFloor
	}
	if r > ScoreCeiling {
		return ScoreCeiling
	}
	return r
}

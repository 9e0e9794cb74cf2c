package matching

import (
	"math"
	"sort"
)

// KeywordScore is the share of required skills present in have. A job without
// required skills scores 0.
func KeywordScore(required []string, have map[string]bool) float64 {
	if len(required) == 0 {
		return 0
	}
	hits := 0
	for _, s := range required {
		if have[s] {
			hits++
		}
	}
	return float64(hits) / float64(len(required))
}

// Fuse combines semantic and keyword scores.
func Fuse(semantic, keyword float64, w Weights) float64 {
	return w.Semantic*semantic + w.Keyword*keyword
}

// splitSkills partitions required into skills present in have and skills
// missing from it, both sorted.
func splitSkills(required []string, have map[string]bool) (matched, missing []string) {
	matched = make([]string, 0, len(required))
	missing = make([]string, 0, len(required))
	for _, s := range required {
		if have[s] {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	sort.Strings(matched)
	sort.Strings(missing)
	return matched, missing
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

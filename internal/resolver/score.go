package resolver

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/sells-group/meeting-agent/internal/model"
)

// Score rates how well a mention text matches a candidate name, on a 0..100
// scale. Exact normalized equality is always 100; otherwise the score is the
// best of whole-string, order-insensitive, and token-pair similarity.
func Score(t model.EntityType, mention, name string) float64 {
	a := normalizeFor(t, mention)
	b := normalizeFor(t, name)

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	best := levenshtein.Similarity(a, b, nil)

	if s := sortedTokenSimilarity(a, b); s > best {
		best = s
	}
	if s := tokenPairSimilarity(a, b); s > best {
		best = s
	}

	return clamp(best * 100)
}

func normalizeFor(t model.EntityType, s string) string {
	if t == model.EntityCompany {
		return NormalizeCompany(s)
	}
	return Normalize(s)
}

// sortedTokenSimilarity compares the strings with tokens in sorted order, so
// "dubois patrick" still matches "Patrick Dubois".
func sortedTokenSimilarity(a, b string) float64 {
	at := strings.Fields(a)
	bt := strings.Fields(b)
	if len(at) < 2 && len(bt) < 2 {
		return 0
	}
	sort.Strings(at)
	sort.Strings(bt)
	return levenshtein.Similarity(strings.Join(at, " "), strings.Join(bt, " "), nil)
}

// tokenPairSimilarity greedily pairs each mention token with its best
// candidate token and averages the pair similarities, weighted by token
// length. Catches partial mentions like "Pierre" against "Pierre Lefevre".
func tokenPairSimilarity(a, b string) float64 {
	at := strings.Fields(a)
	bt := strings.Fields(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}

	var weighted, totalWeight float64
	for _, ta := range at {
		var best float64
		for _, tb := range bt {
			if s := levenshtein.Similarity(ta, tb, nil); s > best {
				best = s
			}
		}
		w := float64(len(ta))
		weighted += best * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}

	score := weighted / totalWeight

	// A partial mention should not outrank a full match of the same record.
	if len(at) < len(bt) {
		coverage := float64(len(at)) / float64(len(bt))
		score *= 0.75 + 0.25*coverage
	}
	return score
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

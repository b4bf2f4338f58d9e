package resolver

import (
	"sort"

	"github.com/sahilm/fuzzy"
)

// Thresholds configures the did-you-mean auto-select behavior (§4.2).
type Thresholds struct {
	FirstMin  float64 // minimum normalized score [0,1] for the top match to auto-select
	SecondMax float64 // maximum normalized score the runner-up may have
}

// Suggestion is one did-you-mean candidate with its normalized score.
type Suggestion struct {
	Name  string
	Score float64
}

// Suggest scores every indexed command name against input using
// sahilm/fuzzy and returns them best-first.
func (idx *Index) Suggest(input string) []Suggestion {
	names := make([]string, 0, len(idx.records))
	for name := range idx.records {
		names = append(names, name)
	}
	sort.Strings(names) // stable ordering before fuzzy scoring, for deterministic ties

	matches := fuzzy.Find(input, names) // already sorted best-first by Score

	maxScore := 0
	for _, m := range matches {
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}

	suggestions := make([]Suggestion, len(matches))
	for i, m := range matches {
		score := 0.0
		if maxScore > 0 {
			score = float64(m.Score) / float64(maxScore)
		}
		suggestions[i] = Suggestion{Name: m.Str, Score: score}
	}
	return suggestions
}

// AutoSelect applies Thresholds to ranked suggestions: if the top score
// meets FirstMin and the runner-up is below SecondMax, the top suggestion
// is returned with ok=true; otherwise the caller should prompt or print the
// best suggestion and exit non-zero, per §4.2.
func AutoSelect(suggestions []Suggestion, th Thresholds) (Suggestion, bool) {
	if len(suggestions) == 0 {
		return Suggestion{}, false
	}
	top := suggestions[0]
	if top.Score < th.FirstMin {
		return Suggestion{}, false
	}
	if len(suggestions) > 1 && suggestions[1].Score >= th.SecondMax {
		return Suggestion{}, false
	}
	return top, true
}

package resolver

import "sort"

// Dispatch finds the command record whose name-path is the longest prefix
// of tokens (§4.2). Ties break by source precedence, then lexicographically
// on name-path. Returns the matched record and the remaining tokens to pass
// as argv, or ok=false if nothing matched.
func (idx *Index) Dispatch(tokens []string) (rec Record, argv []string, ok bool) {
	var candidates []Record
	for _, r := range idx.records {
		if isPrefix(r.NamePath, tokens) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return Record{}, nil, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i].NamePath) != len(candidates[j].NamePath) {
			return len(candidates[i].NamePath) > len(candidates[j].NamePath) // longest first
		}
		if candidates[i].Source != candidates[j].Source {
			return candidates[i].Source < candidates[j].Source // lower Source value wins
		}
		return candidates[i].Name() < candidates[j].Name()
	})

	best := candidates[0]
	return best, tokens[len(best.NamePath):], true
}

func isPrefix(namePath, tokens []string) bool {
	if len(namePath) > len(tokens) {
		return false
	}
	for i, tok := range namePath {
		if tokens[i] != tok {
			return false
		}
	}
	return true
}

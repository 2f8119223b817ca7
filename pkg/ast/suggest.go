package ast

import "github.com/xrash/smetrics"

// NameSuggester collects every field, type, and extension-alias name
// declared in a Spec so a caller can ask for a "did you mean"
// suggestion against all of them. The builder's UnknownExtension check
// does not use it: it calls SuggestName with the declared aliases only.
type NameSuggester struct {
	known []string
}

// NewNameSuggester indexes every name a Spec declares.
func NewNameSuggester(spec *Spec) *NameSuggester {
	s := &NameSuggester{}
	for _, f := range spec.Inputs {
		s.known = append(s.known, f.Name)
	}
	for _, f := range spec.Computed {
		s.known = append(s.known, f.Name)
	}
	for _, t := range spec.Types {
		s.known = append(s.known, t.Name)
	}
	for _, e := range spec.Extensions {
		s.known = append(s.known, e.Alias)
	}
	return s
}

// Suggest returns the closest known name to want, or "" if nothing is
// close enough to be useful.
func (s *NameSuggester) Suggest(want string) string {
	return SuggestName(s.known, want)
}

// SuggestName returns the entry of candidates closest to want by
// Jaro-Winkler similarity, or "" if nothing scores high enough to be
// a useful "did you mean" suggestion rather than noise.
func SuggestName(candidates []string, want string) string {
	best := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		score := smetrics.JaroWinkler(want, candidate, 0.7, 4)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if bestScore < 0.75 {
		return ""
	}
	return best
}

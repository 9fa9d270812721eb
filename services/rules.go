package services

// rule is one step of a fallback chain: resolve reports whether it applies
// to the input and, if so, its answer.
type rule[In any, Out any] struct {
	name    string
	resolve func(In) (Out, bool)
}

// evaluate runs rules in order and returns the first answer together with
// the name of the rule that produced it.
func evaluate[In any, Out any](rules []rule[In, Out], in In) (Out, string, bool) {
	for _, r := range rules {
		if out, ok := r.resolve(in); ok {
			return out, r.name, true
		}
	}
	var zero Out
	return zero, "", false
}

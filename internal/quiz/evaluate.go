package quiz

import "strconv"

// Evaluate classifies a submitted answer against the expected value.
//
// A miss within ±1 of the expected value, or within edit distance 1 of
// a two-or-more-digit expected value, is treated as a typo rather than
// a conceptual error. Typos advance the session but touch neither the
// streak nor the weak-spot model.
func Evaluate(submitted, expected int) Verdict {
	if submitted == expected {
		return Correct
	}
	if abs(submitted-expected) <= 1 {
		return TypoTolerated
	}
	want := strconv.Itoa(expected)
	if len(want) >= 2 && levenshtein(strconv.Itoa(submitted), want) <= 1 {
		return TypoTolerated
	}
	return Incorrect
}

// DetectConfusion looks for an alternate fact explaining a wrong
// answer to a×b: if the submitted value is a clean multiple of one
// operand and the implied other operand lands in a plausible range,
// the learner probably recalled that fact instead.
func DetectConfusion(a, b, submitted int) (Confusion, bool) {
	if submitted != 0 && submitted%a == 0 {
		k := submitted / a
		if k != b && k >= 1 && k <= 10 {
			return Confusion{A: a, B: k, Product: submitted}, true
		}
	}
	if submitted != 0 && submitted%b == 0 {
		k := submitted / b
		if k != a && k >= 1 && k <= 100 {
			return Confusion{A: k, B: b, Product: submitted}, true
		}
	}
	return Confusion{}, false
}

// levenshtein computes the classic edit distance between two strings.
func levenshtein(s1, s2 string) int {
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 0; i < len(s1); i++ {
		curr[0] = i + 1
		for j := 0; j < len(s2); j++ {
			cost := 0
			if s1[i] != s2[j] {
				cost = 1
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

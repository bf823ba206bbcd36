// Package quiz generates multiplication questions and evaluates answers.
// Generation is pure and randomized; evaluation is deterministic.
package quiz

// Question is a standard multiplication prompt.
type Question struct {
	A       int
	B       int
	Product int
}

// Equation is a solve-for-the-unknown prompt. Text is the rendered
// equation, X the value satisfying it, Explanation the algebraic steps
// to derive X, and Known the absolute value of the multiplier next to
// x (used to offer the matching multiplication table afterwards).
type Equation struct {
	Text        string
	X           int
	Explanation string
	Known       int
}

// Verdict classifies a submitted answer.
type Verdict int

const (
	Incorrect Verdict = iota
	TypoTolerated
	Correct
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case TypoTolerated:
		return "typo"
	default:
		return "incorrect"
	}
}

// Confusion describes an alternate multiplication fact the learner
// likely computed instead of the one asked.
type Confusion struct {
	A       int
	B       int
	Product int
}

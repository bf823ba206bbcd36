package quiz

import (
	"fmt"
	"math/rand"
	"time"
)

// Generator produces randomized questions. It is not safe for
// concurrent use; the engine serializes access per conversation and
// shares one generator behind its own lock.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng gets a time-seeded one;
// tests pass a fixed-seed source for reproducibility.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// intn returns a uniform value in [lo, hi] inclusive.
func (g *Generator) intn(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

// Question generates a multiplication question for the given level.
// pinned fixes the first operand when non-zero (level 1 only).
//
// Level 1: both operands in [2,9]. Level 2: [10,99] × [2,9].
// Level 3: [10,99] × [10,99].
func (g *Generator) Question(level, pinned int) Question {
	var a, b int
	switch level {
	case 2:
		a = g.intn(10, 99)
		b = g.intn(2, 9)
	case 3:
		a = g.intn(10, 99)
		b = g.intn(10, 99)
	default:
		if pinned != 0 {
			a = pinned
		} else {
			a = g.intn(2, 9)
		}
		b = g.intn(2, 9)
	}
	return Question{A: a, B: b, Product: a * b}
}

// Equation generates a solve-for-x prompt.
//
// Level 1 is a bare product (a·x = b or x·a = b). Level 2 adds a
// one-digit constant and four shapes, allowing negative multipliers
// and unknowns. Level 3 keeps the first two shapes with wider ranges
// and a constant in [10,999].
func (g *Generator) Equation(level int) Equation {
	switch level {
	case 2:
		return g.equationLevel2()
	case 3:
		return g.equationLevel3()
	default:
		return g.equationLevel1()
	}
}

func (g *Generator) equationLevel1() Equation {
	a := g.intn(2, 20)
	x := g.intn(2, 20)
	b := a * x

	var text string
	if g.rng.Intn(2) == 0 {
		text = fmt.Sprintf("%d × x = %d", a, b)
	} else {
		text = fmt.Sprintf("x × %d = %d", a, b)
	}

	expl := fmt.Sprintf(
		"Equation: %s\nTo find x, divide the product by the known factor:\nx = %d / %d = %d",
		text, b, a, x,
	)
	return Equation{Text: text, X: x, Explanation: expl, Known: a}
}

func (g *Generator) equationLevel2() Equation {
	x := g.intn(-10, 10)
	if x == 0 {
		x = 2
	}
	a := g.intn(2, 10)
	if g.rng.Intn(2) == 0 {
		a = -a
	}
	c := g.intn(0, 9)

	var (
		b    int
		text string
		expl string
	)
	switch g.intn(1, 4) {
	case 1: // a·x + c = b
		b = a*x + c
		text = fmt.Sprintf("%d · x + %d = %d", a, c, b)
		expl = fmt.Sprintf("%d·x = %d - %d\n%d·x = %d\nx = %d / %d = %d",
			a, b, c, a, b-c, b-c, a, x)
	case 2: // a·x - c = b
		b = a*x - c
		text = fmt.Sprintf("%d · x - %d = %d", a, c, b)
		expl = fmt.Sprintf("%d·x = %d + %d\n%d·x = %d\nx = %d / %d = %d",
			a, b, c, a, b+c, b+c, a, x)
	case 3: // c + a·x = b
		b = c + a*x
		text = fmt.Sprintf("%d + %d · x = %d", c, a, b)
		expl = fmt.Sprintf("%d·x = %d - %d\n%d·x = %d\nx = %d / %d = %d",
			a, b, c, a, b-c, b-c, a, x)
	case 4: // c - a·x = b: moving a·x across negates the multiplier,
		// so the division step must divide by -a, not a.
		b = c - a*x
		text = fmt.Sprintf("%d - %d · x = %d", c, a, b)
		expl = fmt.Sprintf("%d·x = %d - %d\n%d·x = %d\nx = %d / %d = %d",
			-a, b, c, -a, b-c, b-c, -a, x)
	}

	return Equation{Text: text, X: x, Explanation: expl, Known: abs(a)}
}

func (g *Generator) equationLevel3() Equation {
	x := g.intn(-20, 20)
	if x == 0 {
		x = 5
	}
	a := g.intn(2, 20)
	if g.rng.Intn(2) == 0 {
		a = -a
	}
	c := g.intn(10, 999)

	var (
		b    int
		text string
		expl string
	)
	if g.rng.Intn(2) == 0 { // a·x + c = b
		b = a*x + c
		text = fmt.Sprintf("%d · x + %d = %d", a, c, b)
		expl = fmt.Sprintf("%d·x = %d - %d\n%d·x = %d\nx = %d / %d = %d",
			a, b, c, a, b-c, b-c, a, x)
	} else { // a·x - c = b
		b = a*x - c
		text = fmt.Sprintf("%d · x - %d = %d", a, c, b)
		expl = fmt.Sprintf("%d·x = %d + %d\n%d·x = %d\nx = %d / %d = %d",
			a, b, c, a, b+c, b+c, a, x)
	}

	return Equation{Text: text, X: x, Explanation: expl, Known: abs(a)}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

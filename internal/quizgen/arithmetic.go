package quizgen

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/samber/lo"

	"wlingo-quiz-service/internal/domain"
)

// ArithmeticTopic is the topic recorded on arithmetic sessions.
const ArithmeticTopic = "Arithmetic"

// Operator symbols as rendered in prompts.
const (
	OpAdd = "+"
	OpSub = "−"
	OpMul = "×"
	OpDiv = "÷"
)

var operators = []string{OpAdd, OpSub, OpMul, OpDiv}

// maxOffset bounds how far a distractor may sit from the true result.
const maxOffset = 5

// Arithmetic generates two-operand problems whose results stay small.
type Arithmetic struct {
	rnd *lockedRand
}

func NewArithmetic(rnd *rand.Rand) *Arithmetic {
	return &Arithmetic{rnd: newLockedRand(rnd)}
}

// Generate ignores topic; the pool is unbounded so exactly count questions come back.
func (g *Arithmetic) Generate(_ string, count int) []domain.Question {
	if count <= 0 {
		return []domain.Question{}
	}
	questions := make([]domain.Question, 0, count)
	g.rnd.with(func(rnd *rand.Rand) {
		for range count {
			op := operators[rnd.IntN(len(operators))]
			a, b := operands(rnd, op)
			questions = append(questions, arithmeticQuestion(rnd, op, a, b))
		}
	})
	return questions
}

// operands draws a and b so that sums and products stay at or below 99
// and divisions come out even.
func operands(rnd *rand.Rand, op string) (int, int) {
	switch op {
	case OpAdd:
		a := intRange(rnd, 0, 99)
		return a, intRange(rnd, 0, 99-a)
	case OpSub:
		return intRange(rnd, 0, 99), intRange(rnd, 0, 99)
	case OpMul:
		a := intRange(rnd, 2, 15)
		b := intRange(rnd, 2, 99/a)
		if rnd.IntN(2) == 1 {
			a, b = b, a
		}
		return a, b
	default:
		divisor := intRange(rnd, 2, 12)
		quotient := intRange(rnd, 2, 12)
		return divisor * quotient, divisor
	}
}

func apply(op string, a, b int) int {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	default:
		return a / b
	}
}

func arithmeticQuestion(rnd *rand.Rand, op string, a, b int) domain.Question {
	result := apply(op, a, b)
	return domain.Question{
		Prompt:        fmt.Sprintf("%d %s %d", a, op, b),
		CorrectAnswer: strconv.Itoa(result),
		Options:       numericOptions(rnd, result),
	}
}

// numericOptions collects the result and nearby integers until four
// distinct values exist, then shuffles them.
func numericOptions(rnd *rand.Rand, result int) []string {
	values := []int{result}
	for len(values) < OptionCount {
		offset := intRange(rnd, 1, maxOffset)
		if rnd.IntN(2) == 0 {
			offset = -offset
		}
		if candidate := result + offset; !lo.Contains(values, candidate) {
			values = append(values, candidate)
		}
	}
	options := lo.Map(values, func(v int, _ int) string { return strconv.Itoa(v) })
	shuffle(rnd, options)
	return options
}

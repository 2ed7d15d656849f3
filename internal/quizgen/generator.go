// Package quizgen materializes the question list for a quiz session.
package quizgen

import (
	"math/rand/v2"
	"sync"
	"time"

	"wlingo-quiz-service/internal/domain"
)

// OptionCount is the number of choices on every question.
const OptionCount = 4

// Generator produces a fixed list of questions for a topic.
type Generator interface {
	Generate(topic string, count int) []domain.Question
}

// Set dispatches to a Generator per mode.
type Set map[domain.Mode]Generator

// For returns the generator for mode, falling back to vocabulary.
func (s Set) For(mode domain.Mode) Generator {
	if g, ok := s[mode]; ok {
		return g
	}
	return s[domain.ModeVocabulary]
}

// NewRand returns a time-seeded source for production use.
func NewRand() *rand.Rand {
	now := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(now, now>>1|1))
}

// lockedRand serializes access to a *rand.Rand, which is not safe for
// concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(rnd *rand.Rand) *lockedRand {
	if rnd == nil {
		rnd = NewRand()
	}
	return &lockedRand{rnd: rnd}
}

func (r *lockedRand) with(fn func(rnd *rand.Rand)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.rnd)
}

// intRange returns a uniform integer in [lo, hi].
func intRange(rnd *rand.Rand, lo, hi int) int {
	return lo + rnd.IntN(hi-lo+1)
}

func shuffle(rnd *rand.Rand, values []string) {
	rnd.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
}

package quizgen

import (
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"

	"wlingo-quiz-service/internal/domain"
)

// WordSource is the read side of the vocabulary catalog.
type WordSource interface {
	Words(topic string) []domain.VocabularyEntry
}

// Vocabulary asks for the translation of randomly drawn words.
type Vocabulary struct {
	words WordSource
	rnd   *lockedRand
}

func NewVocabulary(words WordSource, rnd *rand.Rand) *Vocabulary {
	return &Vocabulary{words: words, rnd: newLockedRand(rnd)}
}

// Generate draws min(count, pool) distinct entries without replacement.
func (g *Vocabulary) Generate(topic string, count int) []domain.Question {
	pool := g.words.Words(topic)
	n := min(count, len(pool))
	if n <= 0 {
		return []domain.Question{}
	}
	translations := lo.Uniq(lo.Map(pool, func(e domain.VocabularyEntry, _ int) string { return e.Translation }))

	questions := make([]domain.Question, 0, n)
	g.rnd.with(func(rnd *rand.Rand) {
		for _, idx := range rnd.Perm(len(pool))[:n] {
			entry := pool[idx]
			questions = append(questions, domain.Question{
				Prompt:        entry.Word,
				CorrectAnswer: entry.Translation,
				Options:       vocabularyOptions(rnd, entry.Translation, translations),
			})
		}
	})
	return questions
}

// vocabularyOptions returns the correct translation plus three distractors
// in random order. Small pools are padded with "Option N" placeholders.
func vocabularyOptions(rnd *rand.Rand, correct string, translations []string) []string {
	distractors := lo.Without(translations, correct)
	if len(distractors) > OptionCount-1 {
		picked := make([]string, 0, OptionCount-1)
		for _, i := range rnd.Perm(len(distractors))[:OptionCount-1] {
			picked = append(picked, distractors[i])
		}
		distractors = picked
	} else {
		for label := 1; len(distractors) < OptionCount-1; label++ {
			placeholder := fmt.Sprintf("Option %d", label)
			if placeholder == correct || lo.Contains(distractors, placeholder) {
				continue
			}
			distractors = append(distractors, placeholder)
		}
	}

	options := append([]string{correct}, distractors...)
	shuffle(rnd, options)
	return options
}

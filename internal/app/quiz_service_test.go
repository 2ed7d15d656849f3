package app_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"wlingo-quiz-service/internal/app"
	"wlingo-quiz-service/internal/domain"
	"wlingo-quiz-service/internal/infra/memory"
	"wlingo-quiz-service/internal/logger"
	"wlingo-quiz-service/internal/quizgen"
	"wlingo-quiz-service/internal/vocab"
)

var germanBasics = []domain.VocabularyEntry{
	{Word: "Hund", Translation: "dog"},
	{Word: "Katze", Translation: "cat"},
	{Word: "Baum", Translation: "tree"},
	{Word: "Haus", Translation: "house"},
	{Word: "Wasser", Translation: "water"},
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	service *app.QuizService
	store   *memory.SessionStore
	clock   *fakeClock
}

func newFixture(t *testing.T, questionCount int) fixture {
	t.Helper()
	catalog := vocab.NewCatalog(logger.Nop(), vocab.StaticSource{"german_basic": germanBasics})
	if err := catalog.LoadAll(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	rnd := rand.New(rand.NewPCG(3, 5))
	generators := quizgen.Set{
		domain.ModeVocabulary: quizgen.NewVocabulary(catalog, rnd),
		domain.ModeArithmetic: quizgen.NewArithmetic(rand.New(rand.NewPCG(9, 1))),
	}
	clock := &fakeClock{now: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)}
	store := memory.NewSessionStore()
	service := app.NewQuizService(store, catalog, generators, logger.Nop(), app.Options{
		QuestionCount: questionCount,
		MaxAge:        2 * time.Hour,
		Clock:         clock.Now,
	})
	return fixture{service: service, store: store, clock: clock}
}

func correctIndex(t *testing.T, view domain.QuestionView, session domain.Session) int {
	t.Helper()
	idx := slices.Index(view.Options, session.Questions[view.Index].CorrectAnswer)
	if idx < 0 {
		t.Fatalf("correct answer missing from options %v", view.Options)
	}
	return idx
}

func wrongIndex(t *testing.T, view domain.QuestionView, session domain.Session) int {
	t.Helper()
	for i, opt := range view.Options {
		if opt != session.Questions[view.Index].CorrectAnswer {
			return i
		}
	}
	t.Fatalf("no wrong option in %v", view.Options)
	return -1
}

func TestStartSessionDealsPoolLimitedQuestions(t *testing.T) {
	f := newFixture(t, 15)

	session, created, err := f.service.StartSession(context.Background(), "", "german_basic", domain.ModeVocabulary)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !created || session.ID == "" {
		t.Fatalf("expected a new session with an id, got %+v", session)
	}
	if session.Total() != 5 {
		t.Fatalf("expected 5 questions from a 5-word pool, got %d", session.Total())
	}
	for _, q := range session.Questions {
		if len(q.Options) != 4 || !slices.Contains(q.Options, q.CorrectAnswer) {
			t.Fatalf("malformed question %+v", q)
		}
	}
}

func TestStartSessionFallsBackForUnknownTopic(t *testing.T) {
	f := newFixture(t, 3)

	session, _, err := f.service.StartSession(context.Background(), "", "klingon", domain.ModeVocabulary)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Topic != "german_basic" || session.Total() != 3 {
		t.Fatalf("expected fallback to german_basic with 3 questions, got topic=%s total=%d", session.Topic, session.Total())
	}
}

func TestStartSessionIsIdempotentForLiveSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)

	first, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)
	view, _ := f.service.GetQuestion(ctx, first.ID, 0)
	if _, err := f.service.SubmitAnswer(ctx, first.ID, 0, domain.SelectIndex(correctIndex(t, view, first))); err != nil {
		t.Fatalf("submit: %v", err)
	}

	again, created, err := f.service.StartSession(ctx, first.ID, "german_basic", domain.ModeArithmetic)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if created || again.ID != first.ID || len(again.Answers) != 1 {
		t.Fatalf("expected existing session with progress kept, got created=%v %+v", created, again)
	}

	fresh, created, err := f.service.StartSession(ctx, "stale-cookie", "german_basic", domain.ModeVocabulary)
	if err != nil {
		t.Fatalf("start with stale id: %v", err)
	}
	if !created || fresh.ID == "stale-cookie" {
		t.Fatalf("expected a new session for an unknown id, got %+v", fresh)
	}
}

func TestStartArithmeticSession(t *testing.T) {
	f := newFixture(t, 15)

	session, _, err := f.service.StartSession(context.Background(), "", "__arithmetic__", domain.ModeArithmetic)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Mode != domain.ModeArithmetic || session.Topic != quizgen.ArithmeticTopic || session.Total() != 15 {
		t.Fatalf("unexpected arithmetic session: mode=%s topic=%s total=%d", session.Mode, session.Topic, session.Total())
	}
}

func TestGetQuestionHidesAnswerUntilSubmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	session, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)

	view, err := f.service.GetQuestion(ctx, session.ID, 0)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if view.PriorAnswer != nil || view.Total != 3 || view.Index != 0 {
		t.Fatalf("unexpected view %+v", view)
	}

	record, err := f.service.SubmitAnswer(ctx, session.ID, 0, domain.SelectIndex(wrongIndex(t, view, session)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.IsCorrect || !record.Attempted || record.CorrectAnswer != session.Questions[0].CorrectAnswer {
		t.Fatalf("unexpected record %+v", record)
	}

	view, _ = f.service.GetQuestion(ctx, session.ID, 0)
	if view.PriorAnswer == nil || *view.PriorAnswer != record {
		t.Fatalf("expected prior answer on review, got %+v", view.PriorAnswer)
	}

	for _, idx := range []int{-1, 3} {
		if _, err := f.service.GetQuestion(ctx, session.ID, idx); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Fatalf("index %d: expected out of range, got %v", idx, err)
		}
	}
}

func TestMidQuizResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	session, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)

	view, _ := f.service.GetQuestion(ctx, session.ID, 0)
	record, err := f.service.SubmitAnswer(ctx, session.ID, 0, domain.SelectIndex(correctIndex(t, view, session)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !record.IsCorrect {
		t.Fatalf("expected correct answer, got %+v", record)
	}

	result, err := f.service.GetResult(ctx, session.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.CorrectCount != 1 || result.Total != 3 || result.ScorePercentage != 33 {
		t.Fatalf("expected 1/3 = 33%%, got %+v", result)
	}
	if result.Complete || result.NextIndex != 1 {
		t.Fatalf("expected incomplete result pointing at question 1, got %+v", result)
	}
}

func TestResubmissionIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	session, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)

	view, _ := f.service.GetQuestion(ctx, session.ID, 0)
	if _, err := f.service.SubmitAnswer(ctx, session.ID, 0, domain.SelectIndex(correctIndex(t, view, session))); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before, _ := f.service.GetResult(ctx, session.ID)

	_, err := f.service.SubmitAnswer(ctx, session.ID, 0, domain.SelectIndex(wrongIndex(t, view, session)))
	if !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}

	after, _ := f.service.GetResult(ctx, session.ID)
	if after.CorrectCount != before.CorrectCount || len(after.Answers) != len(before.Answers) {
		t.Fatalf("state changed after rejected resubmission: before=%+v after=%+v", before, after)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	session, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)

	cases := []struct {
		name  string
		id    string
		index int
		sel   domain.Selection
		want  error
	}{
		{"unknown session", "nope", 0, domain.SelectIndex(0), domain.ErrSessionInvalid},
		{"empty session id", "", 0, domain.SelectIndex(0), domain.ErrSessionInvalid},
		{"negative index", session.ID, -1, domain.SelectIndex(0), domain.ErrIndexOutOfRange},
		{"index past end", session.ID, 3, domain.SelectIndex(0), domain.ErrIndexOutOfRange},
		{"skipping ahead", session.ID, 2, domain.SelectIndex(0), domain.ErrOutOfOrder},
		{"option index", session.ID, 0, domain.SelectIndex(4), domain.ErrInvalidOption},
		{"option value", session.ID, 0, domain.SelectValue("not an option"), domain.ErrInvalidOption},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.SubmitAnswer(ctx, tc.id, tc.index, tc.sel); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	result, _ := f.service.GetResult(ctx, session.ID)
	if len(result.Answers) != 0 {
		t.Fatalf("rejected submissions must not be recorded, got %+v", result.Answers)
	}
}

func TestSubmitByValueAndComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	session, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)

	for i, q := range session.Questions {
		sel := domain.SelectValue(q.CorrectAnswer)
		if i%2 == 1 {
			view, _ := f.service.GetQuestion(ctx, session.ID, i)
			sel = domain.SelectIndex(wrongIndex(t, view, session))
		}
		if _, err := f.service.SubmitAnswer(ctx, session.ID, i, sel); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	result, _ := f.service.GetResult(ctx, session.ID)
	if !result.Complete || result.Total != 5 || result.CorrectCount != 3 || result.ScorePercentage != 60 {
		t.Fatalf("unexpected final result %+v", result)
	}
	correct := 0
	for _, a := range result.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != result.CorrectCount {
		t.Fatalf("correct count %d does not match answers %d", result.CorrectCount, correct)
	}
	if _, err := f.service.SubmitAnswer(ctx, session.ID, 4, domain.SelectIndex(0)); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("complete session must reject answers, got %v", err)
	}
}

func TestConcurrentDuplicateSubmissionsCountOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	session, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)
	view, _ := f.service.GetQuestion(ctx, session.ID, 0)
	sel := domain.SelectIndex(correctIndex(t, view, session))

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.SubmitAnswer(ctx, session.ID, 0, sel); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	result, _ := f.service.GetResult(ctx, session.ID)
	if accepted != 1 || result.CorrectCount != 1 || len(result.Answers) != 1 {
		t.Fatalf("expected exactly one accepted submission, got accepted=%d result=%+v", accepted, result)
	}
}

func TestSessionsExpireAfterMaxAge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	session, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)

	f.clock.Advance(2*time.Hour + time.Second)

	if _, err := f.service.GetQuestion(ctx, session.ID, 0); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected expired session to be invalid, got %v", err)
	}
	if f.store.Len() != 0 {
		t.Fatalf("expected expired session to be deleted")
	}

	other, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)
	f.clock.Advance(3 * time.Hour)
	if _, err := f.service.SubmitAnswer(ctx, other.ID, 0, domain.SelectIndex(0)); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected submit on expired session to be invalid, got %v", err)
	}
	if f.store.Len() != 0 {
		t.Fatalf("expected expired session to be deleted on submit")
	}
}

func TestResetSessionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	session, _, _ := f.service.StartSession(ctx, "", "german_basic", domain.ModeVocabulary)

	if err := f.service.ResetSession(ctx, session.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.service.GetResult(ctx, session.ID); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected reset session to be gone, got %v", err)
	}
	if err := f.service.ResetSession(ctx, session.ID); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if err := f.service.ResetSession(ctx, "never-existed"); err != nil {
		t.Fatalf("reset unknown: %v", err)
	}
}

func TestScorePercentage(t *testing.T) {
	cases := []struct{ correct, total, want int }{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 12},
		{5, 8, 62},
		{3, 8, 38},
		{15, 15, 100},
	}
	for _, tc := range cases {
		if got := app.ScorePercentage(tc.correct, tc.total); got != tc.want {
			t.Fatalf("ScorePercentage(%d, %d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}

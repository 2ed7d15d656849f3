package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"wlingo-quiz-service/internal/domain"
	"wlingo-quiz-service/internal/logger"
	"wlingo-quiz-service/internal/quizgen"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
// Update must apply fn atomically with respect to other updates of the same id.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	Update(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// TopicCatalog is the subset of the vocabulary catalog the service needs.
type TopicCatalog interface {
	Has(topic string) bool
	DefaultTopic() string
	Topics() []domain.Topic
}

// Options tunes a QuizService. Zero values pick sensible defaults.
type Options struct {
	QuestionCount int
	// MaxAge expires sessions this long after creation regardless of activity.
	// Zero disables the check.
	MaxAge time.Duration
	Clock  func() time.Time
	NewID  func() string
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions   SessionRepository
	catalog    TopicCatalog
	generators quizgen.Set
	log        *logger.Logger

	questionCount int
	maxAge        time.Duration
	now           func() time.Time
	newID         func() string
}

var errExpired = errors.New("session expired")

func NewQuizService(store SessionRepository, catalog TopicCatalog, generators quizgen.Set, log *logger.Logger, opts Options) *QuizService {
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = 15
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &QuizService{
		sessions:      store,
		catalog:       catalog,
		generators:    generators,
		log:           log.With("component", "quiz"),
		questionCount: opts.QuestionCount,
		maxAge:        opts.MaxAge,
		now:           opts.Clock,
		newID:         opts.NewID,
	}
}

// Topics lists the vocabulary topics a session can be started with.
func (s *QuizService) Topics() []domain.Topic {
	return s.catalog.Topics()
}

// StartSession returns the caller's live session if existingID names one;
// otherwise it deals a new question set and stores a fresh session. The bool
// reports whether a new session was created.
func (s *QuizService) StartSession(ctx context.Context, existingID, topic string, mode domain.Mode) (domain.Session, bool, error) {
	if existingID != "" {
		session, err := s.load(ctx, existingID)
		if err == nil {
			return session, false, nil
		}
		if !errors.Is(err, domain.ErrSessionInvalid) {
			return domain.Session{}, false, err
		}
	}

	switch mode {
	case domain.ModeArithmetic:
		topic = quizgen.ArithmeticTopic
	default:
		mode = domain.ModeVocabulary
		if !s.catalog.Has(topic) {
			fallback := s.catalog.DefaultTopic()
			s.log.Info("unknown topic, using default", "requested", topic, "topic", fallback)
			topic = fallback
		}
	}

	session := domain.Session{
		ID:        s.newID(),
		Questions: s.generators.For(mode).Generate(topic, s.questionCount),
		Answers:   []domain.AnswerRecord{},
		Topic:     topic,
		Mode:      mode,
		CreatedAt: s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, false, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("new session", "session", session.ID, "topic", topic, "mode", mode, "questions", session.Total())
	return session, true, nil
}

// GetQuestion returns the question at index. The correct answer is only
// included through PriorAnswer once the question has been answered.
func (s *QuizService) GetQuestion(ctx context.Context, id string, index int) (domain.QuestionView, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return domain.QuestionView{}, err
	}
	if index < 0 || index >= session.Total() {
		return domain.QuestionView{}, domain.ErrIndexOutOfRange
	}

	q := session.Questions[index]
	view := domain.QuestionView{
		Prompt:  q.Prompt,
		Options: append([]string(nil), q.Options...),
		Index:   index,
		Total:   session.Total(),
		Mode:    session.Mode,
		Topic:   session.Topic,
	}
	if index < len(session.Answers) {
		record := session.Answers[index]
		view.PriorAnswer = &record
	}
	return view, nil
}

// SubmitAnswer records the answer for question index. Answers are append-only:
// an answered index is rejected, as is skipping ahead of the first unanswered one.
func (s *QuizService) SubmitAnswer(ctx context.Context, id string, index int, sel domain.Selection) (domain.AnswerRecord, error) {
	var record domain.AnswerRecord
	_, err := s.sessions.Update(ctx, id, func(session *domain.Session) error {
		if s.expired(*session) {
			return errExpired
		}
		if index < 0 || index >= session.Total() {
			return domain.ErrIndexOutOfRange
		}
		if index < len(session.Answers) {
			return domain.ErrAlreadyAnswered
		}
		if index > len(session.Answers) {
			return domain.ErrOutOfOrder
		}

		q := session.Questions[index]
		answer, err := sel.Resolve(q)
		if err != nil {
			return err
		}
		record = domain.AnswerRecord{
			Prompt:        q.Prompt,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     answer == q.CorrectAnswer,
			Attempted:     true,
		}
		session.Answers = append(session.Answers, record)
		if record.IsCorrect {
			session.CorrectCount++
		}
		return nil
	})
	switch {
	case err == nil:
		s.log.Debug("answer recorded", "session", id, "index", index, "correct", record.IsCorrect)
		return record, nil
	case errors.Is(err, errExpired):
		s.expire(ctx, id)
		return domain.AnswerRecord{}, domain.ErrSessionInvalid
	case errors.Is(err, domain.ErrSessionNotFound):
		return domain.AnswerRecord{}, domain.ErrSessionInvalid
	default:
		return domain.AnswerRecord{}, err
	}
}

// GetResult summarizes the session so far. It does not require the quiz to
// be finished; Complete and NextIndex tell the caller where the user stands.
func (s *QuizService) GetResult(ctx context.Context, id string) (domain.Result, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Result{
		CorrectCount:    session.CorrectCount,
		Total:           session.Total(),
		ScorePercentage: ScorePercentage(session.CorrectCount, session.Total()),
		Answers:         session.Answers,
		Complete:        session.Complete(),
		NextIndex:       len(session.Answers),
	}, nil
}

// ResetSession deletes the session. Unknown ids are not an error.
func (s *QuizService) ResetSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	s.log.Info("session reset", "session", id)
	return nil
}

// ScorePercentage rounds 100*correct/total, ties to even; 0 when total is 0.
func ScorePercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.RoundToEven(100 * float64(correct) / float64(total)))
}

func (s *QuizService) load(ctx context.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, domain.ErrSessionInvalid
	}
	session, err := s.sessions.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Session{}, domain.ErrSessionInvalid
	}
	if err != nil {
		return domain.Session{}, err
	}
	if s.expired(session) {
		s.expire(ctx, id)
		return domain.Session{}, domain.ErrSessionInvalid
	}
	return session, nil
}

func (s *QuizService) expired(session domain.Session) bool {
	return s.maxAge > 0 && s.now().Sub(session.CreatedAt) > s.maxAge
}

func (s *QuizService) expire(ctx context.Context, id string) {
	if err := s.sessions.Delete(ctx, id); err != nil {
		s.log.Warn("failed to delete expired session", "session", id, "error", err)
		return
	}
	s.log.Info("session expired", "session", id)
}

package domain

import "time"

// Mode selects the question generation strategy for a session.
type Mode string

const (
	ModeVocabulary Mode = "vocabulary"
	ModeArithmetic Mode = "arithmetic"
)

// ParseMode maps user input onto a Mode, defaulting to vocabulary.
func ParseMode(raw string) Mode {
	switch Mode(raw) {
	case ModeArithmetic:
		return ModeArithmetic
	default:
		return ModeVocabulary
	}
}

// VocabularyEntry is a single word and its translation.
type VocabularyEntry struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
}

// Topic is the listing view of a vocabulary set.
type Topic struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Count       int    `json:"count"`
}

// Question is a pre-materialized multiple-choice question.
// Options are shuffled once at generation and never reordered.
type Question struct {
	Prompt        string   `json:"prompt"`
	CorrectAnswer string   `json:"correctAnswer"`
	Options       []string `json:"options"`
}

// AnswerRecord is the outcome of one submitted answer.
type AnswerRecord struct {
	Prompt        string `json:"prompt"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Attempted     bool   `json:"attempted"`
}

// Session is the server-held state of one quiz run.
type Session struct {
	ID           string         `json:"id"`
	Questions    []Question     `json:"questions"`
	Answers      []AnswerRecord `json:"answers"`
	CorrectCount int            `json:"correctCount"`
	Topic        string         `json:"topic"`
	Mode         Mode           `json:"mode"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Total is the number of questions dealt for the session.
func (s Session) Total() int { return len(s.Questions) }

// Complete reports whether every question has been answered.
func (s Session) Complete() bool { return len(s.Answers) >= len(s.Questions) }

// Clone returns a deep copy so stores never share slices with callers.
func (s Session) Clone() Session {
	out := s
	out.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		out.Questions[i] = q
	}
	out.Answers = append(make([]AnswerRecord, 0, len(s.Answers)), s.Answers...)
	return out
}

// QuestionView is what a client sees for a single question. The correct
// answer is only exposed through PriorAnswer once the question is answered.
type QuestionView struct {
	Prompt      string        `json:"prompt"`
	Options     []string      `json:"options"`
	Index       int           `json:"index"`
	Total       int           `json:"total"`
	Mode        Mode          `json:"mode"`
	Topic       string        `json:"topic"`
	PriorAnswer *AnswerRecord `json:"answerRecord,omitempty"`
}

// Result summarizes a session's score. It may be requested mid-quiz;
// NextIndex points at the first unanswered question when Complete is false.
type Result struct {
	CorrectCount    int            `json:"correctCount"`
	Total           int            `json:"total"`
	ScorePercentage int            `json:"scorePercentage"`
	Answers         []AnswerRecord `json:"answers"`
	Complete        bool           `json:"complete"`
	NextIndex       int            `json:"nextIndex"`
}

package store

import (
	"context"
	"time"

	"github.com/abhisek/quizdrill/internal/grading"
)

// Quiz is a question bank item.
type Quiz struct {
	ID               string
	Type             grading.QuestionType
	Question         string
	Options          []string
	Answer           []string
	AnswerIndex      []int
	Alternatives     []string
	Groups           [][]int
	KnowledgePointID string
	Difficulty       string
	Explanation      string
	Source           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Grading returns the evaluator view of the quiz.
func (q *Quiz) Grading() grading.Question {
	return grading.Question{
		Type:         q.Type,
		Options:      q.Options,
		Answer:       q.Answer,
		AnswerIndex:  q.AnswerIndex,
		Alternatives: q.Alternatives,
		Groups:       q.Groups,
	}
}

// KnowledgePoint labels a group of quizzes.
type KnowledgePoint struct {
	ID      string
	Name    string
	Subject string
}

// QuizFilter narrows question selection. Zero values match everything.
type QuizFilter struct {
	KnowledgePointIDs []string
	Difficulty        string
	Type              grading.QuestionType
}

// QuizRepo reads and maintains the question bank.
type QuizRepo interface {
	// Create inserts a quiz, assigning an ID and timestamps when unset.
	Create(ctx context.Context, q *Quiz) error

	// Get returns a quiz, or nil if it does not exist.
	Get(ctx context.Context, id string) (*Quiz, error)

	// GetMany returns the quizzes for ids in the given order. Unknown IDs
	// are skipped.
	GetMany(ctx context.Context, ids []string) ([]*Quiz, error)

	// List returns quizzes matching the filter ordered by creation time.
	List(ctx context.Context, f QuizFilter, limit, offset int) ([]*Quiz, error)

	// Count returns how many quizzes match the filter.
	Count(ctx context.Context, f QuizFilter) (int, error)

	// Sample returns up to n random quiz IDs matching the filter.
	Sample(ctx context.Context, f QuizFilter, n int) ([]string, error)

	// Unattempted returns up to n random IDs the user has never answered.
	Unattempted(ctx context.Context, userID string, f QuizFilter, n int) ([]string, error)

	// WrongIDs returns the quizzes answered incorrectly in the user's most
	// recent completed sessions, newest session first.
	WrongIDs(ctx context.Context, userID string, f QuizFilter, recentSessions int) ([]string, error)

	// KnowledgePointsOf maps each quiz ID to its knowledge point.
	KnowledgePointsOf(ctx context.Context, ids []string) (map[string]string, error)

	// AddAlternatives replaces the quiz's alternative answers.
	AddAlternatives(ctx context.Context, quizID string, alts []string) error

	// SaveKnowledgePoint inserts or renames a knowledge point.
	SaveKnowledgePoint(ctx context.Context, kp KnowledgePoint) error

	// KnowledgePoints returns the knowledge points for ids keyed by ID.
	KnowledgePoints(ctx context.Context, ids []string) (map[string]KnowledgePoint, error)
}

// SessionStatus is the lifecycle state of a practice session.
type SessionStatus string

const (
	StatusCreated    SessionStatus = "created"
	StatusInProgress SessionStatus = "in_progress"
	StatusPaused     SessionStatus = "paused"
	StatusAbandoned  SessionStatus = "abandoned"
	StatusCompleted  SessionStatus = "completed"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Session is a practice session row.
type Session struct {
	ID                string
	UserID            string
	Status            SessionStatus
	Strategy          string
	QuestionType      string
	KnowledgePointIDs []string
	QuizIDs           []string
	TotalQuestions    int
	AnsweredQuestions int
	CorrectAnswers    int
	IncorrectAnswers  int
	SkippedQuestions  int
	TimeLimitMinutes  *int
	TimeSpentSeconds  int
	Score             float64
	LastQuestionIndex *int
	ShuffleQuestions  bool
	ShuffleOptions    bool
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	UpdatedAt         time.Time
}

// SessionQuestion is the per-session snapshot of a quiz plus the learner's
// response to it.
type SessionQuestion struct {
	ID               string
	SessionID        string
	QuizID           string
	Number           int
	Type             grading.QuestionType
	Question         string
	Options          []string
	Answer           []string
	AnswerIndex      []int
	Alternatives     []string
	Groups           [][]int
	KnowledgePointID string
	Difficulty       string
	StudentAnswer    *string
	IsCorrect        *bool
	IsSkipped        bool
	TimeSpentSeconds int
	AnsweredAt       *time.Time
}

// Grading returns the evaluator view of the snapshot.
func (q *SessionQuestion) Grading() grading.Question {
	return grading.Question{
		Type:         q.Type,
		Options:      q.Options,
		Answer:       q.Answer,
		AnswerIndex:  q.AnswerIndex,
		Alternatives: q.Alternatives,
		Groups:       q.Groups,
	}
}

// Answered reports whether the question has a graded answer.
func (q *SessionQuestion) Answered() bool {
	return q.IsCorrect != nil
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	Status   SessionStatus
	Strategy string
	Limit    int // 0 = unlimited
	Offset   int
}

// QuestionCounts are the counters derived from a session's question rows.
type QuestionCounts struct {
	Answered  int
	Correct   int
	Incorrect int
	Skipped   int
}

// SessionTotals aggregates counters over all of a user's sessions.
type SessionTotals struct {
	Sessions         int
	Completed        int
	Answered         int
	Correct          int
	Incorrect        int
	Skipped          int
	TimeSpentSeconds int
}

// AnswerStat aggregates answered questions sharing one key (a knowledge
// point ID or a difficulty).
type AnswerStat struct {
	Key              string
	Total            int
	Correct          int
	TimeSpentSeconds int
	LastAnsweredAt   *time.Time
}

// SessionRepo persists practice sessions and their questions.
type SessionRepo interface {
	// Create inserts the session and its question snapshots.
	Create(ctx context.Context, s *Session, questions []*SessionQuestion) error

	// Get returns a session, or nil if it does not exist.
	Get(ctx context.Context, id string) (*Session, error)

	// Update writes the session's mutable columns.
	Update(ctx context.Context, s *Session) error

	// List returns the user's sessions, newest first.
	List(ctx context.Context, userID string, f SessionFilter) ([]*Session, error)

	// Count returns how many of the user's sessions match the filter.
	Count(ctx context.Context, userID string, f SessionFilter) (int, error)

	// Questions returns the session's questions ordered by number.
	Questions(ctx context.Context, sessionID string) ([]*SessionQuestion, error)

	// Question returns one question of the session, or nil.
	Question(ctx context.Context, sessionID, questionID string) (*SessionQuestion, error)

	// UpdateQuestion writes the response columns and alternatives.
	UpdateQuestion(ctx context.Context, q *SessionQuestion) error

	// QuestionCounts recomputes the session counters from its question rows.
	QuestionCounts(ctx context.Context, sessionID string) (QuestionCounts, error)

	// Totals aggregates counters across all of the user's sessions.
	Totals(ctx context.Context, userID string) (SessionTotals, error)

	// KnowledgePointStats groups the user's answered questions by knowledge point.
	KnowledgePointStats(ctx context.Context, userID string) ([]AnswerStat, error)

	// DifficultyStats groups the user's answered questions by difficulty.
	DifficultyStats(ctx context.Context, userID string) ([]AnswerStat, error)
}

// Mistake tracks a quiz the user has answered incorrectly.
type Mistake struct {
	ID              string
	UserID          string
	QuizID          string
	SessionID       string
	IncorrectAnswer string
	CorrectAnswer   string
	MistakeCount    int
	CorrectionCount int
	IsCorrected     bool
	NextReviewDate  *time.Time
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// KnowledgePointID is filled by List from the quiz.
	KnowledgePointID string
}

// MistakeFilter narrows mistake listings.
type MistakeFilter struct {
	KnowledgePointIDs []string
	IncludeCorrected  bool
	DueBefore         *time.Time
	Limit             int // 0 = unlimited
}

// MistakeRepo persists mistake records.
type MistakeRepo interface {
	// Get returns the record for (userID, quizID), or nil.
	Get(ctx context.Context, userID, quizID string) (*Mistake, error)

	Create(ctx context.Context, m *Mistake) error
	Update(ctx context.Context, m *Mistake) error
	Delete(ctx context.Context, id string) error

	// List returns matching records ordered by next review date, then by
	// mistake count descending. Records without a review date sort last.
	List(ctx context.Context, userID string, f MistakeFilter) ([]*Mistake, error)

	// Counts returns how many records are corrected and how many remain.
	Counts(ctx context.Context, userID string) (corrected, remaining int, err error)
}

// Weakness is the per-knowledge-point accuracy summary for a user.
type Weakness struct {
	UserID           string
	KnowledgePointID string
	AccuracyRate     float64
	PracticeCount    int
	CorrectCount     int
	IsWeak           bool
	ImprovementTrend float64
	LastPracticedAt  *time.Time
	UpdatedAt        time.Time
}

// WeaknessFilter narrows weakness listings.
type WeaknessFilter struct {
	KnowledgePointIDs []string
	WeakOnly          bool
}

// WeaknessRepo persists weakness records.
type WeaknessRepo interface {
	// Get returns the record, or nil.
	Get(ctx context.Context, userID, knowledgePointID string) (*Weakness, error)

	// Upsert inserts or replaces the record.
	Upsert(ctx context.Context, w *Weakness) error

	// List returns matching records ordered by accuracy ascending.
	List(ctx context.Context, userID string, f WeaknessFilter) ([]*Weakness, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a logged LLM call.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo records and reads LLM calls.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns the most recent events first.
	QueryLLMEvents(ctx context.Context, limit int, purpose string) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event, or nil.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)
}

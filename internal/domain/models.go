package domain

import "time"

// Role distinguishes regular members from the privileged admin identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// DateLayout is the calendar-date granularity of the one-attempt-per-day rule.
const DateLayout = "2006-01-02"

// DateOf reduces a timestamp to its calendar date.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// User is a directory entry. Usernames are unique under case-insensitive
// collation but stored with their original casing. LastPlayedDate is a
// YYYY-MM-DD date, empty until the user completes their first quiz.
type User struct {
	Username       string `json:"username"`
	Role           Role   `json:"role"`
	LastPlayedDate string `json:"lastPlayedDate,omitempty"`
}

// GlobalAvailability is the admin-controlled override record. When
// IsManualOverride is false the time-based rule governs and IsQuizOpen is
// ignored.
type GlobalAvailability struct {
	IsManualOverride bool `json:"isManualOverride"`
	IsQuizOpen       bool `json:"isQuizOpen"`
}

// Availability is the evaluator's open/closed decision plus a human-readable
// reason.
type Availability struct {
	Open   bool   `json:"open"`
	Reason string `json:"reason"`
}

// Question models an MCQ question with exactly one correct option out of four.
// Questions are immutable once fetched and scoped to a single attempt.
type Question struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation,omitempty"`
}

// QuizResult records one completed attempt. Entries are append-only and never
// mutated or deleted.
type QuizResult struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Date           time.Time `json:"date"`
}

// LeaderboardRow aggregates one user's results for the scoreboard.
type LeaderboardRow struct {
	Username    string    `json:"username"`
	TotalScore  int       `json:"totalScore"`
	GamesPlayed int       `json:"gamesPlayed"`
	LastPlayed  time.Time `json:"lastPlayed"`
}

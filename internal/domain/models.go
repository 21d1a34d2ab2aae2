package domain

import "time"

// GameStatus is the lifecycle phase of a live game.
// Transitions only ever move forward: waiting -> in_progress -> finished.
type GameStatus string

const (
	StatusWaiting    GameStatus = "waiting"
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
)

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
// TimeLimit bounds how long players may answer; Points is the budget a
// fastest correct answer earns.
type Question struct {
	ID        string   `json:"id"`
	Prompt    string   `json:"prompt"`
	Options   []Option `json:"options"`
	TimeLimit int      `json:"timeLimit"` // seconds, defaults to 30 if zero
	Points    int      `json:"points"`    // defaults to 100 if zero
	MediaURL  string   `json:"mediaUrl,omitempty"`
}

// Quiz is a collection of questions used to seed a live game.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Game is a live session of a quiz. The PIN is immutable once created;
// replaying a finished game creates a fresh Game with a copied question set.
type Game struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	PIN                  string     `json:"pin"`
	Status               GameStatus `json:"status"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"` // -1 before the first question
	Questions            []Question `json:"questions"`
	CreatedAt            time.Time  `json:"createdAt"`
	FinishedAt           *time.Time `json:"finishedAt,omitempty"`
}

// Player is a self-registered participant of a single game. Players are
// never removed while the game runs; Score only ever increases.
type Player struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Score        int       `json:"score"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastScoredAt time.Time `json:"lastScoredAt"`
}

// LeaderboardEntry is a snapshot-friendly view of a player's standing.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard for a game.
type Leaderboard struct {
	GamePIN   string             `json:"gamePin"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AnswerSubmission models the scoring signal from a player.
type AnswerSubmission struct {
	PlayerID      string
	QuestionIndex int
	OptionIndex   int
}

// AnswerResult summarizes the outcome of a submission for a single player.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	OptionIndex   int  `json:"optionIndex"`
	Correct       bool `json:"correct"`
	Awarded       int  `json:"awarded"`
	TotalScore    int  `json:"totalScore"`
}

// AnswerRecord is the durable form of a scored answer; the (GameID,
// PlayerID, QuestionIndex) triple is its idempotency key.
type AnswerRecord struct {
	GameID        string    `json:"gameId"`
	PlayerID      string    `json:"playerId"`
	QuestionIndex int       `json:"questionIndex"`
	OptionIndex   int       `json:"optionIndex"`
	Correct       bool      `json:"correct"`
	Awarded       int       `json:"awarded"`
	LatencyMs     int64     `json:"latencyMs"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// GameResult is the archived final standing of a finished game.
type GameResult struct {
	GameID     string             `json:"gameId"`
	Title      string             `json:"title"`
	PIN        string             `json:"pin"`
	Standings  []LeaderboardEntry `json:"standings"`
	FinishedAt time.Time          `json:"finishedAt"`
}

// AccessCode gates a scheduled evaluation window. The flags are carried
// as opaque configuration for clients; only the time window is enforced here.
type AccessCode struct {
	Code                  string    `json:"code"`
	QuizID                string    `json:"quizId"`
	StartsAt              time.Time `json:"startsAt"`
	EndsAt                time.Time `json:"endsAt"`
	RequireAuth           bool      `json:"requireAuth"`
	AllowMultipleAttempts bool      `json:"allowMultipleAttempts"`
	ShowImmediateResults  bool      `json:"showImmediateResults"`
}

package game

import "sedetok-live/internal/domain"

// Event is a session broadcast fanned out to subscribed clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	EventPlayerJoined   = "player_joined"
	EventGameStarted    = "game_started"
	EventQuestionStart  = "question_started"
	EventCountdown      = "countdown"
	EventQuestionClosed = "question_closed"
	EventLeaderboard    = "leaderboard"
	EventGameFinished   = "game_finished"
)

// OptionView is an option as shown to players while a question is live;
// the correct flag is withheld until the question closes.
type OptionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// QuestionView is the player-facing shape of the active question.
type QuestionView struct {
	Index     int          `json:"index"`
	Prompt    string       `json:"prompt"`
	Options   []OptionView `json:"options"`
	TimeLimit int          `json:"timeLimit"` // seconds
	MediaURL  string       `json:"mediaUrl,omitempty"`
}

// PlayerJoinedPayload announces a new player to the lobby.
type PlayerJoinedPayload struct {
	Player      domain.LeaderboardEntry `json:"player"`
	PlayerCount int                     `json:"playerCount"`
}

// QuestionStartPayload opens a question for answering.
type QuestionStartPayload struct {
	Question       QuestionView `json:"question"`
	TotalQuestions int          `json:"totalQuestions"`
}

// CountdownPayload ticks once per second while a question is open.
type CountdownPayload struct {
	QuestionIndex int `json:"questionIndex"`
	SecondsLeft   int `json:"secondsLeft"`
}

// QuestionClosedPayload reveals the correct option after time is up or
// the host moves on.
type QuestionClosedPayload struct {
	QuestionIndex      int                `json:"questionIndex"`
	CorrectOptionIndex int                `json:"correctOptionIndex"`
	Leaderboard        domain.Leaderboard `json:"leaderboard"`
}

// GameFinishedPayload carries the final standings.
type GameFinishedPayload struct {
	Result domain.GameResult `json:"result"`
}

// Snapshot is the full state-sync view sent to clients that connect or
// reconnect mid-game.
type Snapshot struct {
	PIN                  string             `json:"pin"`
	Title                string             `json:"title"`
	Status               domain.GameStatus  `json:"status"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex"`
	CurrentQuestion      *QuestionView      `json:"currentQuestion,omitempty"`
	SecondsLeft          int                `json:"secondsLeft"`
	TotalQuestions       int                `json:"totalQuestions"`
	Leaderboard          domain.Leaderboard `json:"leaderboard"`
}

package domain

import "errors"

var (
	// ErrGameNotFound is returned when a PIN does not resolve to any game.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameFinished is returned when joining or acting on a finished game.
	ErrGameFinished = errors.New("game already finished")
	// ErrGameNotStarted is returned when gameplay actions arrive before the host starts.
	ErrGameNotStarted = errors.New("game not started")
	// ErrGameAlreadyStarted is returned when starting a game twice.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrInvalidPIN is returned when a join code fails normalization.
	ErrInvalidPIN = errors.New("invalid game pin")
	// ErrNameTaken is returned when a display name is already used in the game.
	ErrNameTaken = errors.New("display name already taken")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found in game")
	// ErrQuestionNotActive is returned for submissions to a closed or unstarted question.
	ErrQuestionNotActive = errors.New("question not active")
	// ErrOptionNotFound indicates a submitted option index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz indicates quiz content unfit for a live game.
	ErrInvalidQuiz = errors.New("invalid quiz content")
	// ErrNotHost is returned when a control action carries the wrong host token.
	ErrNotHost = errors.New("host token mismatch")

	// ErrInvalidAccessCode is returned when a code fails normalization.
	ErrInvalidAccessCode = errors.New("invalid access code")
	// ErrAccessCodeNotFound is returned when a code does not resolve.
	ErrAccessCodeNotFound = errors.New("access code not found")
	// ErrAccessCodeNotOpen is returned before the code's window opens.
	ErrAccessCodeNotOpen = errors.New("access code window not open yet")
	// ErrAccessCodeExpired is returned after the code's window closes.
	ErrAccessCodeExpired = errors.New("access code window closed")
)

package game

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sedetok-live/internal/domain"
)

// SessionStore abstracts how live sessions are held (in-memory, Redis-backed).
type SessionStore interface {
	Put(session *Session)
	Get(pin string) (*Session, bool)
	Delete(pin string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AccessCodeRepository resolves evaluation access codes.
type AccessCodeRepository interface {
	GetAccessCode(ctx context.Context, code string) (domain.AccessCode, error)
}

// AnswerJournal durably records scored answers. Record reports false when
// the (game, player, question) key was already journaled, so at-least-once
// delivery cannot double-score.
type AnswerJournal interface {
	Record(ctx context.Context, rec domain.AnswerRecord) (bool, error)
}

// ResultArchiver persists final standings of finished games.
type ResultArchiver interface {
	Archive(ctx context.Context, result domain.GameResult) error
}

// Route tells a joining player which screen to land on.
type Route string

const (
	// RouteLobby means the game has not started; wait for the host.
	RouteLobby Route = "lobby"
	// RoutePlay means the game is already running; skip the lobby.
	RoutePlay Route = "play"
)

const (
	defaultLobbyPoll     = 2 * time.Second
	defaultCountdownTick = time.Second
	maxPINAttempts       = 32
)

// Service contains the live-game use cases.
type Service struct {
	sessions SessionStore
	quizzes  QuizRepository
	codes    AccessCodeRepository
	journal  AnswerJournal
	archiver ResultArchiver
	log      zerolog.Logger

	now           func() time.Time
	lobbyPoll     time.Duration
	countdownTick time.Duration
}

func NewService(sessions SessionStore, quizzes QuizRepository, codes AccessCodeRepository, journal AnswerJournal, archiver ResultArchiver, log zerolog.Logger) *Service {
	return &Service{
		sessions:      sessions,
		quizzes:       quizzes,
		codes:         codes,
		journal:       journal,
		archiver:      archiver,
		log:           log,
		now:           time.Now,
		lobbyPoll:     defaultLobbyPoll,
		countdownTick: defaultCountdownTick,
	}
}

// SetClock is test-only, for deterministic timestamps.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetIntervals overrides the lobby poll and countdown tick periods.
func (s *Service) SetIntervals(lobbyPoll, countdownTick time.Duration) {
	if lobbyPoll > 0 {
		s.lobbyPoll = lobbyPoll
	}
	if countdownTick > 0 {
		s.countdownTick = countdownTick
	}
}

// CreatedGame is what a host gets back from CreateGame; the token guards
// all control actions and is never shown to players.
type CreatedGame struct {
	Game      domain.Game `json:"game"`
	HostToken string      `json:"hostToken"`
}

// CreateGame loads quiz content and opens a new waiting game with a fresh
// numeric PIN.
func (s *Service) CreateGame(ctx context.Context, title, quizID string) (CreatedGame, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return CreatedGame{}, err
	}
	if err := validateQuestions(quiz.Questions); err != nil {
		return CreatedGame{}, err
	}
	if title == "" {
		title = quiz.Title
	}
	return s.openGame(title, quiz.Questions)
}

// Replay creates a fresh game from a previous one, copying its question
// set. The original game keeps its id, PIN, and final standings.
func (s *Service) Replay(ctx context.Context, rawPIN, hostToken string) (CreatedGame, error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return CreatedGame{}, err
	}
	if err := session.Authorize(hostToken); err != nil {
		return CreatedGame{}, err
	}
	prev := session.Game()
	return s.openGame(prev.Title, prev.Questions)
}

func (s *Service) openGame(title string, questions []domain.Question) (CreatedGame, error) {
	pin, err := s.uniquePIN()
	if err != nil {
		return CreatedGame{}, err
	}

	game := domain.Game{
		ID:                   uuid.NewString(),
		Title:                title,
		PIN:                  pin,
		Status:               domain.StatusWaiting,
		CurrentQuestionIndex: -1,
		Questions:            append([]domain.Question(nil), questions...),
		CreatedAt:            s.now(),
	}
	hostToken := uuid.NewString()

	s.sessions.Put(NewSessionWithClock(game, hostToken, s.now))
	s.log.Info().Str("pin", pin).Str("game_id", game.ID).Int("questions", len(questions)).Msg("game created")
	return CreatedGame{Game: game, HostToken: hostToken}, nil
}

// JoinGame resolves a PIN, registers the player, and routes them to the
// lobby or, when the game already runs, straight into play.
func (s *Service) JoinGame(ctx context.Context, rawPIN, displayName string) (domain.Player, Route, error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return domain.Player{}, "", err
	}

	player, err := session.Join(displayName)
	if err != nil {
		return domain.Player{}, "", err
	}

	route := RouteLobby
	if session.Status() == domain.StatusInProgress {
		route = RoutePlay
	}
	s.log.Info().Str("pin", session.PIN()).Str("player", player.DisplayName).Str("route", string(route)).Msg("player joined")
	return player, route, nil
}

// WaitForStart blocks until the game leaves the waiting state. It listens
// for the start broadcast and polls the session on a fixed interval as a
// fallback, and stops both the moment ctx is canceled.
func (s *Service) WaitForStart(ctx context.Context, rawPIN string) (domain.GameStatus, error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return "", err
	}

	events, cancel := session.Subscribe()
	defer cancel()

	ticker := time.NewTicker(s.lobbyPoll)
	defer ticker.Stop()

	for {
		switch session.Status() {
		case domain.StatusInProgress:
			return domain.StatusInProgress, nil
		case domain.StatusFinished:
			// host ended the game before it ever started
			return domain.StatusFinished, domain.ErrGameFinished
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		case <-events:
		}
	}
}

// Start flips the game to in_progress. The first question is not opened
// until the host advances; the pace is always host-controlled.
func (s *Service) Start(ctx context.Context, rawPIN, hostToken string) error {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return err
	}
	if err := session.Authorize(hostToken); err != nil {
		return err
	}
	if err := session.Start(); err != nil {
		return err
	}
	s.log.Info().Str("pin", session.PIN()).Msg("game started")
	return nil
}

// NextQuestion closes the current question if one is open and opens the
// next. Advancing past the last question finishes the game.
func (s *Service) NextQuestion(ctx context.Context, rawPIN, hostToken string) (Snapshot, error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.Authorize(hostToken); err != nil {
		return Snapshot{}, err
	}

	current := session.Game()
	if current.Status == domain.StatusWaiting {
		return Snapshot{}, domain.ErrGameNotStarted
	}
	if current.Status == domain.StatusFinished {
		return Snapshot{}, domain.ErrGameFinished
	}

	if timeouts, err := session.CloseQuestion(current.CurrentQuestionIndex); err == nil {
		s.journalRecords(ctx, session.PIN(), timeouts)
	}

	next := current.CurrentQuestionIndex + 1
	if next >= len(current.Questions) {
		_, err := s.finish(ctx, session)
		return session.Snapshot(), err
	}

	if _, err := session.StartQuestion(next); err != nil {
		return Snapshot{}, err
	}
	go s.runQuestionTimer(session, next)

	s.log.Info().Str("pin", session.PIN()).Int("question", next).Msg("question opened")
	return session.Snapshot(), nil
}

// Finish ends the game regardless of remaining questions.
func (s *Service) Finish(ctx context.Context, rawPIN, hostToken string) (domain.GameResult, error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return domain.GameResult{}, err
	}
	if err := session.Authorize(hostToken); err != nil {
		return domain.GameResult{}, err
	}
	return s.finish(ctx, session)
}

func (s *Service) finish(ctx context.Context, session *Session) (domain.GameResult, error) {
	result, err := session.Finish()
	if err != nil {
		return domain.GameResult{}, err
	}
	op := func() error { return s.archiver.Archive(ctx, result) }
	if err := backoff.Retry(op, s.retryPolicy(ctx)); err != nil {
		// the live leaderboard stays correct either way
		s.log.Error().Err(err).Str("pin", session.PIN()).Msg("archiving final result failed")
	}
	s.log.Info().Str("pin", session.PIN()).Int("players", len(result.Standings)).Msg("game finished")
	return result, nil
}

// SubmitAnswer records one player's answer. The session applies the score
// exactly once; the durable journal write is retried with backoff and is
// idempotent on (game, player, question).
func (s *Service) SubmitAnswer(ctx context.Context, rawPIN string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	result, record, first, err := session.Submit(sub.PlayerID, sub.QuestionIndex, sub.OptionIndex)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if first {
		s.journalRecords(ctx, session.PIN(), []domain.AnswerRecord{record})
	}
	return result, nil
}

// Leaderboard returns the current standings for a game.
func (s *Service) Leaderboard(ctx context.Context, rawPIN string) (domain.Leaderboard, error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return session.Leaderboard(), nil
}

// Snapshot returns the state-sync view clients use on connect/reconnect.
func (s *Service) Snapshot(ctx context.Context, rawPIN string) (Snapshot, error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe returns session events for a game. The caller must invoke the
// cancel function to avoid leaks.
func (s *Service) Subscribe(ctx context.Context, rawPIN string) (<-chan Event, func(), error) {
	session, err := s.sessionByPIN(rawPIN)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// ResolveAccessCode looks up an evaluation code and enforces its time
// window. The configuration flags are returned as-is for clients.
func (s *Service) ResolveAccessCode(ctx context.Context, raw string) (domain.AccessCode, error) {
	code, err := domain.NormalizeAccessCode(raw)
	if err != nil {
		return domain.AccessCode{}, err
	}
	ac, err := s.codes.GetAccessCode(ctx, code)
	if err != nil {
		return domain.AccessCode{}, err
	}
	now := s.now()
	if now.Before(ac.StartsAt) {
		return domain.AccessCode{}, domain.ErrAccessCodeNotOpen
	}
	if !ac.EndsAt.IsZero() && now.After(ac.EndsAt) {
		return domain.AccessCode{}, domain.ErrAccessCodeExpired
	}
	return ac, nil
}

func (s *Service) sessionByPIN(rawPIN string) (*Session, error) {
	pin, err := domain.NormalizePIN(rawPIN)
	if err != nil {
		return nil, err
	}
	session, ok := s.sessions.Get(pin)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return session, nil
}

// runQuestionTimer drives the countdown for one open question and closes
// it at the deadline. It stops quietly if the host closes the question or
// the game first.
func (s *Service) runQuestionTimer(session *Session, questionIndex int) {
	ticker := time.NewTicker(s.countdownTick)
	defer ticker.Stop()

	for range ticker.C {
		g := session.Game()
		if g.Status != domain.StatusInProgress || g.CurrentQuestionIndex != questionIndex {
			return
		}
		if session.Tick() {
			timeouts, err := session.CloseQuestion(questionIndex)
			if err == nil {
				s.journalRecords(context.Background(), session.PIN(), timeouts)
				s.log.Info().Str("pin", session.PIN()).Int("question", questionIndex).Int("timeouts", len(timeouts)).Msg("question timed out")
			}
			return
		}
	}
}

func (s *Service) journalRecords(ctx context.Context, pin string, records []domain.AnswerRecord) {
	for _, rec := range records {
		rec := rec
		op := func() error {
			_, err := s.journal.Record(ctx, rec)
			return err
		}
		if err := backoff.Retry(op, s.retryPolicy(ctx)); err != nil {
			s.log.Error().Err(err).Str("pin", pin).Str("player", rec.PlayerID).Int("question", rec.QuestionIndex).Msg("journaling answer failed")
		}
	}
}

func (s *Service) retryPolicy(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(policy, 4), ctx)
}

func (s *Service) uniquePIN() (string, error) {
	for attempt := 0; attempt < maxPINAttempts; attempt++ {
		pin, err := randomPIN()
		if err != nil {
			return "", err
		}
		if _, taken := s.sessions.Get(pin); !taken {
			return pin, nil
		}
	}
	return "", fmt.Errorf("could not allocate a free pin after %d attempts", maxPINAttempts)
}

func randomPIN() (string, error) {
	buf := make([]byte, domain.PINLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	for i := range buf {
		buf[i] = '0' + buf[i]%10
	}
	return string(buf), nil
}

func validateQuestions(questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrInvalidQuiz
	}
	for _, q := range questions {
		if len(q.Options) < 2 || len(q.Options) > 4 {
			return domain.ErrInvalidQuiz
		}
		if correctOptionIndex(q) == TimeoutOption {
			return domain.ErrInvalidQuiz
		}
	}
	return nil
}

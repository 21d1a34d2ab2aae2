package game

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sedetok-live/internal/domain"
)

// TimeoutOption marks a zero-point record written for a player who never
// answered before the question closed.
const TimeoutOption = -1

type answerKey struct {
	playerID      string
	questionIndex int
}

// Session is the authoritative in-memory state machine for one live game.
// Every transition is a single check-and-set under one mutex, so the
// "answered" guard cannot race between a player's submit and the question
// timer the way two independent callbacks could.
type Session struct {
	mu        sync.RWMutex
	game      domain.Game
	hostToken string
	now       func() time.Time

	players    map[string]*domain.Player
	nameIndex  map[string]string // lowercased display name -> player ID
	answers    map[answerKey]domain.AnswerResult
	questionAt time.Time // when the current question opened
	deadline   time.Time
	open       bool

	subscribers map[chan Event]struct{}
}

// NewSession builds a session for a freshly created game.
func NewSession(g domain.Game, hostToken string) *Session {
	return NewSessionWithClock(g, hostToken, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(g domain.Game, hostToken string, now func() time.Time) *Session {
	return &Session{
		game:        g,
		hostToken:   hostToken,
		now:         now,
		players:     make(map[string]*domain.Player),
		nameIndex:   make(map[string]string),
		answers:     make(map[answerKey]domain.AnswerResult),
		subscribers: make(map[chan Event]struct{}),
	}
}

// PIN returns the immutable join code.
func (s *Session) PIN() string {
	return s.game.PIN
}

// Status returns the current lifecycle phase.
func (s *Session) Status() domain.GameStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Status
}

// Game returns a copy of the game row, questions included.
func (s *Session) Game() domain.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game
}

// Authorize checks a host control token.
func (s *Session) Authorize(token string) error {
	if token == "" || token != s.hostToken {
		return domain.ErrNotHost
	}
	return nil
}

// IsEmpty reports whether nobody has joined yet.
func (s *Session) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players) == 0
}

// Join registers a player. Joining is allowed while the game is waiting or
// already running (late join); finished games reject new players.
func (s *Session) Join(displayName string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status == domain.StatusFinished {
		return domain.Player{}, domain.ErrGameFinished
	}
	key := strings.ToLower(strings.TrimSpace(displayName))
	if key == "" {
		return domain.Player{}, domain.ErrNameTaken
	}
	if _, taken := s.nameIndex[key]; taken {
		return domain.Player{}, domain.ErrNameTaken
	}

	now := s.now()
	player := &domain.Player{
		ID:          uuid.NewString(),
		DisplayName: strings.TrimSpace(displayName),
		JoinedAt:    now,
	}
	s.players[player.ID] = player
	s.nameIndex[key] = player.ID

	s.broadcastLocked(Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{
		Player:      domain.LeaderboardEntry{PlayerID: player.ID, DisplayName: player.DisplayName},
		PlayerCount: len(s.players),
	}})
	return *player, nil
}

// Start moves the game from waiting to in_progress. The lifecycle never
// moves backwards; starting twice is an error.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.game.Status {
	case domain.StatusInProgress:
		return domain.ErrGameAlreadyStarted
	case domain.StatusFinished:
		return domain.ErrGameFinished
	}
	s.game.Status = domain.StatusInProgress

	s.broadcastLocked(Event{Type: EventGameStarted, Payload: s.snapshotLocked()})
	return nil
}

// StartQuestion opens question idx for answering. Only the next unplayed
// question may be opened; the host cannot rewind.
func (s *Session) StartQuestion(idx int) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status != domain.StatusInProgress {
		if s.game.Status == domain.StatusFinished {
			return domain.Question{}, domain.ErrGameFinished
		}
		return domain.Question{}, domain.ErrGameNotStarted
	}
	if idx != s.game.CurrentQuestionIndex+1 || idx >= len(s.game.Questions) {
		return domain.Question{}, domain.ErrQuestionNotActive
	}

	s.game.CurrentQuestionIndex = idx
	q := s.game.Questions[idx]
	now := s.now()
	s.questionAt = now
	s.deadline = now.Add(questionTimeLimit(q))
	s.open = true

	s.broadcastLocked(Event{Type: EventQuestionStart, Payload: QuestionStartPayload{
		Question:       questionView(idx, q),
		TotalQuestions: len(s.game.Questions),
	}})
	return q, nil
}

// Submit records a player's answer for questionIndex. The first submission
// per (player, question) scores; every repeat returns the recorded result
// unchanged, so retried deliveries can never double-score.
func (s *Session) Submit(playerID string, questionIndex, optionIndex int) (domain.AnswerResult, domain.AnswerRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return domain.AnswerResult{}, domain.AnswerRecord{}, false, domain.ErrPlayerNotFound
	}

	key := answerKey{playerID: playerID, questionIndex: questionIndex}
	if prior, answered := s.answers[key]; answered {
		return prior, domain.AnswerRecord{}, false, nil
	}

	if !s.open || questionIndex != s.game.CurrentQuestionIndex {
		return domain.AnswerResult{}, domain.AnswerRecord{}, false, domain.ErrQuestionNotActive
	}
	q := s.game.Questions[questionIndex]
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return domain.AnswerResult{}, domain.AnswerRecord{}, false, domain.ErrOptionNotFound
	}

	now := s.now()
	latency := now.Sub(s.questionAt)
	if latency < 0 {
		latency = 0
	}
	correct := q.Options[optionIndex].Correct
	awarded := Score(correct, questionPoints(q), latency, questionTimeLimit(q))

	// Score only goes up, never down, while the game runs.
	player.Score += awarded
	if awarded > 0 {
		player.LastScoredAt = now
	}

	result := domain.AnswerResult{
		QuestionIndex: questionIndex,
		OptionIndex:   optionIndex,
		Correct:       correct,
		Awarded:       awarded,
		TotalScore:    player.Score,
	}
	s.answers[key] = result

	record := domain.AnswerRecord{
		GameID:        s.game.ID,
		PlayerID:      playerID,
		QuestionIndex: questionIndex,
		OptionIndex:   optionIndex,
		Correct:       correct,
		Awarded:       awarded,
		LatencyMs:     latency.Milliseconds(),
		SubmittedAt:   now,
	}

	s.broadcastLocked(Event{Type: EventLeaderboard, Payload: s.leaderboardLocked()})
	return result, record, true, nil
}

// SecondsLeft reports the remaining answer window, zero when no question
// is open.
func (s *Session) SecondsLeft() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secondsLeftLocked()
}

func (s *Session) secondsLeftLocked() int {
	if !s.open {
		return 0
	}
	left := s.deadline.Sub(s.now())
	if left <= 0 {
		return 0
	}
	// round up so clients never display 0 while answers are still accepted
	return int((left + time.Second - 1) / time.Second)
}

// Tick broadcasts the countdown for the open question and reports whether
// the deadline has passed.
func (s *Session) Tick() (expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return true
	}
	left := s.secondsLeftLocked()
	s.broadcastLocked(Event{Type: EventCountdown, Payload: CountdownPayload{
		QuestionIndex: s.game.CurrentQuestionIndex,
		SecondsLeft:   left,
	}})
	return left == 0
}

// CloseQuestion ends the answer window for questionIndex. Players who
// never answered get a zero-point timeout record, exactly as if they had
// answered at the limit; their records are returned for journaling.
func (s *Session) CloseQuestion(questionIndex int) ([]domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeQuestionLocked(questionIndex)
}

func (s *Session) closeQuestionLocked(questionIndex int) ([]domain.AnswerRecord, error) {
	if !s.open || questionIndex != s.game.CurrentQuestionIndex {
		return nil, domain.ErrQuestionNotActive
	}
	s.open = false

	q := s.game.Questions[questionIndex]
	now := s.now()

	var timeouts []domain.AnswerRecord
	for id, player := range s.players {
		key := answerKey{playerID: id, questionIndex: questionIndex}
		if _, answered := s.answers[key]; answered {
			continue
		}
		s.answers[key] = domain.AnswerResult{
			QuestionIndex: questionIndex,
			OptionIndex:   TimeoutOption,
			TotalScore:    player.Score,
		}
		timeouts = append(timeouts, domain.AnswerRecord{
			GameID:        s.game.ID,
			PlayerID:      id,
			QuestionIndex: questionIndex,
			OptionIndex:   TimeoutOption,
			LatencyMs:     questionTimeLimit(q).Milliseconds(),
			SubmittedAt:   now,
		})
	}

	s.broadcastLocked(Event{Type: EventQuestionClosed, Payload: QuestionClosedPayload{
		QuestionIndex:      questionIndex,
		CorrectOptionIndex: correctOptionIndex(q),
		Leaderboard:        s.leaderboardLocked(),
	}})
	return timeouts, nil
}

// Finish moves the game to its terminal state and returns the archived
// result. Finishing twice returns the same result.
func (s *Session) Finish() (domain.GameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status == domain.StatusFinished {
		return s.resultLocked(), nil
	}
	if s.open {
		// host ended the game mid-question; close it out first
		_, _ = s.closeQuestionLocked(s.game.CurrentQuestionIndex)
	}
	now := s.now()
	s.game.Status = domain.StatusFinished
	s.game.FinishedAt = &now

	result := s.resultLocked()
	s.broadcastLocked(Event{Type: EventGameFinished, Payload: GameFinishedPayload{Result: result}})
	return result, nil
}

// Leaderboard returns the current ordered standings.
func (s *Session) Leaderboard() domain.Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

// Snapshot returns the full state-sync view for a connecting client.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of session events plus a cancel func the
// caller must invoke to avoid leaks. The channel starts with no backlog;
// use Snapshot for catch-up state.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest queued event rather than block the session
			// on a slow client
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) leaderboardLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(s.players))
	for _, player := range s.players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:    player.ID,
			DisplayName: player.DisplayName,
			Score:       player.Score,
		})
	}

	// Ties break by who reached the score first, then by name, so the
	// ordering is deterministic across refreshes.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		pi := s.players[entries[i].PlayerID]
		pj := s.players[entries[j].PlayerID]
		if !pi.LastScoredAt.Equal(pj.LastScoredAt) {
			return pi.LastScoredAt.Before(pj.LastScoredAt)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{
		GamePIN:   s.game.PIN,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		PIN:                  s.game.PIN,
		Title:                s.game.Title,
		Status:               s.game.Status,
		CurrentQuestionIndex: s.game.CurrentQuestionIndex,
		SecondsLeft:          s.secondsLeftLocked(),
		TotalQuestions:       len(s.game.Questions),
		Leaderboard:          s.leaderboardLocked(),
	}
	if s.open {
		idx := s.game.CurrentQuestionIndex
		view := questionView(idx, s.game.Questions[idx])
		snap.CurrentQuestion = &view
	}
	return snap
}

func (s *Session) resultLocked() domain.GameResult {
	finishedAt := s.now()
	if s.game.FinishedAt != nil {
		finishedAt = *s.game.FinishedAt
	}
	return domain.GameResult{
		GameID:     s.game.ID,
		Title:      s.game.Title,
		PIN:        s.game.PIN,
		Standings:  s.leaderboardLocked().Entries,
		FinishedAt: finishedAt,
	}
}

// questionView strips correct flags before a question goes out to players.
func questionView(idx int, q domain.Question) QuestionView {
	options := make([]OptionView, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionView{Index: i, Text: opt.Text}
	}
	return QuestionView{
		Index:     idx,
		Prompt:    q.Prompt,
		Options:   options,
		TimeLimit: int(questionTimeLimit(q) / time.Second),
		MediaURL:  q.MediaURL,
	}
}

func correctOptionIndex(q domain.Question) int {
	for i, opt := range q.Options {
		if opt.Correct {
			return i
		}
	}
	return TimeoutOption
}

func questionTimeLimit(q domain.Question) time.Duration {
	if q.TimeLimit <= 0 {
		return DefaultTimeLimit
	}
	return time.Duration(q.TimeLimit) * time.Second
}

func questionPoints(q domain.Question) int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

package game

import (
	"testing"
	"time"

	"sedetok-live/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testGame(questions ...domain.Question) domain.Game {
	return domain.Game{
		ID:                   "g1",
		Title:                "Capitals",
		PIN:                  "428913",
		Status:               domain.StatusWaiting,
		CurrentQuestionIndex: -1,
		Questions:            questions,
	}
}

func twoOptionQuestion(id string, limit, points int) domain.Question {
	return domain.Question{
		ID:     id,
		Prompt: "Pick the right one",
		Options: []domain.Option{
			{ID: id + "-a", Text: "Wrong"},
			{ID: id + "-b", Text: "Right", Correct: true},
		},
		TimeLimit: limit,
		Points:    points,
	}
}

func TestLifecycleIsForwardOnly(t *testing.T) {
	s := NewSession(testGame(twoOptionQuestion("q1", 20, 100)), "host-token")

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(); err != domain.ErrGameAlreadyStarted {
		t.Fatalf("second start: got %v, want ErrGameAlreadyStarted", err)
	}
	if _, err := s.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := s.Start(); err != domain.ErrGameFinished {
		t.Fatalf("start after finish: got %v, want ErrGameFinished", err)
	}
	if _, err := s.Join("Latecomer"); err != domain.ErrGameFinished {
		t.Fatalf("join after finish: got %v, want ErrGameFinished", err)
	}
}

func TestJoinRejectsDuplicateNames(t *testing.T) {
	s := NewSession(testGame(twoOptionQuestion("q1", 20, 100)), "host-token")

	if _, err := s.Join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := s.Join("ana "); err != domain.ErrNameTaken {
		t.Fatalf("duplicate name: got %v, want ErrNameTaken", err)
	}
}

func TestSubmitScoresExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	s := NewSessionWithClock(testGame(twoOptionQuestion("q1", 20, 100)), "host-token", clock.Now)

	player, err := s.Join("Ana")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.StartQuestion(0); err != nil {
		t.Fatalf("start question: %v", err)
	}

	clock.Advance(5 * time.Second)
	first, rec, isFirst, err := s.Submit(player.ID, 0, 1)
	if err != nil || !isFirst {
		t.Fatalf("first submit: first=%v err=%v", isFirst, err)
	}
	if !first.Correct || first.Awarded <= 0 {
		t.Fatalf("expected positive score, got %+v", first)
	}
	if rec.LatencyMs != 5000 {
		t.Fatalf("expected 5000ms latency, got %d", rec.LatencyMs)
	}

	// Repeats are no-ops that return the recorded result, even with a
	// different option.
	again, _, isFirst, err := s.Submit(player.ID, 0, 0)
	if err != nil || isFirst {
		t.Fatalf("repeat submit: first=%v err=%v", isFirst, err)
	}
	if again != first {
		t.Fatalf("repeat changed the result: %+v vs %+v", again, first)
	}
	if lb := s.Leaderboard(); lb.Entries[0].Score != first.Awarded {
		t.Fatalf("score changed on repeat: %d", lb.Entries[0].Score)
	}
}

func TestSubmitAfterCloseIsRejected(t *testing.T) {
	clock := newFakeClock()
	s := NewSessionWithClock(testGame(twoOptionQuestion("q1", 20, 100)), "host-token", clock.Now)

	player, _ := s.Join("Ana")
	_ = s.Start()
	_, _ = s.StartQuestion(0)

	if _, err := s.CloseQuestion(0); err != nil {
		t.Fatalf("close: %v", err)
	}
	// the player was timed out at close; a late submit returns that
	// zero-point record rather than scoring
	result, _, isFirst, err := s.Submit(player.ID, 0, 1)
	if err != nil || isFirst {
		t.Fatalf("late submit: first=%v err=%v", isFirst, err)
	}
	if result.Awarded != 0 || result.OptionIndex != TimeoutOption {
		t.Fatalf("late submit was scored: %+v", result)
	}
}

func TestCloseQuestionTimesOutSilentPlayers(t *testing.T) {
	clock := newFakeClock()
	s := NewSessionWithClock(testGame(twoOptionQuestion("q1", 20, 100)), "host-token", clock.Now)

	ana, _ := s.Join("Ana")
	_, _ = s.Join("Bruno")
	_ = s.Start()
	_, _ = s.StartQuestion(0)

	clock.Advance(3 * time.Second)
	if _, _, _, err := s.Submit(ana.ID, 0, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	timeouts, err := s.CloseQuestion(0)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(timeouts) != 1 {
		t.Fatalf("expected 1 timeout record, got %d", len(timeouts))
	}
	if timeouts[0].OptionIndex != TimeoutOption || timeouts[0].Awarded != 0 {
		t.Fatalf("unexpected timeout record %+v", timeouts[0])
	}
	if _, err := s.CloseQuestion(0); err != domain.ErrQuestionNotActive {
		t.Fatalf("double close: got %v", err)
	}
}

func TestSubmitAtDeadlineScoresZero(t *testing.T) {
	clock := newFakeClock()
	s := NewSessionWithClock(testGame(twoOptionQuestion("q1", 20, 100)), "host-token", clock.Now)

	player, _ := s.Join("Ana")
	_ = s.Start()
	_, _ = s.StartQuestion(0)

	clock.Advance(20 * time.Second)
	result, _, isFirst, err := s.Submit(player.ID, 0, 1)
	if err != nil || !isFirst {
		t.Fatalf("submit: first=%v err=%v", isFirst, err)
	}
	if result.Awarded != 0 {
		t.Fatalf("answer at the limit scored %d, want 0", result.Awarded)
	}
}

func TestHostCannotRewindQuestions(t *testing.T) {
	s := NewSession(testGame(twoOptionQuestion("q1", 20, 100), twoOptionQuestion("q2", 20, 100)), "host-token")

	_ = s.Start()
	if _, err := s.StartQuestion(1); err != domain.ErrQuestionNotActive {
		t.Fatalf("skipping ahead: got %v", err)
	}
	if _, err := s.StartQuestion(0); err != nil {
		t.Fatalf("start q0: %v", err)
	}
	_, _ = s.CloseQuestion(0)
	if _, err := s.StartQuestion(0); err != domain.ErrQuestionNotActive {
		t.Fatalf("rewind: got %v", err)
	}
	if _, err := s.StartQuestion(1); err != nil {
		t.Fatalf("start q1: %v", err)
	}
}

func TestLeaderboardOrderingAndTiebreak(t *testing.T) {
	clock := newFakeClock()
	s := NewSessionWithClock(testGame(twoOptionQuestion("q1", 20, 100)), "host-token", clock.Now)

	seed := func(name string, score int, scoredAt time.Time) {
		p, err := s.Join(name)
		if err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
		s.mu.Lock()
		s.players[p.ID].Score = score
		s.players[p.ID].LastScoredAt = scoredAt
		s.mu.Unlock()
	}

	base := clock.Now()
	seed("A", 300, base.Add(1*time.Minute))
	seed("B", 500, base.Add(3*time.Minute)) // tied with C, scored later
	seed("C", 500, base.Add(2*time.Minute)) // tied with B, scored earlier
	seed("D", 100, base.Add(1*time.Minute))

	lb := s.Leaderboard()
	var names []string
	for _, e := range lb.Entries {
		names = append(names, e.DisplayName)
	}
	want := []string{"C", "B", "A", "D"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got ordering %v, want %v", names, want)
		}
	}
	for i, e := range lb.Entries {
		if e.Rank != i+1 {
			t.Fatalf("rank %d on position %d", e.Rank, i)
		}
	}
}

func TestSubscribeReceivesQuestionEvents(t *testing.T) {
	s := NewSession(testGame(twoOptionQuestion("q1", 20, 100)), "host-token")

	events, cancel := s.Subscribe()
	defer cancel()

	if _, err := s.Join("Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	ev := <-events
	if ev.Type != EventPlayerJoined {
		t.Fatalf("expected player_joined, got %s", ev.Type)
	}

	_ = s.Start()
	ev = <-events
	if ev.Type != EventGameStarted {
		t.Fatalf("expected game_started, got %s", ev.Type)
	}

	_, _ = s.StartQuestion(0)
	ev = <-events
	if ev.Type != EventQuestionStart {
		t.Fatalf("expected question_started, got %s", ev.Type)
	}
	payload, ok := ev.Payload.(QuestionStartPayload)
	if !ok {
		t.Fatalf("unexpected payload %T", ev.Payload)
	}
	for _, opt := range payload.Question.Options {
		if opt.Text == "" {
			t.Fatalf("option text missing: %+v", payload.Question)
		}
	}
}

func TestFinishMidQuestionClosesIt(t *testing.T) {
	s := NewSession(testGame(twoOptionQuestion("q1", 20, 100)), "host-token")

	_, _ = s.Join("Ana")
	_ = s.Start()
	_, _ = s.StartQuestion(0)

	result, err := s.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(result.Standings) != 1 {
		t.Fatalf("expected 1 standing, got %d", len(result.Standings))
	}
	if s.SecondsLeft() != 0 {
		t.Fatalf("question still open after finish")
	}

	again, err := s.Finish()
	if err != nil || again.FinishedAt != result.FinishedAt {
		t.Fatalf("finish not idempotent: %+v err=%v", again, err)
	}
}

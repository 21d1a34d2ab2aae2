package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sedetok-live/internal/domain"
	"sedetok-live/internal/game"
	"sedetok-live/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *game.Service) {
	t.Helper()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := game.NewService(memory.NewSessionStore(), quizzes, memory.NewStaticAccessCodeLoader(nil), memory.NewAnswerJournal(), memory.NoopArchiver{}, zerolog.Nop())
	service.SetIntervals(10*time.Millisecond, 10*time.Millisecond)

	mux := http.NewServeMux()
	NewAPIHandler(service, zerolog.Nop()).Register(mux)
	mux.HandleFunc("/ws", NewWSHandler(service, zerolog.Nop()).ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func createGame(t *testing.T, server *httptest.Server) game.CreatedGame {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"quizId": "quiz-1"})
	resp, err := http.Post(server.URL+"/games", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create game status %d", resp.StatusCode)
	}
	var created game.CreatedGame
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created game: %v", err)
	}
	return created
}

func hostPost(t *testing.T, server *httptest.Server, pin, token, action string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/games/"+pin+"/"+action, nil)
	req.Header.Set(hostTokenHeader, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s: %v", action, err)
	}
	return resp
}

func TestWebSocketGameFlow(t *testing.T) {
	server, _ := newTestServer(t)
	created := createGame(t, server)
	pin := created.Game.PIN

	u := "ws" + server.URL[len("http"):] + "/ws?pin=" + pin + "&name=Ana"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Joined event carries the lobby route for a waiting game.
	_, payload := readNext(conn, t, "joined")
	if payload["route"] != string(game.RouteLobby) {
		t.Fatalf("expected lobby route, got %v", payload["route"])
	}

	// Host starts the game and opens the first question.
	if resp := hostPost(t, server, pin, created.HostToken, "start"); resp.StatusCode != http.StatusOK {
		t.Fatalf("start status %d", resp.StatusCode)
	}
	if resp := hostPost(t, server, pin, created.HostToken, "next"); resp.StatusCode != http.StatusOK {
		t.Fatalf("next status %d", resp.StatusCode)
	}

	waitFor(conn, t, game.EventGameStarted)
	question := waitFor(conn, t, game.EventQuestionStart)
	if question["question"] == nil {
		t.Fatalf("question payload missing: %v", question)
	}
	// The live question must not leak correct flags.
	raw, _ := json.Marshal(question)
	if bytes.Contains(raw, []byte("correct")) {
		t.Fatalf("live question leaks answers: %s", raw)
	}

	// Answer the question.
	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionIndex": 0, "optionIndex": 1},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	result := waitFor(conn, t, "answer_result")
	if result["correct"] != true {
		t.Fatalf("expected correct answer, got %v", result)
	}

	// Host finishes; final standings arrive.
	if resp := hostPost(t, server, pin, created.HostToken, "finish"); resp.StatusCode != http.StatusOK {
		t.Fatalf("finish status %d", resp.StatusCode)
	}
	waitFor(conn, t, game.EventGameFinished)
}

func TestWebSocketRejectsUnknownPIN(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?pin=999999&name=Ana"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, payload := readNext(conn, t, "")
	if msgType != "error" || payload["message"] == "" {
		t.Fatalf("expected error message, got %s %v", msgType, payload)
	}
}

func TestLateJoinRoutesToPlay(t *testing.T) {
	server, service := newTestServer(t)
	created := createGame(t, server)
	pin := created.Game.PIN

	ctx := context.Background()
	if err := service.Start(ctx, pin, created.HostToken); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.NextQuestion(ctx, pin, created.HostToken); err != nil {
		t.Fatalf("next: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?pin=" + pin + "&name=Tarde"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "joined")
	if payload["route"] != string(game.RoutePlay) {
		t.Fatalf("expected play route for late join, got %v", payload["route"])
	}
	snapshot, ok := payload["snapshot"].(map[string]any)
	if !ok || snapshot["currentQuestion"] == nil {
		t.Fatalf("expected active question in snapshot, got %v", payload["snapshot"])
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

// waitFor skips interleaved broadcasts (countdowns, leaderboards) until
// the wanted event type arrives.
func waitFor(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		msgType, payload := readNext(conn, t, "")
		if msgType == want {
			return payload
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Arithmetic",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
					TimeLimit: 20,
					Points:    100,
				},
			},
		},
	}
}

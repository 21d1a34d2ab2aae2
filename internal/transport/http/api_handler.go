package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"sedetok-live/internal/domain"
	"sedetok-live/internal/game"
)

// hostTokenHeader carries the control token minted at game creation.
const hostTokenHeader = "X-Host-Token"

// APIHandler exposes the host control surface and read-only lookups.
type APIHandler struct {
	service *game.Service
	log     zerolog.Logger
}

func NewAPIHandler(service *game.Service, log zerolog.Logger) *APIHandler {
	return &APIHandler{service: service, log: log}
}

// Register mounts all routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /games", h.createGame)
	mux.HandleFunc("POST /games/{pin}/start", h.startGame)
	mux.HandleFunc("POST /games/{pin}/next", h.nextQuestion)
	mux.HandleFunc("POST /games/{pin}/finish", h.finishGame)
	mux.HandleFunc("POST /games/{pin}/replay", h.replayGame)
	mux.HandleFunc("GET /games/{pin}/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /access-codes/{code}", h.resolveAccessCode)
}

type createGameRequest struct {
	Title  string `json:"title"`
	QuizID string `json:"quizId"`
}

func (h *APIHandler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.CreateGame(r.Context(), req.Title, req.QuizID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *APIHandler) startGame(w http.ResponseWriter, r *http.Request) {
	err := h.service.Start(r.Context(), r.PathValue("pin"), r.Header.Get(hostTokenHeader))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusInProgress)})
}

func (h *APIHandler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.NextQuestion(r.Context(), r.PathValue("pin"), r.Header.Get(hostTokenHeader))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *APIHandler) finishGame(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Finish(r.Context(), r.PathValue("pin"), r.Header.Get(hostTokenHeader))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) replayGame(w http.ResponseWriter, r *http.Request) {
	created, err := h.service.Replay(r.Context(), r.PathValue("pin"), r.Header.Get(hostTokenHeader))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.PathValue("pin"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *APIHandler) resolveAccessCode(w http.ResponseWriter, r *http.Request) {
	ac, err := h.service.ResolveAccessCode(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ac)
}

func (h *APIHandler) writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrGameNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAccessCodeNotFound),
		errors.Is(err, domain.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotHost):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrGameFinished),
		errors.Is(err, domain.ErrGameAlreadyStarted),
		errors.Is(err, domain.ErrGameNotStarted),
		errors.Is(err, domain.ErrQuestionNotActive),
		errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrAccessCodeNotOpen),
		errors.Is(err, domain.ErrAccessCodeExpired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidPIN),
		errors.Is(err, domain.ErrInvalidAccessCode),
		errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

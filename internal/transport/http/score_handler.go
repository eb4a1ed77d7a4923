package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"group-quiz-bot/internal/app"
)

// ScoreHandler serves GET /scores?userId=.
type ScoreHandler struct {
	engine *app.QuizEngine
}

func NewScoreHandler(engine *app.QuizEngine) *ScoreHandler {
	return &ScoreHandler{engine: engine}
}

type scoreResponse struct {
	UserID int64 `json:"userId"`
	Score  int64 `json:"score"`
}

func (h *ScoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}

	score, err := h.engine.Score(r.Context(), userID)
	if err != nil {
		log.Printf("score lookup for user %d: %v", userID, err)
		http.Error(w, "score unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(scoreResponse{UserID: userID, Score: score})
}

// NewMux routes the health, live feed and score endpoints.
func NewMux(feed *app.Feed, engine *app.QuizEngine) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", NewWSHandler(feed).ServeWS)
	mux.Handle("/scores", NewScoreHandler(engine))
	return mux
}

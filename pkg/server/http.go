package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type createGameResponse struct {
	GameID string `json:"game_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Waiting  bool   `json:"waiting"`
}

var notFound = errorResponse{Detail: "Game not found"}

// createGame allocates a fresh session with a generated ID.
func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.Create()
	s.writeJSON(w, http.StatusOK, createGameResponse{GameID: session.ID})
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(r.PathValue("gameID"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, notFound)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Snapshot())
}

// deleteGame drops a session from the store. Connected players keep their
// sockets but the session is no longer reachable.
func (s *Server) deleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameID")
	if !s.sessions.Delete(gameID) {
		s.writeJSON(w, http.StatusNotFound, notFound)
		return
	}
	s.log.Info("Deleted game", zap.String("game_id", gameID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	_, waiting := s.matchmaker.Waiting()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.sessions.Len(),
		Waiting:  waiting,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Debug("Error writing response", zap.Error(err))
	}
}

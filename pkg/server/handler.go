package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/comms"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/game"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/lobby"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/metrics"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	infoMatched = "matched; reconnect to game"
	infoWaiting = "waiting for an opponent"
)

// connectionHandler upgrades new HTTP requests from clients to websockets.
// Connections to the random game go through matchmaking, anything else
// joins the named session and plays until the client disconnects.
func (s *Server) connectionHandler(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameID")
	playerID := r.PathValue("playerID")

	// Upgrade HTTP GET request to a socket connection
	socket, err := s.socketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("Error upgrading connection", zap.Error(err))
		return
	}
	conn := comms.NewConnectionWrapper(socket, playerID, s.socketOptions(playerID), s.log)

	metrics.TotalConnections.Inc()
	metrics.ActiveConnections.Inc()
	defer func() {
		conn.Close()
		metrics.ActiveConnections.Dec()
	}()

	// Mark player as alive
	s.liveness.Touch(playerID)

	log := s.log.With(zap.String("game_id", gameID), zap.String("player_id", playerID))
	if gameID == lobby.RandomGameID {
		s.matchmake(conn, playerID, log)
		return
	}
	s.play(conn, gameID, playerID, log)
}

// matchmake offers the player to the matchmaker and, if nobody is waiting,
// holds the connection open until they are paired or leave. Either way the
// connection is closed afterwards; paired players reconnect to their game.
func (s *Server) matchmake(conn *comms.ConnectionWrapper, playerID string, log *zap.Logger) {
	ticket := s.matchmaker.Offer(playerID, conn)
	if !ticket.Pending() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Keep reading so heartbeats still count and a disconnect is noticed
	go func() {
		defer cancel()
		for {
			data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.handleWaitingMessage(conn, playerID, data)
		}
	}()

	gameID, err := ticket.Wait(ctx)
	switch {
	case err == nil:
		log.Info("Waiting player matched", zap.String("matched_game_id", gameID))
		conn.Send(comms.Info(infoMatched))
	case errors.Is(err, lobby.ErrSuperseded), errors.Is(err, lobby.ErrCancelled):
		conn.Send(comms.Info(err.Error()))
	default:
		// The client went away while waiting
		if s.matchmaker.Withdraw(ticket) {
			log.Info("Waiting player disconnected")
		}
	}
}

func (s *Server) handleWaitingMessage(conn comms.Conn, playerID string, data []byte) {
	req, err := comms.DecodeRequest(data)
	switch {
	case err != nil:
		s.protocolError(conn, err)
	case req.Type == comms.TypePing:
		s.liveness.Touch(playerID)
	default:
		conn.Send(comms.Info(infoWaiting))
	}
}

// play joins the session and handles messages until the client disconnects.
func (s *Server) play(conn *comms.ConnectionWrapper, gameID, playerID string, log *zap.Logger) {
	session, _ := s.sessions.GetOrCreate(gameID)
	if err := session.Join(playerID, conn); err != nil {
		return
	}

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("Client errored or disconnected", zap.Error(err))
			}
			// Keep the session and the player's seat so they can reconnect
			if session.Detach(playerID, conn) {
				log.Info("Opponent awarded the game after disconnect")
			}
			return
		}
		s.handleMessage(conn, session, playerID, data)
	}
}

// handleMessage dispatches one inbound frame from a seated player.
func (s *Server) handleMessage(conn comms.Conn, session *game.Session, playerID string, data []byte) {
	req, err := comms.DecodeRequest(data)
	if err != nil {
		s.protocolError(conn, err)
		return
	}

	switch req.Type {
	case comms.TypePing:
		s.liveness.Touch(playerID)

	case comms.TypeMove:
		index, err := comms.DecodeMove(req)
		if err != nil {
			s.protocolError(conn, err)
			return
		}
		if err := session.ApplyMove(playerID, index); err != nil {
			metrics.MovesRejected.WithLabelValues(game.RejectReason(err)).Inc()
			s.log.Debug("Move rejected",
				zap.String("game_id", session.ID),
				zap.String("player_id", playerID),
				zap.Int("index", index),
				zap.Error(err))
			conn.Send(comms.Error(err))
			return
		}
		metrics.MovesApplied.Inc()

	default:
		s.protocolError(conn, comms.ErrUnknownType)
	}
}

func (s *Server) protocolError(conn comms.Conn, err error) {
	metrics.ProtocolErrors.Inc()
	if err := conn.Send(comms.Error(err)); err != nil {
		s.log.Debug("Unable to send error", zap.Error(err))
	}
}

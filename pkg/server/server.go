package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/comms"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/config"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/liveness"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/lobby"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server stores all connection dependencies for the game server.
type Server struct {
	log            *zap.Logger
	config         *config.Config
	sessions       *lobby.SessionStore
	matchmaker     *lobby.Matchmaker
	liveness       *liveness.Table
	monitor        *liveness.Monitor
	socketUpgrader websocket.Upgrader
	httpServer     *http.Server
}

// NewServer constructs a new Server instance.
func NewServer(log *zap.Logger, cfg *config.Config, checkOriginFunc func(r *http.Request) bool) *Server {
	sessions := lobby.NewSessionStore(log)
	matchmaker := lobby.NewMatchmaker(sessions, log)
	table := liveness.NewTable()

	s := &Server{
		log:            log,
		config:         cfg,
		sessions:       sessions,
		matchmaker:     matchmaker,
		liveness:       table,
		monitor:        liveness.NewMonitor(table, matchmaker, sessions, cfg.Liveness.SweepInterval, cfg.Liveness.Timeout, log),
		socketUpgrader: websocket.Upgrader{CheckOrigin: checkOriginFunc},
	}
	s.httpServer = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s.Routes(),
	}
	return s
}

// Routes returns the handler for every endpoint.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{gameID}/{playerID}", s.connectionHandler)
	mux.HandleFunc("POST /api/create_game", s.createGame)
	mux.HandleFunc("GET /api/game/{gameID}", s.getGame)
	mux.HandleFunc("DELETE /api/game/{gameID}", s.deleteGame)
	mux.HandleFunc("GET /healthz", s.health)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start starts the liveness monitor and serves until Shutdown is called.
func (s *Server) Start() error {
	s.monitor.Start()
	s.log.Info("Started server", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, then stops the liveness monitor
// and waits for it to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.monitor.Stop()
	return err
}

func (s *Server) socketOptions(playerID string) comms.SocketOptions {
	ws := s.config.WebSocket
	return comms.SocketOptions{
		PingPeriod:     ws.PingPeriod,
		PongWait:       ws.PongWait,
		WriteWait:      ws.WriteWait,
		SendBuffer:     ws.SendBuffer,
		MaxMessageSize: ws.MaxMessageSize,
		OnPong:         func() { s.liveness.Touch(playerID) },
	}
}

// Package metrics holds the Prometheus collectors for the game server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tictactoe_connections_active",
		Help: "The current number of open websocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_connections_total",
		Help: "The total number of websocket connections accepted.",
	})
	BroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_broadcast_failures_total",
		Help: "The total number of messages that could not be delivered to a player.",
	})
	ProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_protocol_errors_total",
		Help: "The total number of malformed or unrecognised inbound messages.",
	})

	// Session metrics
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_sessions_created_total",
		Help: "The total number of game sessions created.",
	})
	MovesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_moves_applied_total",
		Help: "The total number of moves applied to a board.",
	})
	MovesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tictactoe_moves_rejected_total",
		Help: "The total number of rejected moves.",
	}, []string{"reason"})
	GamesWon = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_games_won_total",
		Help: "The total number of games won by completing a line.",
	})
	Forfeits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_forfeits_total",
		Help: "The total number of games won by forfeit.",
	})

	// Matchmaking and liveness metrics
	PlayersWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tictactoe_matchmaking_waiting",
		Help: "1 if a player is waiting for an opponent, otherwise 0.",
	})
	MatchesMade = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_matches_total",
		Help: "The total number of players paired by matchmaking.",
	})
	LivenessEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tictactoe_liveness_evictions_total",
		Help: "The total number of players evicted after missing heartbeats.",
	})
)

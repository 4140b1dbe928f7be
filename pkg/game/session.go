package game

import (
	"sync"
	"time"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/comms"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/metrics"
	"go.uber.org/zap"
)

const NumPlayers = 2

// Status is derived from the roster and the winner. It only moves forward.
type Status int

const (
	AwaitingPlayers Status = iota
	InProgress
	Finished
)

func (s Status) String() string {
	switch s {
	case AwaitingPlayers:
		return "awaiting_players"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// player is a participant's state within one session. It is never removed,
// only its connection changes as the player drops and reconnects.
type player struct {
	symbol int
	moves  moveWindow
	conn   comms.Conn
}

// Session is the authoritative state of one game. Every operation runs
// under the session's lock, including the broadcasts it triggers.
type Session struct {
	ID        string
	CreatedAt time.Time

	log     *zap.Logger
	mu      sync.Mutex
	board   Board
	players map[string]*player
	order   []string // player IDs in join order
	turn    string
	winner  string
}

func NewSession(id string, log *zap.Logger) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		log:       log.With(zap.String("game_id", id)),
		board:     NewBoard(),
		players:   make(map[string]*player, NumPlayers),
	}
}

// Join seats a player, or swaps in a new connection for a player who has
// joined before. The joining connection is always sent a joined message;
// both players are sent the state once the second player takes a seat.
// A third player is sent an error and has their connection closed.
func (s *Session) Join(playerID string, conn comms.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[playerID]; ok {
		p.conn = conn
		s.log.Info("Player reconnected", zap.String("player_id", playerID))
	} else if len(s.players) < NumPlayers {
		s.seat(playerID, conn)
		s.log.Info("Player joined",
			zap.String("player_id", playerID),
			zap.Int("symbol", s.players[playerID].symbol))
		if len(s.players) == NumPlayers {
			s.broadcast(comms.State(s.snapshot()))
		}
	} else {
		s.log.Info("Rejected player from full game", zap.String("player_id", playerID))
		s.send(conn, comms.Error(ErrSessionFull))
		conn.Close()
		return ErrSessionFull
	}

	s.send(conn, comms.Joined(s.snapshot()))
	return nil
}

// Pair seats two players without connections, first taking Nought and the
// first turn. It is used by matchmaking; both players are expected to
// connect to the session afterwards.
func (s *Session) Pair(first, second string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.players) > 0 {
		return ErrAlreadySeated
	}
	s.seat(first, nil)
	s.seat(second, nil)
	return nil
}

// seat adds a new player. Callers hold the lock and have checked capacity.
func (s *Session) seat(playerID string, conn comms.Conn) {
	s.players[playerID] = &player{
		symbol: len(s.players),
		conn:   conn,
	}
	s.order = append(s.order, playerID)
	if len(s.players) == NumPlayers && s.turn == "" {
		s.turn = s.order[0]
	}
}

// ApplyMove places playerID's symbol at index. Checks run in a fixed order
// and the first failure is returned with the session left untouched.
// On success the new state is broadcast to both players.
func (s *Session) ApplyMove(playerID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winner != "" {
		return ErrGameFinished
	}
	if s.turn != playerID {
		return ErrNotYourTurn
	}
	if !IsValidIndex(index) {
		return ErrInvalidIndex
	}
	if s.board[index] != Empty {
		return ErrCellOccupied
	}

	p := s.players[playerID]
	s.board[index] = p.symbol
	if evicted, ok := p.moves.push(index); ok && s.board[evicted] == p.symbol {
		s.board[evicted] = Empty
	}

	if symbol, ok := s.board.CheckWinner(); ok {
		s.winner = s.playerWithSymbol(symbol)
		metrics.GamesWon.Inc()
		s.log.Info("Game won", zap.String("winner", s.winner))
	}

	if other := s.opponent(playerID); other != "" {
		s.turn = other
	}

	s.broadcast(comms.State(s.snapshot()))
	return nil
}

// MarkDisconnected drops playerID's connection. If the game has no winner
// and the opponent is still connected, the opponent wins by forfeit.
// Returns true if a forfeit was awarded.
func (s *Session) MarkDisconnected(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markDisconnected(playerID)
}

// Detach is MarkDisconnected for a closing transport: it does nothing if
// the player has since reconnected on a different connection.
func (s *Session) Detach(playerID string, conn comms.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok || p.conn == nil || p.conn.ID() != conn.ID() {
		return false
	}
	return s.markDisconnected(playerID)
}

func (s *Session) markDisconnected(playerID string) bool {
	p, ok := s.players[playerID]
	if !ok {
		return false
	}
	p.conn = nil

	forfeit := false
	if s.winner == "" {
		if other := s.opponent(playerID); other != "" && s.players[other].conn != nil {
			s.winner = other
			forfeit = true
			metrics.Forfeits.Inc()
			s.log.Info("Game won by forfeit",
				zap.String("winner", other),
				zap.String("player_id", playerID))
		}
	}

	s.broadcast(comms.State(s.snapshot()))
	return forfeit
}

// Has reports whether playerID has ever joined this session.
func (s *Session) Has(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[playerID]
	return ok
}

// Connected reports whether playerID currently has a live connection.
func (s *Session) Connected(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	return ok && p.conn != nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.winner != "":
		return Finished
	case len(s.players) == NumPlayers:
		return InProgress
	default:
		return AwaitingPlayers
	}
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:      s.ID,
		Board:   s.board,
		Players: make(map[string]PlayerSnapshot, len(s.players)),
	}
	for id, p := range s.players {
		snap.Players[id] = PlayerSnapshot{Symbol: p.symbol, Moves: p.moves.indices()}
	}
	if s.turn != "" {
		turn := s.turn
		snap.Turn = &turn
	}
	if s.winner != "" {
		winner := s.winner
		snap.Winner = &winner
	}
	return snap
}

func (s *Session) opponent(playerID string) string {
	for _, id := range s.order {
		if id != playerID {
			return id
		}
	}
	return ""
}

func (s *Session) playerWithSymbol(symbol int) string {
	for _, id := range s.order {
		if s.players[id].symbol == symbol {
			return id
		}
	}
	return ""
}

// broadcast sends message to every connected player. A failed send is
// logged and does not stop delivery to the other player.
func (s *Session) broadcast(message comms.Message) {
	for _, id := range s.order {
		if conn := s.players[id].conn; conn != nil {
			s.send(conn, message)
		}
	}
}

func (s *Session) send(conn comms.Conn, message comms.Message) {
	if err := conn.Send(message); err != nil {
		metrics.BroadcastFailures.Inc()
		s.log.Debug("Unable to deliver message",
			zap.String("type", message.Type),
			zap.Error(err))
	}
}

package lobby

import (
	"context"
	"errors"
	"sync"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/comms"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/metrics"
	"go.uber.org/zap"
)

// RandomGameID is the session ID clients connect to for matchmaking.
const RandomGameID = "random"

var (
	// ErrCancelled is returned to a waiting player removed from the queue.
	ErrCancelled = errors.New("removed from matchmaking")

	// ErrSuperseded is returned to a waiting connection replaced by a newer
	// connection from the same player.
	ErrSuperseded = errors.New("superseded by a newer connection")
)

// Matchmaker pairs players into new sessions. It holds at most one waiting
// player; the next player to arrive is paired with them.
type Matchmaker struct {
	log      *zap.Logger
	sessions *SessionStore

	mu   sync.Mutex
	slot *waiter
}

type waiter struct {
	playerID string
	conn     comms.Conn
	done     chan struct{}
	gameID   string
	err      error
}

// resolve wakes the waiting player. w must already be out of the slot, so
// it is resolved exactly once.
func (w *waiter) resolve(gameID string, err error) {
	w.gameID = gameID
	w.err = err
	close(w.done)
}

// Ticket is the result of an offer. A ticket is either paired, with
// GameID set, or pending until Wait returns.
type Ticket struct {
	PlayerID string
	GameID   string
	waiter   *waiter
}

func (t *Ticket) Pending() bool {
	return t.waiter != nil
}

// Wait blocks until a pending ticket is paired or removed from the queue.
func (t *Ticket) Wait(ctx context.Context) (string, error) {
	if t.waiter == nil {
		return t.GameID, nil
	}
	select {
	case <-t.waiter.done:
		return t.waiter.gameID, t.waiter.err
	case <-ctx.Done():
	}

	// Prefer a pairing that raced with the cancellation
	select {
	case <-t.waiter.done:
		return t.waiter.gameID, t.waiter.err
	default:
		return "", ctx.Err()
	}
}

func NewMatchmaker(sessions *SessionStore, log *zap.Logger) *Matchmaker {
	return &Matchmaker{log: log, sessions: sessions}
}

// Offer puts playerID in the queue. If another player is already waiting,
// the two are paired into a new session straight away, the waiting player
// taking the first seat and the first turn, and both connections are sent
// the new session's ID.
func (m *Matchmaker) Offer(playerID string, conn comms.Conn) *Ticket {
	m.mu.Lock()
	if m.slot == nil || m.slot.playerID == playerID {
		if m.slot != nil {
			m.slot.resolve("", ErrSuperseded)
			m.log.Info("Replaced waiting connection", zap.String("player_id", playerID))
		} else {
			m.log.Info("Player waiting for a match", zap.String("player_id", playerID))
		}
		w := &waiter{playerID: playerID, conn: conn, done: make(chan struct{})}
		m.slot = w
		metrics.PlayersWaiting.Set(1)
		m.mu.Unlock()
		return &Ticket{PlayerID: playerID, waiter: w}
	}
	first := m.slot
	m.slot = nil
	metrics.PlayersWaiting.Set(0)
	m.mu.Unlock()

	session := m.sessions.Create()
	if err := session.Pair(first.playerID, playerID); err != nil {
		// Create always returns an empty session
		panic(err)
	}
	metrics.MatchesMade.Inc()
	m.log.Info("Players matched",
		zap.String("game_id", session.ID),
		zap.String("first", first.playerID),
		zap.String("second", playerID))

	// The slot is already clear, so the notifications can't be seen by a
	// concurrent offer or cancel.
	for _, conn := range []comms.Conn{first.conn, conn} {
		if err := conn.Send(comms.MatchFound(session.ID)); err != nil {
			metrics.BroadcastFailures.Inc()
			m.log.Debug("Unable to send match", zap.Error(err))
		}
	}
	first.resolve(session.ID, nil)
	return &Ticket{PlayerID: playerID, GameID: session.ID}
}

// Cancel removes playerID from the queue if they are waiting.
func (m *Matchmaker) Cancel(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slot == nil || m.slot.playerID != playerID {
		return false
	}
	m.clear(ErrCancelled)
	return true
}

// Withdraw removes t from the queue. Unlike Cancel it leaves a newer
// connection from the same player waiting.
func (m *Matchmaker) Withdraw(t *Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.waiter == nil || m.slot != t.waiter {
		return false
	}
	m.clear(ErrCancelled)
	return true
}

// Waiting returns the ID of the player in the queue, if any.
func (m *Matchmaker) Waiting() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		return "", false
	}
	return m.slot.playerID, true
}

func (m *Matchmaker) clear(err error) {
	w := m.slot
	m.slot = nil
	w.resolve("", err)
	metrics.PlayersWaiting.Set(0)
	m.log.Info("Player left matchmaking", zap.String("player_id", w.playerID))
}

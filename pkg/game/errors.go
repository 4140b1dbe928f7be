package game

import "errors"

// ErrInvalidMove is the category of every rejected move. Rejections are
// reported to the player who made the move and leave the session unchanged.
var ErrInvalidMove = errors.New("invalid move")

var (
	ErrGameFinished = invalidMove("Game finished")
	ErrNotYourTurn  = invalidMove("Not your turn")
	ErrInvalidIndex = invalidMove("Invalid index")
	ErrCellOccupied = invalidMove("Cell occupied")
)

// ErrSessionFull is returned when a third player tries to join.
var ErrSessionFull = errors.New("Game full")

// ErrAlreadySeated is returned when pairing players into a session that
// already has players.
var ErrAlreadySeated = errors.New("session already has players")

type moveError struct {
	reason string
}

func invalidMove(reason string) error {
	return &moveError{reason: reason}
}

func (e *moveError) Error() string {
	return e.reason
}

func (e *moveError) Is(target error) bool {
	return target == ErrInvalidMove
}

// RejectReason gives a short label for a rejected move, for metrics.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrGameFinished):
		return "finished"
	case errors.Is(err, ErrNotYourTurn):
		return "turn"
	case errors.Is(err, ErrInvalidIndex):
		return "index"
	case errors.Is(err, ErrCellOccupied):
		return "occupied"
	default:
		return "other"
	}
}

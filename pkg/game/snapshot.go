package game

// Snapshot is an immutable copy of a session, shaped for the wire.
type Snapshot struct {
	ID      string                    `json:"id"`
	Board   Board                     `json:"board"`
	Players map[string]PlayerSnapshot `json:"players"`
	Turn    *string                   `json:"turn"`
	Winner  *string                   `json:"winner"`
}

type PlayerSnapshot struct {
	Symbol int   `json:"symbol"`
	Moves  []int `json:"moves"`
}

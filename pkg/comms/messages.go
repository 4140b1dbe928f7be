package comms

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Message types exchanged with a client
const (
	TypePing       = "ping"
	TypeMove       = "move"
	TypeJoined     = "joined"
	TypeState      = "state"
	TypeMatchFound = "match_found"
	TypeInfo       = "info"
	TypeError      = "error"
)

var (
	// ErrMalformed is returned when an inbound frame can't be decoded.
	ErrMalformed = errors.New("Malformed message")

	// ErrUnknownType is returned for an inbound frame with an unrecognised type.
	ErrUnknownType = errors.New("Unknown message type")
)

// Message is the JSON envelope sent to a client. Only the fields relevant to
// Type are populated.
type Message struct {
	Type   string      `json:"type"`
	Game   interface{} `json:"game,omitempty"`
	GameID string      `json:"game_id,omitempty"`
	Text   string      `json:"message,omitempty"`
}

func Joined(game interface{}) Message {
	return Message{Type: TypeJoined, Game: game}
}

func State(game interface{}) Message {
	return Message{Type: TypeState, Game: game}
}

func MatchFound(gameID string) Message {
	return Message{Type: TypeMatchFound, GameID: gameID}
}

func Info(text string) Message {
	return Message{Type: TypeInfo, Text: text}
}

// Error returned to the client
func Error(err error) Message {
	return Message{Type: TypeError, Text: err.Error()}
}

// Request is a decoded inbound frame.
type Request struct {
	Type     string
	Contents map[string]interface{}
}

// MoveRequest is the payload of a move frame.
type MoveRequest struct {
	Index *int `mapstructure:"index"`
}

// DecodeRequest parses a raw frame into a Request. Numbers are kept as
// json.Number so that integer checks happen when the contents are decoded.
func DecodeRequest(data []byte) (Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var contents map[string]interface{}
	if err := dec.Decode(&contents); err != nil || contents == nil {
		return Request{}, ErrMalformed
	}

	typ, ok := contents["type"].(string)
	if !ok {
		return Request{}, ErrMalformed
	}
	return Request{Type: typ, Contents: contents}, nil
}

// DecodeMove extracts the board index from a move request.
func DecodeMove(req Request) (int, error) {
	var move MoveRequest
	if err := mapstructure.Decode(req.Contents, &move); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if move.Index == nil {
		return 0, fmt.Errorf("%w: missing index", ErrMalformed)
	}
	return *move.Index, nil
}

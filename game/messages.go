package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrMalformed      = errors.New("malformed message")
	ErrUnknownMessage = errors.New("unknown message type")
)

// MessageType identifies the concern of a data channel message.
type MessageType string

const (
	MsgMove        MessageType = "move"
	MsgShoot       MessageType = "shoot"
	MsgHealth      MessageType = "health"
	MsgGameOver    MessageType = "gameOver"
	MsgScoreUpdate MessageType = "scoreUpdate"
	MsgRestart     MessageType = "restart"
	MsgRematch     MessageType = "rematch"
	MsgExit        MessageType = "exit"
)

// Score is the tally keyed by seat.
type Score [2]int

// PlayerState is the announced state of one player.
type PlayerState struct {
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
	DX float64 `json:"dx" msgpack:"dx"`
	DY float64 `json:"dy" msgpack:"dy"`
	FX float64 `json:"fx,omitempty" msgpack:"fx,omitempty"`
	FY float64 `json:"fy,omitempty" msgpack:"fy,omitempty"`
}

// BulletState is a bullet at the moment it was fired.
type BulletState struct {
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
	DX float64 `json:"dx" msgpack:"dx"`
	DY float64 `json:"dy" msgpack:"dy"`
}

// Message is the flat envelope exchanged over the data channel. Only the
// fields relevant to Type are set. There are no sequence numbers.
type Message struct {
	Type     MessageType  `json:"type" msgpack:"type"`
	PlayerID int          `json:"playerId" msgpack:"playerId"`
	Position *PlayerState `json:"position,omitempty" msgpack:"position,omitempty"`
	Bullet   *BulletState `json:"bullet,omitempty" msgpack:"bullet,omitempty"`
	Health   *int         `json:"health,omitempty" msgpack:"health,omitempty"`
	Winner   *int         `json:"winner,omitempty" msgpack:"winner,omitempty"`
	IsFinal  bool         `json:"isFinal,omitempty" msgpack:"isFinal,omitempty"`
	Scores   *Score       `json:"scores,omitempty" msgpack:"scores,omitempty"`
}

// Codec turns messages into data channel payloads and back. Both peers
// must use the same codec.
type Codec interface {
	Name() string
	Binary() bool
	Encode(msg *Message) ([]byte, error)
	Decode(data []byte) (*Message, error)
}

// JSONCodec is the default text codec, compatible with the browser client.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Decode(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &msg, nil
}

// MsgpackCodec is a compact binary codec using the same field names.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(msg *Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (MsgpackCodec) Decode(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &msg, nil
}

// CodecByName resolves the --codec flag.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q (want json or msgpack)", name)
}

func intPtr(v int) *int {
	return &v
}

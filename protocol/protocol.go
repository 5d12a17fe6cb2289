package protocol

import "fmt"

type MessageType string

const (
	TypeStartGame      MessageType = "startGame"
	TypeStopGame       MessageType = "stopGame"
	TypeIdentify       MessageType = "identify"
	TypeUpdateGame     MessageType = "updateGame"
	TypeUpdateKeyboard MessageType = "updateKeyboard"
	TypeGameSnapshot   MessageType = "gameSnapshot"
)

const (
	PhysicsHz = 60
	ForceHz   = 30
	SyncHz    = 20
)

// Message is the tagged union exchanged between participants. Only the field
// belonging to Type is set.
type Message struct {
	Type     MessageType `json:"type" msgpack:"type"`
	Name     string      `json:"name,omitempty" msgpack:"name,omitempty"`
	Game     *GameUpdate `json:"game,omitempty" msgpack:"game,omitempty"`
	Keyboard *Keyboard   `json:"keyboard,omitempty" msgpack:"keyboard,omitempty"`
	Snapshot *Snapshot   `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
}

func StartGame() Message { return Message{Type: TypeStartGame} }

func StopGame() Message { return Message{Type: TypeStopGame} }

func Identify(name string) Message { return Message{Type: TypeIdentify, Name: name} }

func UpdateGame(u GameUpdate) Message { return Message{Type: TypeUpdateGame, Game: &u} }

func UpdateKeyboard(k Keyboard) Message { return Message{Type: TypeUpdateKeyboard, Keyboard: &k} }

func GameSnapshot(s Snapshot) Message { return Message{Type: TypeGameSnapshot, Snapshot: &s} }

// Validate checks that the type is known and that its payload is present.
func (m Message) Validate() error {
	switch m.Type {
	case TypeStartGame, TypeStopGame, TypeIdentify:
		return nil
	case TypeUpdateGame:
		if m.Game == nil {
			return fmt.Errorf("%w: %s without game", ErrMissingPayload, m.Type)
		}
	case TypeUpdateKeyboard:
		if m.Keyboard == nil {
			return fmt.Errorf("%w: %s without keyboard", ErrMissingPayload, m.Type)
		}
	case TypeGameSnapshot:
		if m.Snapshot == nil {
			return fmt.Errorf("%w: %s without snapshot", ErrMissingPayload, m.Type)
		}
	case "":
		return ErrUnknownType
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}

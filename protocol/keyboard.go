package protocol

// Keyboard is a player's Input State: five independent intent flags.
type Keyboard struct {
	Right bool `json:"rightClicked" msgpack:"rightClicked"`
	Left  bool `json:"leftClicked" msgpack:"leftClicked"`
	Up    bool `json:"upClicked" msgpack:"upClicked"`
	Down  bool `json:"downClicked" msgpack:"downClicked"`
	Kick  bool `json:"spaceClicked" msgpack:"spaceClicked"`
}

// IsZero reports whether no flag is set.
func (k Keyboard) IsZero() bool {
	return k == Keyboard{}
}

package terminal

import (
	"time"

	"peerball/protocol"
)

// Key is one of the five intent flags of an Input State.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyKick
)

func (k Key) opposite() (Key, bool) {
	switch k {
	case KeyUp:
		return KeyDown, true
	case KeyDown:
		return KeyUp, true
	case KeyLeft:
		return KeyRight, true
	case KeyRight:
		return KeyLeft, true
	}
	return 0, false
}

// HeldKeys turns key presses into a held Input State. Terminals report key
// repeats but never releases, so a key counts as held until window has passed
// since its last press. Pressing a direction releases the opposite one.
type HeldKeys struct {
	window time.Duration
	last   map[Key]time.Time
}

func NewHeldKeys(window time.Duration) *HeldKeys {
	return &HeldKeys{window: window, last: make(map[Key]time.Time)}
}

func (h *HeldKeys) Press(k Key, now time.Time) {
	h.last[k] = now
	if o, ok := k.opposite(); ok {
		delete(h.last, o)
	}
}

// Clear releases every key.
func (h *HeldKeys) Clear() {
	for k := range h.last {
		delete(h.last, k)
	}
}

func (h *HeldKeys) held(k Key, now time.Time) bool {
	t, ok := h.last[k]
	return ok && now.Sub(t) < h.window
}

// State returns the Input State at now.
func (h *HeldKeys) State(now time.Time) protocol.Keyboard {
	return protocol.Keyboard{
		Up:    h.held(KeyUp, now),
		Down:  h.held(KeyDown, now),
		Left:  h.held(KeyLeft, now),
		Right: h.held(KeyRight, now),
		Kick:  h.held(KeyKick, now),
	}
}

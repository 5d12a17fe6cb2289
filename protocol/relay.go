package protocol

// FrameKind tags a relay frame.
type FrameKind string

const (
	// FrameConnect asks the relay to link the sender with To.
	FrameConnect FrameKind = "connect"
	// FrameOpen tells the target that From linked to it.
	FrameOpen FrameKind = "open"
	// FrameDialed tells the caller that its link to From is open.
	FrameDialed FrameKind = "dialed"
	// FrameData carries an encoded Message between linked peers.
	FrameData FrameKind = "data"
	// FrameDisconnect asks the relay to drop the link with To.
	FrameDisconnect FrameKind = "disconnect"
	// FrameClose tells a peer that its link with From is gone.
	FrameClose FrameKind = "close"
	FrameError FrameKind = "error"
)

// Frame is the relay envelope. Payload holds a codec-encoded Message.
type Frame struct {
	Kind    FrameKind `json:"t"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Payload []byte    `json:"p,omitempty"`
	Error   string    `json:"err,omitempty"`
}

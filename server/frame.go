package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"peerball/protocol"
)

var ErrBadFrame = errors.New("relay: bad frame")

// Input is a frame read from a peer, handled on the room loop. From is set
// by the relay, never by the client.
type Input struct {
	From  PeerID
	Frame protocol.Frame
}

type joinRequest struct {
	id   PeerID
	conn *ClientConn
}

type leaveRequest struct {
	id   PeerID
	conn *ClientConn
}

// delivery is a data frame held back by the lag simulation.
type delivery struct {
	due  time.Time
	to   PeerID
	from PeerID
	b    []byte
}

// decodeFrame parses a client frame. Clients may only send connect, data and
// disconnect.
func decodeFrame(payload []byte) (protocol.Frame, error) {
	var f protocol.Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return f, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	switch f.Kind {
	case protocol.FrameConnect, protocol.FrameData, protocol.FrameDisconnect:
	default:
		return f, fmt.Errorf("%w: kind %q", ErrBadFrame, f.Kind)
	}
	if f.To == "" {
		return f, fmt.Errorf("%w: %s without target", ErrBadFrame, f.Kind)
	}
	return f, nil
}

func encodeFrame(f protocol.Frame) []byte {
	b, _ := json.Marshal(f)
	return b
}

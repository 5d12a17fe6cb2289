package session

import "peerball/protocol"

// Transport delivers messages between participants. Inbound events are fed
// back through Controller.HandleConnect, HandleDialed, HandleDisconnect and
// HandleMessage.
type Transport interface {
	// ID is the local participant's opaque address.
	ID() string
	// Broadcast sends msg to every currently connected peer.
	Broadcast(msg protocol.Message) error
	// ConnectTo starts opening a link; HandleDialed fires once it is open.
	ConnectTo(peerID string) error
	DisconnectFrom(peerID string) error
	IsConnected(peerID string) bool
}

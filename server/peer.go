package server

import "sort"

// PeerID is a participant's opaque address inside a room.
type PeerID string

// Peer is one relay connection and the links it currently holds.
type Peer struct {
	ID    PeerID
	Links map[PeerID]bool

	Conn *ClientConn // write side of the websocket
}

func newPeer(id PeerID, conn *ClientConn) *Peer {
	return &Peer{ID: id, Links: make(map[PeerID]bool), Conn: conn}
}

// PeerState is the admin view of a peer.
type PeerState struct {
	ID    string   `json:"id"`
	Links []string `json:"links"`
}

func (p *Peer) State() PeerState {
	links := make([]string, 0, len(p.Links))
	for id := range p.Links {
		links = append(links, string(id))
	}
	sort.Strings(links)
	return PeerState{ID: string(p.ID), Links: links}
}

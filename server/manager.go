package server

import (
	"sort"
	"sync"
)

// DefaultRoom is used when a request names no room.
const DefaultRoom = "room-1"

// RoomManager 管理多个中继房间的生命周期
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	defaults SimConfig
}

// NewRoomManager creates rooms with the given lag simulation.
func NewRoomManager(defaults SimConfig) *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room), defaults: defaults}
}

// GetOrCreateRoom 获取或创建房间，并确保房间循环已启动
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		r = NewRoom(id, m.defaults)
		m.rooms[id] = r
		r.StartTicker()
	}
	return r
}

func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Rooms returns every room sorted by id.
func (m *RoomManager) Rooms() []*Room {
	m.mu.RLock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops every room.
func (m *RoomManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Stop()
		delete(m.rooms, id)
	}
}

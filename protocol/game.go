package protocol

import "peerball/arena"

// DefaultScoreLimit ends the match when either side reaches it.
const DefaultScoreLimit = 5

// Player is a roster entry.
type Player struct {
	ID       string     `json:"id" msgpack:"id"`
	Name     string     `json:"name" msgpack:"name"`
	Team     arena.Team `json:"team" msgpack:"team"`
	Keyboard Keyboard   `json:"keyboard" msgpack:"keyboard"`
}

// NewPlayer creates a spectator with a cleared Input State. An empty name
// becomes "Player <id>".
func NewPlayer(id, name string) Player {
	if name == "" {
		name = "Player " + id
	}
	return Player{ID: id, Name: name, Team: arena.TeamSpectator}
}

type Score struct {
	Red  int `json:"red" msgpack:"red"`
	Blue int `json:"blue" msgpack:"blue"`
}

// Add credits one goal to team. Spectators never score.
func (s *Score) Add(team arena.Team) {
	switch team {
	case arena.TeamRed:
		s.Red++
	case arena.TeamBlue:
		s.Blue++
	}
}

// Reached reports whether either tally is at or above limit.
func (s Score) Reached(limit int) bool {
	return s.Red >= limit || s.Blue >= limit
}

// Game is the roster and score shared between participants.
type Game struct {
	Players    []Player `json:"players" msgpack:"players"`
	ScoreLimit int      `json:"scoreLimit" msgpack:"scoreLimit"`
	Score      Score    `json:"score" msgpack:"score"`
}

// GameUpdate is a partial Game. Nil fields are left untouched on merge.
type GameUpdate struct {
	Players    []Player `json:"players,omitempty" msgpack:"players,omitempty"`
	ScoreLimit *int     `json:"scoreLimit,omitempty" msgpack:"scoreLimit,omitempty"`
	Score      *Score   `json:"score,omitempty" msgpack:"score,omitempty"`
}

// Full returns an update carrying every field of g. The player slice is
// copied so later roster mutations do not leak into an encoded message.
func (g *Game) Full() GameUpdate {
	players := make([]Player, len(g.Players))
	copy(players, g.Players)
	limit := g.ScoreLimit
	score := g.Score
	return GameUpdate{Players: players, ScoreLimit: &limit, Score: &score}
}

// Merge applies the non-nil fields of u onto g.
func (g *Game) Merge(u GameUpdate) {
	if u.Players != nil {
		g.Players = make([]Player, len(u.Players))
		copy(g.Players, u.Players)
	}
	if u.ScoreLimit != nil {
		g.ScoreLimit = *u.ScoreLimit
	}
	if u.Score != nil {
		g.Score = *u.Score
	}
}

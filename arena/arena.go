package arena

// Team is the side a roster entry plays for.
type Team string

const (
	TeamRed       Team = "red"
	TeamBlue      Team = "blue"
	TeamSpectator Team = "spectator"
)

// Playing reports whether members of the team get a body in the simulation.
func (t Team) Playing() bool {
	return t == TeamRed || t == TeamBlue
}

// Opponent returns the other playing team. Spectators have no opponent.
func (t Team) Opponent() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamSpectator
	}
}

// Collision categories. A pair of bodies interacts only when each mask
// includes the other's category.
const (
	CategoryDefault  uint32 = 1
	CategoryGoalLine uint32 = 2
	CategoryBall     uint32 = 4
	CategoryPlayer   uint32 = 8
	CategoryOther    uint32 = 16

	MaskAll uint32 = 0xFFFFFFFF
)

// GoalMouthWidth is how far behind a goal line the scoring region reaches.
const GoalMouthWidth = 30.0

type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style is the drawing information shared by every obstacle shape.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// Shape is the geometry of an obstacle: Circle or Rect.
type Shape interface {
	// Bounds returns the axis-aligned bounding box as min and max corners.
	Bounds() (minX, minY, maxX, maxY float64)
	isShape()
}

// Circle is centred on X, Y.
type Circle struct {
	X, Y   float64
	Radius float64
}

func (c Circle) Bounds() (float64, float64, float64, float64) {
	return c.X - c.Radius, c.Y - c.Radius, c.X + c.Radius, c.Y + c.Radius
}

func (Circle) isShape() {}

// Rect is anchored at its top-left corner.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

func (r Rect) Bounds() (float64, float64, float64, float64) {
	return r.X, r.Y, r.X + r.Width, r.Y + r.Height
}

func (Rect) isShape() {}

// Obstacle is immovable geometry. A zero CollisionMask affects everyone.
type Obstacle struct {
	Shape         Shape
	Style         Style
	CollisionMask uint32
}

// Mask returns the effective collision mask.
func (o Obstacle) Mask() uint32 {
	if o.CollisionMask == 0 {
		return MaskAll
	}
	return o.CollisionMask
}

// GoalLine is a vertical segment at X between Y1 and Y2. A ball crossing it
// scores for Scorer.
type GoalLine struct {
	X      float64
	Y1, Y2 float64
	Color  string
	Scorer Team
}

// Mouth returns the sensing rectangle behind the line. Lines in the left half
// of the arena open towards -x, lines in the right half towards +x.
func (g GoalLine) Mouth(arenaWidth float64) (minX, maxX float64) {
	if g.X < arenaWidth/2 {
		return g.X - GoalMouthWidth, g.X
	}
	return g.X, g.X + GoalMouthWidth
}

// InMouth reports whether p lies inside the goal mouth. The far edge of the
// mouth is open so that a ball resting exactly on it has not scored yet.
func (g GoalLine) InMouth(p Pos, arenaWidth float64) bool {
	if p.Y < g.Y1 || p.Y > g.Y2 {
		return false
	}
	minX, maxX := g.Mouth(arenaWidth)
	if g.X < arenaWidth/2 {
		return p.X > minX && p.X <= maxX
	}
	return p.X >= minX && p.X < maxX
}

// Arena is the immutable per-match map.
type Arena struct {
	Name         string
	Width        float64
	Height       float64
	Obstacles    []Obstacle
	Goals        [2]GoalLine
	InitialPos   map[Team][]Pos
	BallStart    Pos
	BallColor    string
	PlayerColors map[Team]string
}

// Slots returns the initial-position table for a team.
func (a *Arena) Slots(t Team) []Pos {
	return a.InitialPos[t]
}

// Slot returns the position for slot i of a team, falling back to the first
// slot when the roster outgrows the table.
func (a *Arena) Slot(t Team, i int) Pos {
	slots := a.InitialPos[t]
	if len(slots) == 0 {
		return a.BallStart
	}
	if i < 0 || i >= len(slots) {
		return slots[0]
	}
	return slots[i]
}

// Color returns the body colour for a team.
func (a *Arena) Color(t Team) string {
	return a.PlayerColors[t]
}

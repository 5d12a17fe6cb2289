package arena

const (
	classicWidth  = 1000.0
	classicHeight = 550.0

	goalOffset     = 80.0
	doorWidth      = 39.0
	wallThickness  = 2000.0
	wallMultiplier = 20.0

	// fieldInset keeps the painted field lines two player radii from the edge.
	fieldInset = 40.0

	markingColor = "#C3E7B9"
	doorColor    = "#FFCCCC"
	transparent  = "transparent"
)

// Classic returns the default 1000x550 map.
func Classic() *Arena {
	w, h := classicWidth, classicHeight
	innerW := w - fieldInset*2
	innerH := h - fieldInset*2

	door := Style{Fill: transparent, Stroke: doorColor, StrokeWidth: 1}
	post := Style{Fill: doorColor, Stroke: transparent}
	marking := Style{Fill: markingColor, Stroke: markingColor}
	wall := Style{Fill: transparent, Stroke: transparent}

	obstacles := []Obstacle{
		// left door: net, top and bottom sides, posts
		{Shape: Rect{X: goalOffset - doorWidth, Y: h / 3, Width: 1, Height: h / 3}, Style: door},
		{Shape: Rect{X: goalOffset - doorWidth, Y: h / 3, Width: doorWidth, Height: 1}, Style: door},
		{Shape: Rect{X: goalOffset - doorWidth, Y: h * 2 / 3, Width: 30, Height: 1}, Style: door},
		{Shape: Circle{X: goalOffset, Y: h / 3, Radius: 10}, Style: post},
		{Shape: Circle{X: goalOffset, Y: h * 2 / 3, Radius: 10}, Style: post},

		// right door
		{Shape: Rect{X: w - goalOffset + doorWidth, Y: h / 3, Width: 1, Height: h / 3}, Style: door},
		{Shape: Rect{X: w - goalOffset, Y: h / 3, Width: doorWidth, Height: 1}, Style: door},
		{Shape: Rect{X: w - goalOffset, Y: h * 2 / 3, Width: doorWidth, Height: 1}, Style: door},
		{Shape: Circle{X: w - goalOffset, Y: h / 3, Radius: 10}, Style: post},
		{Shape: Circle{X: w - goalOffset, Y: h * 2 / 3, Radius: 10}, Style: post},

		// centre markings never collide
		{Shape: Circle{X: w / 2, Y: h / 2, Radius: 80}, Style: Style{Fill: transparent, Stroke: markingColor}, CollisionMask: CategoryOther},
		{Shape: Circle{X: w / 2, Y: h / 2, Radius: 5}, Style: marking, CollisionMask: CategoryOther},
		{Shape: Rect{X: w / 2, Y: fieldInset, Width: 1, Height: innerH}, Style: marking, CollisionMask: CategoryOther},

		// outer walls
		{Shape: Rect{X: -w * (wallMultiplier / 2), Y: -wallThickness + 2, Width: w * wallMultiplier, Height: wallThickness}, Style: wall},
		{Shape: Rect{X: -w * (wallMultiplier / 2), Y: h - 2, Width: w * wallMultiplier, Height: wallThickness}, Style: wall},
		{Shape: Rect{X: -wallThickness + 2, Y: -h * (wallMultiplier / 2), Width: wallThickness, Height: h * wallMultiplier}, Style: wall},
		{Shape: Rect{X: w - 2, Y: -h * (wallMultiplier / 2), Width: wallThickness, Height: h * wallMultiplier}, Style: wall},

		// field lines only stop the ball
		{Shape: Rect{X: fieldInset, Y: fieldInset, Width: innerW, Height: 2}, Style: marking, CollisionMask: CategoryBall},
		{Shape: Rect{X: fieldInset, Y: innerH + fieldInset, Width: innerW, Height: 2}, Style: marking, CollisionMask: CategoryBall},
		{Shape: Rect{X: fieldInset, Y: fieldInset, Width: 2, Height: innerH}, Style: marking, CollisionMask: CategoryBall},
		{Shape: Rect{X: innerW + fieldInset, Y: fieldInset, Width: 2, Height: innerH}, Style: marking, CollisionMask: CategoryBall},
	}

	return &Arena{
		Name:      "classic",
		Width:     w,
		Height:    h,
		Obstacles: obstacles,
		Goals: [2]GoalLine{
			{X: goalOffset, Y1: h / 3, Y2: h * 2 / 3, Color: markingColor, Scorer: TeamBlue},
			{X: w - goalOffset, Y1: h / 3, Y2: h * 2 / 3, Color: markingColor, Scorer: TeamRed},
		},
		InitialPos: map[Team][]Pos{
			TeamRed:  {{X: 100, Y: 200}, {X: 100, Y: 300}},
			TeamBlue: {{X: 800, Y: 200}, {X: 800, Y: 300}},
		},
		BallStart: Pos{X: w / 2, Y: h / 2},
		BallColor: "green",
		PlayerColors: map[Team]string{
			TeamRed:  "#ff3860",
			TeamBlue: "#3273dc",
		},
	}
}

package protocol

// Coordinates is the position and velocity of one body.
type Coordinates struct {
	X         float64 `json:"x" msgpack:"x"`
	Y         float64 `json:"y" msgpack:"y"`
	VelocityX float64 `json:"velocityX" msgpack:"velocityX"`
	VelocityY float64 `json:"velocityY" msgpack:"velocityY"`
}

// Snapshot captures all dynamic state at a frame of the producer's engine.
type Snapshot struct {
	AtFrame int64                  `json:"atFrame" msgpack:"atFrame"`
	Ball    Coordinates            `json:"ball" msgpack:"ball"`
	Players map[string]Coordinates `json:"players" msgpack:"players"`
}

package physics

import "time"

const (
	BallRadius   = 10.0
	PlayerRadius = 20.0

	// MinForceApplyInterval is the debounce between two input-driven velocity
	// changes of the same body.
	MinForceApplyInterval = 150 * time.Millisecond
	// MovementVelocityChange is added per active axis on each accepted input.
	MovementVelocityChange = 0.5
	PlayerMaxVelocity      = 3.0
	// PlayerPowerKickRadius is the extra reach beyond touching distance.
	PlayerPowerKickRadius = 10.0
	BallForceMultiplier   = 5.0

	BallRestitution   = 0.9
	PlayerRestitution = 0.0
	AirFriction       = 0.01
	Density           = 0.001

	// Boundary response: the offending component is reflected inward with at
	// least MinReboundSpeed.
	BoundaryDamping  = 0.5
	MinReboundSpeed  = 0.1
	PlayerEdgeMargin = 2.0
	BallEdgeMargin   = 1.0

	spaceCellSize = 25
)

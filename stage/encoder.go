package stage

import (
	"errors"
	"math"
)

// A Mover executes a single relative move on the physical stage.
// Velocity is mm/s, distance is mm and carries the direction sign.
type Mover interface {
	Move(axis int, velocity, distance float64) error
}

var (
	ErrUnsupportedDirection = errors.New("unsupported direction input")
	ErrInvalidParameter     = errors.New("velocity and distance must be finite, velocity > 0")
)

// Command is a fully resolved stage move.
type Command struct {
	Axis     int
	Velocity float64
	Distance float64
}

// Encoder translates direction-pad input into stage moves.
type Encoder struct {
	m Mover
}

func NewEncoder(m Mover) *Encoder {
	return &Encoder{m: m}
}

// Encode maps a one-hot 4-bit direction input to a move command.
// The mapping is fixed by the hardware wiring:
//
//	-X = 1000 -> +M1
//	+X = 0001 -> -M1
//	+Y = 0100 -> -M2
//	-Y = 0010 -> +M2
//
// Distance is given in micrometers and converted to the stage's
// millimeter unit before the sign is applied.
func Encode(direction string, distanceUM, velocityMMS float64) (Command, error) {
	if math.IsNaN(distanceUM) || math.IsInf(distanceUM, 0) ||
		math.IsNaN(velocityMMS) || math.IsInf(velocityMMS, 0) || velocityMMS <= 0 {
		return Command{}, ErrInvalidParameter
	}
	mm := distanceUM / 1000
	cmd := Command{Velocity: velocityMMS}
	switch direction {
	case "1000":
		cmd.Axis, cmd.Distance = 1, mm
	case "0001":
		cmd.Axis, cmd.Distance = 1, -mm
	case "0100":
		cmd.Axis, cmd.Distance = 2, -mm
	case "0010":
		cmd.Axis, cmd.Distance = 2, mm
	default:
		return Command{}, ErrUnsupportedDirection
	}
	return cmd, nil
}

// Move encodes the input and dispatches the command to the mover
// exactly once. A rejected input never reaches the mover.
func (e *Encoder) Move(direction string, distanceUM, velocityMMS float64) (Command, error) {
	cmd, err := Encode(direction, distanceUM, velocityMMS)
	if err != nil {
		return Command{}, err
	}
	return cmd, e.m.Move(cmd.Axis, cmd.Velocity, cmd.Distance)
}

package yoyo

import "github.com/pkg/errors"

// Direction tells the executor which way a migration is being run.
type Direction int

const (
	directionError = Direction(iota)
	DirectionForward
	DirectionBackward
)

func (d Direction) String() string {
	var s string
	switch d {
	case DirectionForward:
		s = "forward"
	case DirectionBackward:
		s = "backward"
	}
	return s
}

// reverse returns the opposite direction.
func (d Direction) reverse() Direction {
	if d == DirectionForward {
		return DirectionBackward
	}
	return DirectionForward
}

// DirectionFromString tries to build Direction from string,
// checking for valid ones and returning an error if check was unsuccessful
func DirectionFromString(s string) (Direction, error) {
	switch s {
	case "forward":
		return DirectionForward, nil
	case "backward":
		return DirectionBackward, nil
	default:
		return directionError, errors.Errorf("can't parse direction from string %s", s)
	}
}

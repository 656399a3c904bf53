package voxel

import "fmt"

// DoorHalf tells which block of a two-block door a state belongs to.
type DoorHalf uint8

const (
	Lower DoorHalf = iota
	Upper
)

func (h DoorHalf) String() string {
	if h == Upper {
		return "UPPER"
	}
	return "LOWER"
}

func ParseDoorHalf(s string) (DoorHalf, error) {
	switch s {
	case "", "LOWER", "lower":
		return Lower, nil
	case "UPPER", "upper":
		return Upper, nil
	}
	return Lower, fmt.Errorf("unknown door half %q", s)
}

// AirID is the catalog id of the empty block.
const AirID = "AIR"

// BlockState is a block id plus the properties doors care about.
// The zero value is air.
type BlockState struct {
	ID     string
	Facing Direction
	Half   DoorHalf
	Open   bool
}

func (s BlockState) IsAir() bool { return s.ID == "" || s.ID == AirID }

func (s BlockState) WithOpen(open bool) BlockState {
	s.Open = open
	return s
}

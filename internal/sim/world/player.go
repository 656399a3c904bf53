package world

import (
	"math"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/voxel"
)

type Player struct {
	ID   string
	Name string

	X, Y, Z    float64
	Yaw, Pitch float64

	Out    chan []byte
	Events []protocol.Event
}

// BlockPos is the block the player's feet are in.
func (p *Player) BlockPos() voxel.Vec3i {
	return voxel.Vec3i{
		X: int(math.Floor(p.X)),
		Y: int(math.Floor(p.Y)),
		Z: int(math.Floor(p.Z)),
	}
}

func (p *Player) MoveTo(pos voxel.Vec3i) {
	p.X, p.Y, p.Z = pos.Center()
}

func (p *Player) AddEvent(e protocol.Event) {
	p.Events = append(p.Events, e)
}

func (p *Player) State() protocol.PlayerState {
	return protocol.PlayerState{
		ID:    p.ID,
		Pos:   [3]float64{p.X, p.Y, p.Z},
		Yaw:   p.Yaw,
		Pitch: p.Pitch,
	}
}

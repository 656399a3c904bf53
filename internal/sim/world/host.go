package world

import (
	"math/rand"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
)

var _ warps.Host = (*World)(nil)

// Block returns the state at pos; unset positions are air.
func (w *World) Block(pos voxel.Vec3i) voxel.BlockState {
	return w.blocks[pos]
}

// SetBlock stores s at pos. Doors keep both halves' open flag in sync, the way
// a door block updates its other half.
func (w *World) SetBlock(pos voxel.Vec3i, s voxel.BlockState) {
	if s.IsAir() {
		delete(w.blocks, pos)
		return
	}
	w.blocks[pos] = s
	if !w.InTag(s, warps.TagDoors) {
		return
	}
	other := pos.Up(1)
	if s.Half == voxel.Upper {
		other = pos.Down(1)
	}
	if o, ok := w.blocks[other]; ok && o.ID == s.ID && o.Half != s.Half {
		w.blocks[other] = o.WithOpen(s.Open)
	}
}

func (w *World) InTag(s voxel.BlockState, tag string) bool {
	if s.IsAir() {
		return false
	}
	return w.catalogs.Blocks.HasTag(s.ID, tag)
}

func (w *World) Inventory(pos voxel.Vec3i) ([]string, bool) {
	c := w.containers[pos]
	if c == nil {
		return nil, false
	}
	return c.Slots, true
}

func (w *World) Intn(n int) int {
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(w.cfg.Seed ^ int64(w.tick.Load())))
	}
	return w.rng.Intn(n)
}

func (w *World) Teleport(playerID string, x, y, z, yaw, pitch float64) {
	p := w.players[playerID]
	if p == nil {
		return
	}
	p.X, p.Y, p.Z = x, y, z
	p.Yaw, p.Pitch = yaw, pitch
}

func (w *World) SpawnLightning(x, y, z float64, cosmetic bool) {
	w.effects = append(w.effects, protocol.Event{
		"t":        w.tick.Load(),
		"type":     protocol.EventEffect,
		"effect":   "LIGHTNING",
		"pos":      [3]float64{x, y, z},
		"cosmetic": cosmetic,
	})
}

func (w *World) PlaySound(pos voxel.Vec3i, sound string) {
	w.effects = append(w.effects, protocol.Event{
		"t":      w.tick.Load(),
		"type":   protocol.EventEffect,
		"effect": "SOUND",
		"sound":  sound,
		"pos":    pos.ToArray(),
	})
}

func (w *World) BoolRule(name string) bool {
	switch name {
	case warps.RuleCreateLightning:
		return w.cfg.Rules.CreateLightning()
	}
	return false
}

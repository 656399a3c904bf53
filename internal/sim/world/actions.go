package world

import (
	"fmt"

	"lapiswarps.ai/internal/protocol"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
)

// actionError is reported to the acting player as an ERROR event.
type actionError struct {
	code string
	msg  string
}

func (e *actionError) Error() string { return e.code + ": " + e.msg }

func errf(code, format string, args ...any) *actionError {
	return &actionError{code: code, msg: fmt.Sprintf(format, args...)}
}

func (w *World) applyAct(p *Player, act protocol.ActMsg, nowTick uint64) {
	for _, a := range act.Actions {
		var err *actionError
		switch a.Type {
		case protocol.ActSetBlock:
			err = w.actSetBlock(p, a, nowTick)
		case protocol.ActBreak:
			err = w.actBreak(p, a, nowTick)
		case protocol.ActSetContainer:
			err = w.actSetContainer(a)
		case protocol.ActMove:
			p.MoveTo(voxel.FromArray(a.Pos))
			p.Yaw, p.Pitch = a.Yaw, a.Pitch
		case protocol.ActUse:
			err = w.actUse(p, a, nowTick)
		default:
			err = errf(protocol.ErrBadRequest, "unknown action type %q", a.Type)
		}
		if err != nil {
			p.AddEvent(protocol.ErrorEvent(nowTick, err.code, err.msg))
		}
	}
}

func (w *World) actSetBlock(p *Player, a protocol.Action, nowTick uint64) *actionError {
	pos := voxel.FromArray(a.Pos)
	if a.Block == "" || a.Block == voxel.AirID {
		return errf(protocol.ErrBadRequest, "use BREAK to clear a block")
	}
	def, ok := w.catalogs.Blocks.Defs[a.Block]
	if !ok {
		return errf(protocol.ErrUnknownBlock, "unknown block %q", a.Block)
	}
	facing := voxel.North
	if a.Facing != "" {
		d, err := voxel.ParseDirection(a.Facing)
		if err != nil {
			return errf(protocol.ErrBadRequest, "%v", err)
		}
		facing = d
	}
	half, err := voxel.ParseDoorHalf(a.Half)
	if err != nil {
		return errf(protocol.ErrBadRequest, "%v", err)
	}
	state := voxel.BlockState{ID: a.Block, Facing: facing, Open: a.Open}

	if !w.InTag(state, warps.TagDoors) {
		w.removeBlock(pos)
		w.SetBlock(pos, state)
		if def.Container {
			w.containers[pos] = newContainer(def.ID, pos, def.Slots)
		}
		p.AddEvent(blockEvent(nowTick, pos, state))
		return nil
	}

	if !facing.Horizontal() {
		return errf(protocol.ErrBadRequest, "door facing must be horizontal")
	}
	lower := warps.LowerAnchorOf(pos, half)
	upper := lower.Up(1)
	for _, q := range [2]voxel.Vec3i{lower, upper} {
		if q != pos && !w.Block(q).IsAir() {
			return errf(protocol.ErrBlocked, "door needs an empty block at %s", q)
		}
	}
	w.removeBlock(pos)
	lowerState := state
	lowerState.Half = voxel.Lower
	upperState := state
	upperState.Half = voxel.Upper
	w.blocks[lower] = lowerState
	w.blocks[upper] = upperState
	p.AddEvent(blockEvent(nowTick, lower, lowerState))
	p.AddEvent(blockEvent(nowTick, upper, upperState))
	return nil
}

func (w *World) actBreak(p *Player, a protocol.Action, nowTick uint64) *actionError {
	pos := voxel.FromArray(a.Pos)
	if w.Block(pos).IsAir() {
		return errf(protocol.ErrInvalidTarget, "nothing to break at %s", pos)
	}
	for _, q := range w.removeBlock(pos) {
		p.AddEvent(blockEvent(nowTick, q, voxel.BlockState{}))
	}
	return nil
}

// removeBlock clears pos, the other half of a door at pos and any inventory.
// It returns the cleared positions.
func (w *World) removeBlock(pos voxel.Vec3i) []voxel.Vec3i {
	s, ok := w.blocks[pos]
	if !ok {
		return nil
	}
	cleared := []voxel.Vec3i{pos}
	delete(w.blocks, pos)
	delete(w.containers, pos)
	if w.InTag(s, warps.TagDoors) {
		other := pos.Up(1)
		if s.Half == voxel.Upper {
			other = pos.Down(1)
		}
		if o, ok := w.blocks[other]; ok && o.ID == s.ID && o.Half != s.Half {
			delete(w.blocks, other)
			cleared = append(cleared, other)
		}
	}
	return cleared
}

func (w *World) actSetContainer(a protocol.Action) *actionError {
	pos := voxel.FromArray(a.Pos)
	c := w.containers[pos]
	if c == nil {
		return errf(protocol.ErrInvalidTarget, "no container at %s", pos)
	}
	if len(a.Slots) > len(c.Slots) {
		return errf(protocol.ErrBadRequest, "%s has %d slots, got %d", c.Type, len(c.Slots), len(a.Slots))
	}
	for _, id := range a.Slots {
		if id != "" && !w.catalogs.Items.Known(id) {
			return errf(protocol.ErrUnknownItem, "unknown item %q", id)
		}
	}
	c.Set(a.Slots)
	return nil
}

// actUse toggles a door. When the door ends up open the warp logic runs.
func (w *World) actUse(p *Player, a protocol.Action, nowTick uint64) *actionError {
	pos := voxel.FromArray(a.Pos)
	s := w.Block(pos)
	if !w.InTag(s, warps.TagDoors) {
		return errf(protocol.ErrInvalidTarget, "%s is not a door", pos)
	}
	s = s.WithOpen(!s.Open)
	w.SetBlock(pos, s)
	p.AddEvent(blockEvent(nowTick, pos, s))
	if !s.Open {
		return nil
	}
	out := w.plugin.HandleDoorInteraction(w, w.portals, warps.Interaction{
		PlayerID:  p.ID,
		PlayerPos: p.BlockPos(),
		Yaw:       p.Yaw,
		Pitch:     p.Pitch,
		Pos:       pos,
	})
	w.recordWarp(p, out, nowTick)
	return nil
}

func blockEvent(nowTick uint64, pos voxel.Vec3i, s voxel.BlockState) protocol.Event {
	e := protocol.Event{
		"t":     nowTick,
		"type":  protocol.EventBlock,
		"pos":   pos.ToArray(),
		"block": voxel.AirID,
	}
	if !s.IsAir() {
		e["block"] = s.ID
		e["facing"] = s.Facing.String()
		e["half"] = s.Half.String()
		e["open"] = s.Open
	}
	return e
}

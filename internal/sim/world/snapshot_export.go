package world

import (
	"fmt"
	"sort"

	"lapiswarps.ai/internal/persistence/snapshot"
	"lapiswarps.ai/internal/sim/voxel"
	"lapiswarps.ai/internal/sim/warps"
)

// ExportSnapshot captures the world as of the end of nowTick.
// Must be called from the world loop goroutine (or while it is stopped).
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: 1, WorldID: w.cfg.ID, Tick: nowTick},
		Seed:     w.cfg.Seed,
		TickRate: w.cfg.TickRateHz,
		Spawn:    w.cfg.Spawn.ToArray(),
		Counters: snapshot.CountersV1{NextPlayer: w.nextPlayer},
	}

	positions := make([]voxel.Vec3i, 0, len(w.blocks))
	for pos := range w.blocks {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	snap.Blocks = make([]snapshot.BlockV1, 0, len(positions))
	for _, pos := range positions {
		s := w.blocks[pos]
		snap.Blocks = append(snap.Blocks, snapshot.BlockV1{
			Pos:    pos.ToArray(),
			ID:     s.ID,
			Facing: uint8(s.Facing),
			Half:   uint8(s.Half),
			Open:   s.Open,
		})
	}

	cpos := make([]voxel.Vec3i, 0, len(w.containers))
	for pos := range w.containers {
		cpos = append(cpos, pos)
	}
	sort.Slice(cpos, func(i, j int) bool { return cpos[i].Less(cpos[j]) })
	snap.Containers = make([]snapshot.ContainerV1, 0, len(cpos))
	for _, pos := range cpos {
		c := w.containers[pos]
		snap.Containers = append(snap.Containers, snapshot.ContainerV1{
			Type:  c.Type,
			Pos:   pos.ToArray(),
			Slots: append([]string(nil), c.Slots...),
		})
	}

	entries := w.portals.Entries()
	snap.Portals = make([]snapshot.PortalChannelV1, 0, len(entries))
	for _, e := range entries {
		pc := snapshot.PortalChannelV1{Channel: e.Channel, Anchors: make([][3]int, 0, len(e.Anchors))}
		for _, a := range e.Anchors {
			pc.Anchors = append(pc.Anchors, a.ToArray())
		}
		snap.Portals = append(snap.Portals, pc)
	}

	for _, p := range w.sortedPlayers() {
		snap.Players = append(snap.Players, snapshot.PlayerV1{
			ID:    p.ID,
			Name:  p.Name,
			Pos:   [3]float64{p.X, p.Y, p.Z},
			Yaw:   p.Yaw,
			Pitch: p.Pitch,
		})
	}
	return snap
}

// ImportSnapshot replaces the world's blocks, containers and portal registry.
// Connected players are kept; saved players not already present come back
// without a session (see DropOfflinePlayers).
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.WorldID != "" && snap.Header.WorldID != w.cfg.ID {
		return fmt.Errorf("snapshot world id %q does not match %q", snap.Header.WorldID, w.cfg.ID)
	}

	blocks := make(map[voxel.Vec3i]voxel.BlockState, len(snap.Blocks))
	for _, b := range snap.Blocks {
		if !w.catalogs.Blocks.Known(b.ID) {
			return fmt.Errorf("snapshot block %s at %v: unknown id", b.ID, b.Pos)
		}
		d := voxel.Direction(b.Facing)
		if !d.Valid() {
			return fmt.Errorf("snapshot block at %v: bad facing %d", b.Pos, b.Facing)
		}
		blocks[voxel.FromArray(b.Pos)] = voxel.BlockState{ID: b.ID, Facing: d, Half: voxel.DoorHalf(b.Half), Open: b.Open}
	}

	containers := make(map[voxel.Vec3i]*Container, len(snap.Containers))
	for _, c := range snap.Containers {
		pos := voxel.FromArray(c.Pos)
		def, ok := w.catalogs.Blocks.Defs[c.Type]
		if !ok || !def.Container {
			return fmt.Errorf("snapshot container %s at %v: not a container block", c.Type, c.Pos)
		}
		ct := newContainer(c.Type, pos, def.Slots)
		ct.Set(c.Slots)
		containers[pos] = ct
	}

	entries := make([]warps.Entry, 0, len(snap.Portals))
	for _, pc := range snap.Portals {
		e := warps.Entry{Channel: pc.Channel}
		for _, a := range pc.Anchors {
			e.Anchors = append(e.Anchors, voxel.FromArray(a))
		}
		entries = append(entries, e)
	}
	if err := w.portals.Restore(entries); err != nil {
		return fmt.Errorf("snapshot portals: %w", err)
	}

	w.blocks = blocks
	w.containers = containers
	for _, sp := range snap.Players {
		if _, ok := w.players[sp.ID]; ok || sp.ID == "" {
			continue
		}
		w.players[sp.ID] = &Player{
			ID: sp.ID, Name: sp.Name,
			X: sp.Pos[0], Y: sp.Pos[1], Z: sp.Pos[2],
			Yaw: sp.Yaw, Pitch: sp.Pitch,
		}
	}
	if snap.Counters.NextPlayer > w.nextPlayer {
		w.nextPlayer = snap.Counters.NextPlayer
	}
	w.tick.Store(snap.Header.Tick + 1)
	w.rng = nil
	return nil
}

// DropOfflinePlayers removes players without a session, such as those
// restored from a snapshot on server start. It returns how many were removed.
// Must be called from the world loop goroutine (or while it is stopped).
func (w *World) DropOfflinePlayers() int {
	n := 0
	for id, p := range w.players {
		if p.Out == nil {
			delete(w.players, id)
			n++
		}
	}
	return n
}

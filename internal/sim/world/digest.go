package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"

	"lapiswarps.ai/internal/sim/voxel"
)

// stateDigest hashes blocks, containers and the portal registry. Players are
// left out: they are sessions, not world state.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte
	writeU64(h, tmp, nowTick)

	positions := make([]voxel.Vec3i, 0, len(w.blocks))
	for pos := range w.blocks {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	for _, pos := range positions {
		s := w.blocks[pos]
		writePos(h, tmp, pos)
		h.Write([]byte(s.ID))
		h.Write([]byte{byte(s.Facing), byte(s.Half), boolByte(s.Open)})
	}

	positions = positions[:0]
	for pos := range w.containers {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	for _, pos := range positions {
		writePos(h, tmp, pos)
		for _, s := range w.containers[pos].Slots {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
	}

	for _, e := range w.portals.Entries() {
		writeU64(h, tmp, uint64(uint32(e.Channel)))
		for _, a := range e.Anchors {
			writePos(h, tmp, a)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeU64(h hash.Hash, tmp [8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func writePos(h hash.Hash, tmp [8]byte, p voxel.Vec3i) {
	writeU64(h, tmp, uint64(int64(p.X)))
	writeU64(h, tmp, uint64(int64(p.Y)))
	writeU64(h, tmp, uint64(int64(p.Z)))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

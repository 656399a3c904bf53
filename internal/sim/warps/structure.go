package warps

import (
	"strings"
	"unicode/utf16"

	"lapiswarps.ai/internal/sim/voxel"
)

// frameOffsets returns the eight blocks around a door's lower half that must be
// portal blocks. facing is the door's "forward" direction (its facing reversed).
func FrameOffsets(anchor voxel.Vec3i, facing voxel.Direction) [8]voxel.Vec3i {
	left := facing.RotateLeft()
	right := facing.RotateRight()
	back := facing.Opposite()
	return [8]voxel.Vec3i{
		anchor.Down(1),
		anchor.Move(left, 1),
		anchor.Move(left, 1).Up(1),
		anchor.Move(right, 1),
		anchor.Move(right, 1).Up(1),
		anchor.Up(2),
		anchor.Move(back, 1),
		anchor.Move(back, 1).Up(1),
	}
}

// IsStructureValid reports whether the portal frame around anchor is complete.
func IsStructureValid(w BlockReader, anchor voxel.Vec3i, facing voxel.Direction) bool {
	for _, p := range FrameOffsets(anchor, facing) {
		if !w.InTag(w.Block(p), TagPortalBlocks) {
			return false
		}
	}
	return true
}

// ChannelContainerPos is where a portal's channel container sits.
func ChannelContainerPos(anchor voxel.Vec3i, facing voxel.Direction) voxel.Vec3i {
	return anchor.Up(2).Move(facing.Opposite(), 1)
}

// ComputeChannel derives the channel of the portal at anchor from the distinct
// item ids of its container, in first-occurrence slot order. A missing or empty
// container is channel 0.
func ComputeChannel(w BlockReader, anchor voxel.Vec3i, facing voxel.Direction) int32 {
	slots, ok := w.Inventory(ChannelContainerPos(anchor, facing))
	if !ok {
		return 0
	}
	seen := make(map[string]struct{}, len(slots))
	var b strings.Builder
	for _, id := range slots {
		if id == "" || id == voxel.AirID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		b.WriteString(id)
	}
	if len(seen) == 0 {
		return 0
	}
	return channelHash(b.String())
}

// channelHash is the 31-multiplier string hash over UTF-16 code units. It must
// stay stable across releases: stored registries are keyed by it.
func channelHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(c)
	}
	return h
}

// LowerAnchorOf returns the position of the lower block of the door at pos.
func LowerAnchorOf(pos voxel.Vec3i, half voxel.DoorHalf) voxel.Vec3i {
	if half == voxel.Lower {
		return pos
	}
	return pos.Down(1)
}

// IsValidPortal reports whether pos holds a door standing in a complete frame.
func IsValidPortal(w BlockReader, pos voxel.Vec3i) bool {
	s := w.Block(pos)
	if !w.InTag(s, TagDoors) {
		return false
	}
	return IsStructureValid(w, LowerAnchorOf(pos, s.Half), s.Facing.Opposite())
}

// Package warps pairs door-shaped portal structures by the items stored above them.
//
// A portal is a door whose lower half sits in a frame of portal blocks. The
// container above and behind the door determines the portal's channel, and
// opening the door while standing in it teleports the player to another portal
// on the same channel, chosen at random.
package warps

import "lapiswarps.ai/internal/sim/voxel"

// Block tags the warp logic consults.
const (
	TagDoors        = "doors"
	TagPortalBlocks = "lapiswarps:portal_blocks"
)

// RuleCreateLightning selects lightning (true) or a sound (false) as the teleport effect.
const RuleCreateLightning = "lapisWarpsCreateLightning"

// SoundTeleport is played when lightning is disabled.
const SoundTeleport = "entity.enderman.teleport"

// BlockReader is the read side of a world the validator needs.
type BlockReader interface {
	Block(pos voxel.Vec3i) voxel.BlockState
	InTag(s voxel.BlockState, tag string) bool
	// Inventory returns the item id in each slot of the container at pos, in slot
	// order, with "" for empty slots. ok is false if pos holds no inventory.
	Inventory(pos voxel.Vec3i) (slots []string, ok bool)
}

// Rand is the world's shared random source.
type Rand interface {
	Intn(n int) int
}

// Host is everything the pairing protocol consumes from the world it runs in.
type Host interface {
	BlockReader
	Rand

	SetBlock(pos voxel.Vec3i, s voxel.BlockState)
	Teleport(playerID string, x, y, z, yaw, pitch float64)
	SpawnLightning(x, y, z float64, cosmetic bool)
	PlaySound(pos voxel.Vec3i, sound string)
	BoolRule(name string) bool
}

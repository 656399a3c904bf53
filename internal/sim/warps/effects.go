package warps

import "lapiswarps.ai/internal/sim/voxel"

// TriggerEffects marks a teleport at pos: a cosmetic lightning bolt (no damage,
// no fire) when RuleCreateLightning is on, the teleport sound otherwise.
func TriggerEffects(h Host, pos voxel.Vec3i) {
	if h.BoolRule(RuleCreateLightning) {
		x, y, z := pos.Center()
		h.SpawnLightning(x, y, z, true)
		return
	}
	h.PlaySound(pos, SoundTeleport)
}

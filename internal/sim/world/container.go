package world

import "lapiswarps.ai/internal/sim/voxel"

// Container is the inventory of a container block: one item id per slot,
// "" for an empty slot.
type Container struct {
	Type  string
	Pos   voxel.Vec3i
	Slots []string
}

func newContainer(typ string, pos voxel.Vec3i, slots int) *Container {
	return &Container{Type: typ, Pos: pos, Slots: make([]string, slots)}
}

// Set replaces the contents from slot 0; remaining slots are emptied.
func (c *Container) Set(items []string) {
	for i := range c.Slots {
		if i < len(items) {
			c.Slots[i] = items[i]
		} else {
			c.Slots[i] = ""
		}
	}
}

func (c *Container) Empty() bool {
	for _, s := range c.Slots {
		if s != "" {
			return false
		}
	}
	return true
}

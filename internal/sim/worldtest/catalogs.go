package worldtest

import (
	"testing"

	"lapiswarps.ai/internal/sim/catalogs"
)

// DefaultCatalogs is a minimal block/item set for tests that should not depend
// on the shipped configs.
func DefaultCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.FromDefs(
		[]catalogs.BlockDef{
			{ID: "AIR"},
			{ID: "STONE", Solid: true},
			{ID: "LAPIS_BLOCK", Solid: true, Tags: []string{"lapiswarps:portal_blocks"}},
			{ID: "OAK_DOOR", Solid: true, Tags: []string{"doors"}},
			{ID: "CHEST", Solid: true, Container: true, Slots: 27},
		},
		[]catalogs.ItemDef{
			{ID: "DIAMOND", Kind: "MATERIAL"},
			{ID: "EMERALD", Kind: "MATERIAL"},
			{ID: "COAL", Kind: "MATERIAL"},
		},
	)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return cats
}

package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestWriteReadSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "120.snap.zst")
	in := SnapshotV1{
		Header:   Header{Version: 1, WorldID: "OVERWORLD", Tick: 120},
		Seed:     1337,
		TickRate: 20,
		Spawn:    [3]int{0, 64, 0},
		Blocks: []BlockV1{
			{Pos: [3]int{0, 63, 0}, ID: "LAPIS_BLOCK"},
			{Pos: [3]int{0, 64, 0}, ID: "OAK_DOOR", Facing: 1, Open: true},
		},
		Containers: []ContainerV1{{Type: "CHEST", Pos: [3]int{0, 66, 1}, Slots: []string{"DIAMOND", ""}}},
		Portals: []PortalChannelV1{
			{Channel: -1921929932, Anchors: [][3]int{{0, 64, 0}, {10, 64, 0}}},
		},
		Counters: CountersV1{NextPlayer: 3},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h != in.Header {
		t.Fatalf("header=%+v want %+v", h, in.Header)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst")); err == nil {
		t.Fatalf("expected error")
	}
}

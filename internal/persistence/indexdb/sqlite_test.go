package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"lapiswarps.ai/internal/persistence/snapshot"
	"lapiswarps.ai/internal/sim/world"
)

func TestSQLiteIndex_WarpsAndSnapshots(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	partner := [3]int{10, 64, 0}
	_ = idx.WriteWarp(world.WarpLogEntry{Tick: 3, WorldID: "OVERWORLD", PlayerID: "P1", Outcome: "NO_PARTNER", Anchor: [3]int{0, 64, 0}, Registered: true})
	_ = idx.WriteWarp(world.WarpLogEntry{Tick: 9, WorldID: "OVERWORLD", PlayerID: "P1", Outcome: "MATCHED", Channel: -7, Anchor: [3]int{0, 64, 0}, Partner: &partner})
	_ = idx.WriteWarp(world.WarpLogEntry{Tick: 9, WorldID: "NETHER", PlayerID: "P2", Outcome: "NOT_PORTAL", Anchor: [3]int{1, 2, 3}})

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: "OVERWORLD", Tick: 100},
		Seed:   1337,
		Blocks: make([]snapshot.BlockV1, 4),
		Portals: []snapshot.PortalChannelV1{
			{Channel: -7, Anchors: [][3]int{{0, 64, 0}, {10, 64, 0}}},
			{Channel: 0, Anchors: [][3]int{{20, 64, 0}}},
		},
	}
	idx.RecordSnapshot("/data/worlds/OVERWORLD/snapshots/100.snap.zst", snap)

	// A later snapshot replaces the portal rows.
	snap.Header.Tick = 200
	snap.Portals = snap.Portals[:1]
	idx.RecordSnapshot("/data/worlds/OVERWORLD/snapshots/200.snap.zst", snap)

	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("open ro: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	warps, err := RecentWarps(ctx, db, "OVERWORLD", 10)
	if err != nil {
		t.Fatalf("warps: %v", err)
	}
	if len(warps) != 2 || warps[0].Outcome != "MATCHED" || warps[0].Channel != -7 || warps[0].Partner == nil || *warps[0].Partner != partner {
		t.Fatalf("warps: %+v", warps)
	}
	if !warps[1].Registered || warps[1].Partner != nil {
		t.Fatalf("warps[1]: %+v", warps[1])
	}

	counts, err := OutcomeCounts(ctx, db, "OVERWORLD")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["MATCHED"] != 1 || counts["NO_PARTNER"] != 1 || counts["NOT_PORTAL"] != 0 {
		t.Fatalf("counts: %v", counts)
	}

	snaps, err := Snapshots(ctx, db, "OVERWORLD")
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 2 || snaps[0].Anchors != 3 || snaps[0].Blocks != 4 || snaps[1].Channels != 1 {
		t.Fatalf("snapshots: %+v", snaps)
	}

	portals, err := Portals(ctx, db, "OVERWORLD")
	if err != nil {
		t.Fatalf("portals: %v", err)
	}
	if len(portals) != 2 || portals[0].AsOf != 200 || portals[0].Channel != -7 {
		t.Fatalf("portals: %+v", portals)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqWarp}

	_ = s.WriteWarp(world.WarpLogEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropWarpTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

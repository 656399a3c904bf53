package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	persistlog "lapiswarps.ai/internal/persistence/log"
	"lapiswarps.ai/internal/persistence/snapshot"
	"lapiswarps.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "warps":
			warpsCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "portals":
			portalsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID, "snapshots")
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

type inspectSummary struct {
	WorldID    string                     `json:"world_id"`
	Tick       uint64                     `json:"tick"`
	Seed       int64                      `json:"seed"`
	Blocks     int                        `json:"blocks"`
	Containers int                        `json:"containers"`
	Channels   int                        `json:"channels"`
	Anchors    int                        `json:"anchors"`
	Portals    []snapshot.PortalChannelV1 `json:"portals,omitempty"`
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (used when -snapshot is empty)")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	withPortals := fs.Bool("portals", false, "include portal channels")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -snapshot")
			os.Exit(2)
		}
		path = latestSnapshot(filepath.Join(*dataDir, "worlds", *worldID))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(summarize(snap, *withPortals))
}

func summarize(snap snapshot.SnapshotV1, withPortals bool) inspectSummary {
	s := inspectSummary{
		WorldID:    snap.Header.WorldID,
		Tick:       snap.Header.Tick,
		Seed:       snap.Seed,
		Blocks:     len(snap.Blocks),
		Containers: len(snap.Containers),
		Channels:   len(snap.Portals),
	}
	for _, pc := range snap.Portals {
		s.Anchors += len(pc.Anchors)
	}
	if withPortals {
		s.Portals = snap.Portals
	}
	return s
}

func warpsCmd(args []string) {
	fs := flag.NewFlagSet("warps", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	outcome := fs.String("outcome", "", "outcome filter: MATCHED|NO_PARTNER|PRUNED|NOT_PORTAL")
	sinceTick := fs.Uint64("since_tick", 0, "only entries at or after tick")
	limit := fs.Int("limit", 0, "keep only the newest N entries (0 = all)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	entries, err := persistlog.ReadWarps(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read warps:", err)
		os.Exit(1)
	}
	for _, e := range filterWarps(entries, strings.ToUpper(strings.TrimSpace(*outcome)), *sinceTick, *limit) {
		printJSON(e)
	}
}

func filterWarps(in []world.WarpLogEntry, outcome string, sinceTick uint64, limit int) []world.WarpLogEntry {
	out := make([]world.WarpLogEntry, 0, len(in))
	for _, e := range in {
		if e.Tick < sinceTick {
			continue
		}
		if outcome != "" && e.Outcome != outcome {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lapiswarps.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required)")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/worlds/<world>/index.db)")
	limit := fs.Int("limit", 20, "result limit (warps)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "worlds", *worldID, "index.db")
	}

	db, err := indexdb.OpenReadOnly(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch q {
	case "snapshots":
		rows, err := indexdb.Snapshots(ctx, db, *worldID)
		exitOnErr("query", err)
		for _, r := range rows {
			printJSON(r)
		}

	case "warps":
		rows, err := indexdb.RecentWarps(ctx, db, *worldID, *limit)
		exitOnErr("query", err)
		for _, r := range rows {
			printJSON(r)
		}

	case "outcomes":
		counts, err := indexdb.OutcomeCounts(ctx, db, *worldID)
		exitOnErr("query", err)
		printJSON(counts)

	case "portals":
		rows, err := indexdb.Portals(ctx, db, *worldID)
		exitOnErr("query", err)
		for _, r := range rows {
			printJSON(r)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] -world WORLD [-db PATH] [-limit N] snapshots|warps|outcomes|portals")
		os.Exit(2)
	}
}

func exitOnErr(what string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, what+":", err)
	os.Exit(1)
}

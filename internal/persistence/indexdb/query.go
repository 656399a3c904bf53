package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// WarpRow is one indexed door interaction.
type WarpRow struct {
	WorldID    string
	Tick       uint64
	PlayerID   string
	Outcome    string
	Channel    int32
	Anchor     [3]int
	Partner    *[3]int
	Registered bool
	Purged     int
}

type SnapshotRow struct {
	WorldID    string
	Tick       uint64
	Path       string
	Seed       int64
	Blocks     int
	Containers int
	Channels   int
	Anchors    int
}

type PortalRow struct {
	Channel int32
	Pos     [3]int
	AsOf    uint64
}

// OpenReadOnly opens an existing index for queries only; no writer goroutine is started.
func OpenReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA query_only=ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// RecentWarps lists the newest warp rows of a world, newest first.
func RecentWarps(ctx context.Context, db *sql.DB, worldID string, limit int) ([]WarpRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT world_id,tick,player_id,outcome,channel,ax,ay,az,px,py,pz,registered,purged
		FROM warps WHERE world_id = ? ORDER BY id DESC LIMIT ?`, worldID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WarpRow
	for rows.Next() {
		var r WarpRow
		var tick, channel int64
		var px, py, pz sql.NullInt64
		if err := rows.Scan(&r.WorldID, &tick, &r.PlayerID, &r.Outcome, &channel,
			&r.Anchor[0], &r.Anchor[1], &r.Anchor[2], &px, &py, &pz, &r.Registered, &r.Purged); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.Channel = int32(channel)
		if px.Valid && py.Valid && pz.Valid {
			r.Partner = &[3]int{int(px.Int64), int(py.Int64), int(pz.Int64)}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OutcomeCounts tallies warp rows by outcome for a world.
func OutcomeCounts(ctx context.Context, db *sql.DB, worldID string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM warps WHERE world_id = ? GROUP BY outcome`, worldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func Snapshots(ctx context.Context, db *sql.DB, worldID string) ([]SnapshotRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT world_id,tick,path,seed,blocks,containers,channels,anchors
		FROM snapshots WHERE world_id = ? ORDER BY tick`, worldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var tick int64
		if err := rows.Scan(&r.WorldID, &tick, &r.Path, &r.Seed, &r.Blocks, &r.Containers, &r.Channels, &r.Anchors); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Portals lists the registry as of the world's latest indexed snapshot.
func Portals(ctx context.Context, db *sql.DB, worldID string) ([]PortalRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT channel,x,y,z,as_of_tick FROM portals
		WHERE world_id = ? ORDER BY channel, x, y, z`, worldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PortalRow
	for rows.Next() {
		var r PortalRow
		var channel, asOf int64
		if err := rows.Scan(&channel, &r.Pos[0], &r.Pos[1], &r.Pos[2], &asOf); err != nil {
			return nil, fmt.Errorf("scan portal: %w", err)
		}
		r.Channel = int32(channel)
		r.AsOf = uint64(asOf)
		out = append(out, r)
	}
	return out, rows.Err()
}

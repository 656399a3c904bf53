package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"lapiswarps.ai/internal/persistence/snapshot"
	"lapiswarps.ai/internal/sim/catalogs"
	"lapiswarps.ai/internal/sim/tuning"
	"lapiswarps.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of warp activity and snapshots.
// Writes are queued and applied by a single writer goroutine; the JSONL logs
// and snapshot files remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropWarp     atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqWarp reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	warp     world.WarpLogEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	WorldID    string
	Tick       uint64
	Path       string
	Seed       int64
	Blocks     int
	Containers int
	Channels   int
	Anchors    int
	Portals    []snapshot.PortalChannelV1
}

// Stats reports queue health.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropWarpTotal     uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS warps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			channel INTEGER NOT NULL,
			ax INTEGER NOT NULL,
			ay INTEGER NOT NULL,
			az INTEGER NOT NULL,
			px INTEGER,
			py INTEGER,
			pz INTEGER,
			registered INTEGER NOT NULL,
			purged INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_warps_world_tick ON warps(world_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_warps_channel ON warps(world_id, channel);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			containers INTEGER NOT NULL,
			channels INTEGER NOT NULL,
			anchors INTEGER NOT NULL,
			PRIMARY KEY (world_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS portals (
			world_id TEXT NOT NULL,
			channel INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			as_of_tick INTEGER NOT NULL,
			PRIMARY KEY (world_id, x, y, z)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropWarpTotal:     s.dropWarp.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

var _ world.WarpSink = (*SQLiteIndex)(nil)

func (s *SQLiteIndex) WriteWarp(entry world.WarpLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqWarp, warp: entry}:
	default:
		// Drop if the indexer falls behind.
		s.dropWarp.Add(1)
	}
	return nil
}

// RecordSnapshot indexes a written snapshot and replaces the world's rows in
// the portals table with the snapshot's registry.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		WorldID:    snap.Header.WorldID,
		Tick:       snap.Header.Tick,
		Path:       path,
		Seed:       snap.Seed,
		Blocks:     len(snap.Blocks),
		Containers: len(snap.Containers),
		Channels:   len(snap.Portals),
		Portals:    snap.Portals,
	}
	for _, pc := range snap.Portals {
		r.Anchors += len(pc.Anchors)
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "items.json")); err == nil {
			rows = append(rows, kv{name: "items_defs", digest: cats.Items.DefsDigest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}
	// Tuning: store the values we actually apply (canonical JSON).
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertWarp, _ := s.db.Prepare(`INSERT INTO warps(world_id,tick,player_id,outcome,channel,ax,ay,az,px,py,pz,registered,purged,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(world_id,tick,path,seed,blocks,containers,channels,anchors) VALUES(?,?,?,?,?,?,?,?)`)
	clearPortals, _ := s.db.Prepare(`DELETE FROM portals WHERE world_id = ?`)
	insertPortal, _ := s.db.Prepare(`INSERT OR REPLACE INTO portals(world_id,channel,x,y,z,as_of_tick) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertWarp, insertSnapshot, clearPortals, insertPortal} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	handle := func(r req) {
		begin()
		if tx == nil {
			return
		}
		switch r.kind {
		case reqWarp:
			w := r.warp
			if insertWarp == nil {
				return
			}
			raw, _ := json.Marshal(w)
			var px, py, pz sql.NullInt64
			if w.Partner != nil {
				px = sql.NullInt64{Int64: int64(w.Partner[0]), Valid: true}
				py = sql.NullInt64{Int64: int64(w.Partner[1]), Valid: true}
				pz = sql.NullInt64{Int64: int64(w.Partner[2]), Valid: true}
			}
			if _, err := tx.Stmt(insertWarp).Exec(
				w.WorldID,
				int64(w.Tick),
				w.PlayerID,
				w.Outcome,
				int64(w.Channel),
				w.Anchor[0], w.Anchor[1], w.Anchor[2],
				px, py, pz,
				w.Registered,
				w.Purged,
				string(raw),
			); err != nil {
				rollback()
				return
			}
			opCount++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot == nil || clearPortals == nil || insertPortal == nil {
				return
			}
			if _, err := tx.Stmt(insertSnapshot).Exec(
				sn.WorldID,
				int64(sn.Tick),
				sn.Path,
				sn.Seed,
				sn.Blocks,
				sn.Containers,
				sn.Channels,
				sn.Anchors,
			); err != nil {
				rollback()
				return
			}
			if _, err := tx.Stmt(clearPortals).Exec(sn.WorldID); err != nil {
				rollback()
				return
			}
			failed := false
			for _, pc := range sn.Portals {
				for _, a := range pc.Anchors {
					if _, err := tx.Stmt(insertPortal).Exec(sn.WorldID, int64(pc.Channel), a[0], a[1], a[2], int64(sn.Tick)); err != nil {
						failed = true
						break
					}
					opCount++
				}
				if failed {
					break
				}
			}
			if failed {
				rollback()
				return
			}
			// Snapshots are rare; make them visible right away.
			commit()
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	// Idle flush so rows do not sit in an open transaction.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()
	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			handle(r)
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}
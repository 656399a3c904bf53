package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"lapiswarps.ai/internal/sim/multiworld"
)

type portalChannelJSON struct {
	Channel int32    `json:"channel"`
	Anchors [][3]int `json:"anchors"`
}

// registerAdmin adds local-only endpoints; they never touch world state
// outside the world loop.
func registerAdmin(mux *http.ServeMux, mgr *multiworld.Manager, stores map[string]*worldStore) {
	mux.HandleFunc("/admin/v1/portals", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		worldID := r.URL.Query().Get("world")
		rt := mgr.Runtime(worldID)
		if rt == nil {
			http.Error(rw, "unknown world", http.StatusNotFound)
			return
		}
		entries := rt.World.Portals().Entries()
		out := make([]portalChannelJSON, 0, len(entries))
		for _, e := range entries {
			pc := portalChannelJSON{Channel: e.Channel}
			for _, a := range e.Anchors {
				pc.Anchors = append(pc.Anchors, a.ToArray())
			}
			out = append(out, pc)
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"world_id": worldID,
			"tick":     rt.World.CurrentTick(),
			"channels": out,
		})
	})

	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		worldID := r.URL.Query().Get("world")
		rt, st := mgr.Runtime(worldID), stores[worldID]
		if rt == nil || st == nil {
			http.Error(rw, "unknown world", http.StatusNotFound)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		rw.Header().Set("Content-Type", "application/json")
		snap, err := rt.World.RequestSnapshot(ctx)
		if err == nil {
			var path string
			if path, err = st.write(snap); err == nil {
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": snap.Header.Tick, "path": path})
				return
			}
		}
		rw.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
	})
}

func metricsHandler(mgr *multiworld.Manager, stores map[string]*worldStore) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(rw, "# HELP lapiswarps_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE lapiswarps_world_tick gauge\n")
		for _, id := range mgr.WorldIDs() {
			fmt.Fprintf(rw, "lapiswarps_world_tick{world=%q} %d\n", id, mgr.Runtime(id).World.CurrentTick())
		}
		fmt.Fprintf(rw, "# HELP lapiswarps_portal_anchors Registered portal anchors.\n")
		fmt.Fprintf(rw, "# TYPE lapiswarps_portal_anchors gauge\n")
		for _, id := range mgr.WorldIDs() {
			reg := mgr.Registries().For(id)
			fmt.Fprintf(rw, "lapiswarps_portal_anchors{world=%q} %d\n", id, reg.Len())
		}
		fmt.Fprintf(rw, "# HELP lapiswarps_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE lapiswarps_index_dropped_total counter\n")
		for _, id := range mgr.WorldIDs() {
			st := stores[id]
			if st == nil || st.idx == nil {
				continue
			}
			s := st.idx.Stats()
			fmt.Fprintf(rw, "lapiswarps_index_dropped_total{world=%q,kind=%q} %d\n", id, "warp", s.DropWarpTotal)
			fmt.Fprintf(rw, "lapiswarps_index_dropped_total{world=%q,kind=%q} %d\n", id, "snapshot", s.DropSnapshotTotal)
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

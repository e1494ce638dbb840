package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flownet.ai/internal/persistence/snapshot"
	"flownet.ai/internal/sim/world"
	"flownet.ai/internal/sim/world/kernel/model"
)

// adminHost is the slice of the world the admin endpoints drive.
type adminHost interface {
	CurrentTick() uint64
	RunID() string
	Spawn() chan<- world.SpawnRequest
	Despawn() chan<- world.DespawnRequest
	SnapshotRequests() chan<- world.SnapshotRequest
}

type spawnBody struct {
	Def      string `json:"def"`
	Pos      [3]int `json:"pos"`
	Rotation int    `json:"rot"`
}

const adminTimeout = 5 * time.Second

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func loopbackOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next(rw, r)
	}
}

func stateHandler(h adminHost, worldID string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]any{
			"world_id": worldID,
			"run_id":   h.RunID(),
			"tick":     h.CurrentTick(),
		})
	}
}

// partsHandler spawns on POST and despawns on DELETE ?id=N. Both block until
// the world applies the request at the next tick boundary.
func partsHandler(h adminHost) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
		defer cancel()

		switch r.Method {
		case http.MethodPost:
			var body spawnBody
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			resp := make(chan world.SpawnResponse, 1)
			req := world.SpawnRequest{Def: strings.ToUpper(body.Def), Origin: model.VecFromArray(body.Pos), Rotation: body.Rotation, Resp: resp}
			select {
			case h.Spawn() <- req:
			case <-ctx.Done():
				writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "world busy"})
				return
			}
			select {
			case sr := <-resp:
				if sr.Err != nil {
					writeJSON(rw, statusFor(sr.Err), map[string]any{"ok": false, "error": sr.Err.Error()})
					return
				}
				writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "part_id": sr.PartID})
			case <-ctx.Done():
				writeJSON(rw, http.StatusGatewayTimeout, map[string]any{"ok": false, "error": "timeout"})
			}

		case http.MethodDelete:
			id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
			if err != nil || id == 0 {
				writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad id"})
				return
			}
			resp := make(chan error, 1)
			select {
			case h.Despawn() <- world.DespawnRequest{PartID: id, Resp: resp}:
			case <-ctx.Done():
				writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "world busy"})
				return
			}
			select {
			case err := <-resp:
				if err != nil {
					writeJSON(rw, statusFor(err), map[string]any{"ok": false, "error": err.Error()})
					return
				}
				writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "part_id": id})
			case <-ctx.Done():
				writeJSON(rw, http.StatusGatewayTimeout, map[string]any{"ok": false, "error": "timeout"})
			}

		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// snapshotHandler asks the world for a snapshot and hands it to out, the same
// channel the periodic snapshots use.
func snapshotHandler(h adminHost, out chan<- snapshot.SnapshotV1) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
		defer cancel()

		resp := make(chan snapshot.SnapshotV1, 1)
		select {
		case h.SnapshotRequests() <- world.SnapshotRequest{Resp: resp}:
		case <-ctx.Done():
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "world busy"})
			return
		}
		select {
		case snap := <-resp:
			select {
			case out <- snap:
			case <-ctx.Done():
				writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "tick": snap.Header.Tick, "error": "snapshot writer busy"})
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": snap.Header.Tick})
		case <-ctx.Done():
			writeJSON(rw, http.StatusGatewayTimeout, map[string]any{"ok": false, "error": "timeout"})
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, world.ErrUnknownPart), errors.Is(err, world.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, world.ErrCellOccupied):
		return http.StatusConflict
	case errors.Is(err, world.ErrOutOfBounds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
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

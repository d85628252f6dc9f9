package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"audiofetch/internal/models"

	"github.com/go-chi/chi/v5"
)

const unknownDownloadMessage = "no such download id"

// downloadID extracts the job id route param. Job ids contain spaces, so the
// escaped form chi hands back must be decoded before the registry lookup.
func downloadID(r *http.Request) string {
	id := chi.URLParam(r, "download_id")
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

// progressStream pushes registry snapshots for one job as server-sent events.
// It polls at the configured interval and only emits when the snapshot
// changed. The stream closes on terminal status, subscriber disconnect, an
// unknown id (after one error event) or the long-duration safety ceiling.
func (a *App) progressStream(w http.ResponseWriter, r *http.Request) {
	id := downloadID(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ceiling := time.NewTimer(a.streamCeiling)
	defer ceiling.Stop()
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	var last []byte
	push := func(snap models.ProgressSnapshot) {
		payload, err := json.Marshal(snap)
		if err != nil {
			a.logger.Error("failed to encode snapshot", "job_id", id, "error", err)
			return
		}
		if bytes.Equal(payload, last) {
			return
		}
		last = payload
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	for {
		job, ok := a.store.Get(id)
		if !ok {
			push(models.ProgressSnapshot{Status: models.StatusError, Error: unknownDownloadMessage})
			return
		}
		push(job.Snapshot())
		if job.Status.Terminal() {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ceiling.C:
			a.logger.Warn("progress stream hit safety ceiling", "job_id", id)
			return
		case <-ticker.C:
		}
	}
}

// progressWS serves the same snapshots over a websocket for clients that
// prefer it to SSE. Semantics match progressStream.
func (a *App) progressWS(w http.ResponseWriter, r *http.Request) {
	id := downloadID(r)

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ceiling := time.NewTimer(a.streamCeiling)
	defer ceiling.Stop()
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	var last models.ProgressSnapshot
	sent := false
	for {
		job, ok := a.store.Get(id)
		if !ok {
			_ = conn.WriteJSON(models.ProgressSnapshot{Status: models.StatusError, Error: unknownDownloadMessage})
			return
		}
		snap := job.Snapshot()
		if !sent || snap != last {
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			last, sent = snap, true
		}
		if job.Status.Terminal() {
			return
		}

		select {
		case <-closed:
			return
		case <-ceiling.C:
			a.logger.Warn("websocket stream hit safety ceiling", "job_id", id)
			return
		case <-ticker.C:
		}
	}
}

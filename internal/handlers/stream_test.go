package handlers

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audiofetch/internal/extractor"
	"audiofetch/internal/models"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, ta *testApp, id string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ta.srv.URL, "http") + "/ws/" + url.PathEscape(id)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebsocketUnknownID(t *testing.T) {
	ta := newTestApp(t, &fakeClient{}, 8)
	conn := dialWS(t, ta, "missing")

	var snap models.ProgressSnapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Status != models.StatusError || snap.Error != "no such download id" {
		t.Fatalf("unexpected event: %+v", snap)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&snap); err == nil {
		t.Fatalf("expected closed connection, got %+v", snap)
	}
}

func TestWebsocketStreamsUntilTerminal(t *testing.T) {
	client := &fakeClient{probeMeta: &extractor.Metadata{Title: "WS Song"}}
	ta := newTestApp(t, client, 8)

	_, body := ta.submit(t, "https://example/watch?v=ws")
	id := body["download_id"]

	// Drive the record by hand; the websocket endpoint only reads snapshots.
	conn := dialWS(t, ta, id)

	var snap models.ProgressSnapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read queued: %v", err)
	}
	if snap.Status != models.StatusQueued {
		t.Fatalf("first event = %+v, want queued", snap)
	}

	ta.store.Update(id, func(j *models.Job) {
		j.Status = models.StatusDownloading
		j.Progress = 70
		j.UpdatedAt = time.Now()
	})
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read downloading: %v", err)
	}
	if snap.Status != models.StatusDownloading || snap.Progress != 70 {
		t.Fatalf("second event = %+v", snap)
	}

	ta.store.Update(id, func(j *models.Job) {
		j.Status = models.StatusProcessing
		j.Progress = 95
		j.UpdatedAt = time.Now()
	})
	ta.store.Update(id, func(j *models.Job) {
		j.Status = models.StatusDone
		j.Progress = 100
		j.UpdatedAt = time.Now()
	})

	// Skip the optional processing event; the stream must end with done.
	last := snap
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&snap); err != nil {
			break
		}
		last = snap
	}
	if last.Status != models.StatusDone || last.Progress != 100 {
		t.Fatalf("last event = %+v, want done/100", last)
	}
}

func TestServesDownloadedFiles(t *testing.T) {
	ta := newTestApp(t, &fakeClient{}, 8)

	path := filepath.Join(ta.app.downloadDir, "Test Song.mp3")
	if err := os.WriteFile(path, []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp, err := http.Get(ta.srv.URL + "/downloads/Test%20Song.mp3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCleanupRemovesOldFilesAndRecords(t *testing.T) {
	ta := newTestApp(t, &fakeClient{}, 8)

	oldFile := filepath.Join(ta.app.downloadDir, "old.mp3")
	freshFile := filepath.Join(ta.app.downloadDir, "fresh.mp3")
	if err := os.WriteFile(oldFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(freshFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().Add(-time.Hour)
	if err := os.Chtimes(oldFile, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := ta.store.Create("stale-done", models.Job{Status: models.StatusDone, UpdatedAt: stale}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ta.store.Create("active", models.Job{Status: models.StatusDownloading, UpdatedAt: stale}); err != nil {
		t.Fatalf("create: %v", err)
	}

	ta.app.cleanup(10 * time.Minute)

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Fatal("old file should be removed")
	}
	if _, err := os.Stat(freshFile); err != nil {
		t.Fatal("fresh file should survive")
	}
	if _, ok := ta.store.Get("stale-done"); ok {
		t.Fatal("stale terminal record should be evicted")
	}
	if _, ok := ta.store.Get("active"); !ok {
		t.Fatal("active record must survive cleanup")
	}
}

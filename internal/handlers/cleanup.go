package handlers

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// StartCleanupLoop periodically removes converted files older than ttl from
// the download root and evicts terminal registry records of the same age.
// Running jobs and their records are never touched.
func (a *App) StartCleanupLoop(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.cleanup(ttl)
			}
		}
	}()
}

func (a *App) cleanup(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	removed := 0
	entries, err := os.ReadDir(a.downloadDir)
	if err != nil {
		a.logger.Warn("failed to scan download dir", "dir", a.downloadDir, "error", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(a.downloadDir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	evicted := a.store.Evict(cutoff)
	if removed > 0 || evicted > 0 {
		a.logger.Info("cleanup completed", "removed_files", removed, "evicted_jobs", evicted)
	}
}

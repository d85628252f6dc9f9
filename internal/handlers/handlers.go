package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"audiofetch/internal/extractor"
	"audiofetch/internal/models"
	"audiofetch/internal/registry"
	"audiofetch/internal/worker"
	"audiofetch/templates"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultPollInterval  = 500 * time.Millisecond
	defaultStreamCeiling = 24 * time.Hour
)

// App wires the HTTP surface to the job registry, the worker pool and the
// extraction client.
type App struct {
	logger *slog.Logger
	router *chi.Mux

	store  registry.Store
	pool   *worker.Pool
	client extractor.Client

	downloadDir   string
	pollInterval  time.Duration
	streamCeiling time.Duration

	upgrader websocket.Upgrader
}

func NewApp(logger *slog.Logger, store registry.Store, pool *worker.Pool, client extractor.Client, downloadDir string, pollInterval, streamCeiling time.Duration) *App {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if streamCeiling <= 0 {
		streamCeiling = defaultStreamCeiling
	}

	app := &App{
		logger:        logger,
		router:        chi.NewRouter(),
		store:         store,
		pool:          pool,
		client:        client,
		downloadDir:   downloadDir,
		pollInterval:  pollInterval,
		streamCeiling: streamCeiling,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	app.registerRoutes()
	return app
}

func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) registerRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)
	a.router.Use(a.corsMiddleware)

	a.router.Get("/", a.index)
	a.router.Post("/start_download", a.startDownload)
	a.router.Get("/progress/{download_id}", a.progressStream)
	a.router.Get("/ws/{download_id}", a.progressWS)
	a.router.Get("/healthz", a.health)

	downloadsFS := http.FileServer(http.Dir(a.downloadDir))
	a.router.Handle("/downloads/*", http.StripPrefix("/downloads/", downloadsFS))
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
}

func (a *App) index(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, templates.IndexPage())
}

// startDownload validates the URL, probes metadata synchronously and, only
// when the probe succeeds, creates the job record and schedules the worker.
// The response never waits for the conversion itself.
func (a *App) startDownload(w http.ResponseWriter, r *http.Request) {
	rawURL := strings.TrimSpace(r.FormValue("url"))
	if rawURL == "" {
		a.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}
	srcURL := cleanSourceURL(rawURL)

	meta, err := a.client.Probe(r.Context(), srcURL)
	if err != nil {
		a.logger.Warn("metadata probe failed", "url", srcURL, "error", err)
		a.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	title := sanitizeTitle(meta.Title)
	filename := title + ".mp3"
	id := fmt.Sprintf("%s-%d", title, time.Now().Unix())

	now := time.Now()
	job := models.Job{
		URL:       srcURL,
		Status:    models.StatusQueued,
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.store.Create(id, job); err != nil {
		// Two submissions of the same title within the same second collide;
		// retry once with a random suffix.
		id = fmt.Sprintf("%s-%s", id, uuid.NewString()[:8])
		if err := a.store.Create(id, job); err != nil {
			a.logger.Error("failed to create job record", "job_id", id, "error", err)
			a.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create job"})
			return
		}
	}

	task := worker.Task{
		JobID:          id,
		URL:            srcURL,
		OutputTemplate: filepath.Join(a.downloadDir, title+".%(ext)s"),
		Filename:       filename,
	}
	if err := a.pool.Submit(task); err != nil {
		a.logger.Warn("conversion queue saturated", "job_id", id)
		a.store.Update(id, func(j *models.Job) {
			j.Status = models.StatusError
			j.Error = err.Error()
			j.UpdatedAt = time.Now()
		})
		a.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	a.logger.Info("download scheduled", "job_id", id, "filename", filename)
	a.respondJSON(w, http.StatusOK, map[string]string{"download_id": id, "filename": filename})
}

func (a *App) render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		a.logger.Error("failed to render template", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

func (a *App) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode json", "error", err)
	}
}

func (a *App) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

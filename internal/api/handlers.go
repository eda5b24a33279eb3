package api

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/pocket-tracker/tracker/internal/db"
	"github.com/pocket-tracker/tracker/internal/track"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunRepository defines the journal operations the API needs
type RunRepository interface {
	ListRuns(ctx context.Context, limit int) ([]db.Run, error)
}

// Handler serves run summaries and track files
type Handler struct {
	runs       RunRepository
	recordsDir string
}

// NewHandler creates a handler. runs may be nil when the journal is disabled.
func NewHandler(runs RunRepository, recordsDir string) *Handler {
	return &Handler{runs: runs, recordsDir: recordsDir}
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListRunsResponse is the JSON response for GET /api/runs
type ListRunsResponse struct {
	Runs  []db.Run `json:"runs"`
	Count int      `json:"count"`
}

// TrackInfo describes one track file
type TrackInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListTracksResponse is the JSON response for GET /api/tracks
type ListTracksResponse struct {
	Tracks []TrackInfo `json:"tracks"`
	Count  int         `json:"count"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"journal":   h.runs != nil,
		"timestamp": time.Now().UTC(),
	})
}

// ListRuns handles GET /api/runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Run journal is disabled"})
		return
	}

	limit := defaultRunLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	runs, err := h.runs.ListRuns(ctx, limit)
	if err != nil {
		log.Printf("API: failed to list runs: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to list runs"})
		return
	}

	writeJSON(w, http.StatusOK, ListRunsResponse{Runs: runs, Count: len(runs)})
}

// ListTracks handles GET /api/tracks, newest first
func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.recordsDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("API: failed to read records directory: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to list tracks"})
		return
	}

	tracks := []TrackInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), track.Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		tracks = append(tracks, TrackInfo{
			Name:       entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}
	// Names are run start stamps, so lexical order is chronological
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Name > tracks[j].Name })

	writeJSON(w, http.StatusOK, ListTracksResponse{Tracks: tracks, Count: len(tracks)})
}

// GetTrack handles GET /api/tracks/{name}
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validTrackName(name) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid track name"})
		return
	}

	fc, err := track.Load(filepath.Join(h.recordsDir, name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Track not found"})
		return
	case err != nil:
		log.Printf("API: failed to load track %s: %v", name, err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load track"})
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(fc)
}

func validTrackName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\%`) || strings.Contains(name, "..") {
		return false
	}
	return strings.HasSuffix(name, track.Extension)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

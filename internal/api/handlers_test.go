package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pocket-tracker/tracker/internal/db"
	"github.com/pocket-tracker/tracker/internal/location"
	"github.com/pocket-tracker/tracker/internal/track"
)

type mockRuns struct {
	runs  []db.Run
	err   error
	limit int
}

func (m *mockRuns) ListRuns(ctx context.Context, limit int) ([]db.Run, error) {
	m.limit = limit
	return m.runs, m.err
}

func setupRecords(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	older := filepath.Join(dir, "2024-06-01_08-00-00.geojson")
	newer := filepath.Join(dir, "2024-06-02_08-00-00.geojson")
	for _, p := range []string{older, newer} {
		if err := track.Create(p); err != nil {
			t.Fatal(err)
		}
	}
	reading := location.Reading{Longitude: 12.3, Latitude: 45.6, Raw: map[string]interface{}{"longitude": 12.3, "latitude": 45.6}}
	if err := track.Append(newer, track.NewFeature(reading, location.ProviderNetwork, time.Unix(1700000000, 0))); err != nil {
		t.Fatal(err)
	}

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.geojson"), []byte("{"), 0644)
	return dir
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := NewRouter(NewHandler(nil, t.TempDir()), []string{"*"})

	rec := do(t, router, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["journal"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestListRuns(t *testing.T) {
	repo := &mockRuns{runs: []db.Run{{RunID: "a", Provider: "gps"}, {RunID: "b", Provider: "network"}}}
	router := NewRouter(NewHandler(repo, t.TempDir()), []string{"*"})

	rec := do(t, router, "/api/runs?limit=1000")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp ListRunsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || resp.Runs[0].RunID != "a" {
		t.Errorf("resp = %+v", resp)
	}
	if repo.limit != maxRunLimit {
		t.Errorf("limit passed = %d, want capped %d", repo.limit, maxRunLimit)
	}
}

func TestListRunsErrors(t *testing.T) {
	tests := []struct {
		name   string
		repo   RunRepository
		path   string
		status int
	}{
		{"journal disabled", nil, "/api/runs", http.StatusServiceUnavailable},
		{"bad limit", &mockRuns{}, "/api/runs?limit=zero", http.StatusBadRequest},
		{"negative limit", &mockRuns{}, "/api/runs?limit=-1", http.StatusBadRequest},
		{"repository error", &mockRuns{err: errors.New("disk I/O error")}, "/api/runs", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(NewHandler(tc.repo, t.TempDir()), []string{"*"})
			if rec := do(t, router, tc.path); rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestListTracks(t *testing.T) {
	router := NewRouter(NewHandler(nil, setupRecords(t)), []string{"*"})

	rec := do(t, router, "/api/tracks")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ListTracksResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 3 {
		t.Fatalf("expected 3 geojson files, got %+v", resp.Tracks)
	}
	if resp.Tracks[0].Name != "broken.geojson" || resp.Tracks[1].Name != "2024-06-02_08-00-00.geojson" {
		t.Errorf("unexpected order: %+v", resp.Tracks)
	}
}

func TestListTracksMissingDir(t *testing.T) {
	router := NewRouter(NewHandler(nil, filepath.Join(t.TempDir(), "none")), []string{"*"})

	rec := do(t, router, "/api/tracks")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ListTracksResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Count != 0 || resp.Tracks == nil {
		t.Errorf("expected empty list, got %+v", resp)
	}
}

func TestGetTrack(t *testing.T) {
	router := NewRouter(NewHandler(nil, setupRecords(t)), []string{"*"})

	rec := do(t, router, "/api/tracks/2024-06-02_08-00-00.geojson")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var fc track.FeatureCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Geometry.Coordinates != [2]float64{12.3, 45.6} {
		t.Errorf("unexpected collection %+v", fc)
	}
}

func TestGetTrackErrors(t *testing.T) {
	router := NewRouter(NewHandler(nil, setupRecords(t)), []string{"*"})

	tests := []struct {
		path   string
		status int
	}{
		{"/api/tracks/2030-01-01_00-00-00.geojson", http.StatusNotFound},
		{"/api/tracks/notes.txt", http.StatusBadRequest},
		{"/api/tracks/..%2Fsecret.geojson", http.StatusBadRequest},
		{"/api/tracks/broken.geojson", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if rec := do(t, router, tc.path); rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(NewHandler(nil, t.TempDir()), []string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/tracks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

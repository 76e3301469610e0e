package ops

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pavelanni/coursework/internal/journal"
	"github.com/pavelanni/coursework/internal/server"
)

type fakeStats struct{ s server.Stats }

func (f fakeStats) Stats() server.Stats { return f.s }

type fakeLog struct {
	entries   []journal.Entry
	err       error
	lastLimit int
}

func (f *fakeLog) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[:min(limit, len(f.entries))], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthAndStats(t *testing.T) {
	h := New(fakeStats{server.Stats{Accepted: 5, Active: 2, Requests: 11}}, nil, discardLogger()).Router()

	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	rec = get(t, h, "/stats")
	var got server.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if got.Accepted != 5 || got.Active != 2 || got.Requests != 11 {
		t.Errorf("stats = %+v", got)
	}
}

func TestRequests(t *testing.T) {
	rl := &fakeLog{}
	for i := range 3 {
		rl.entries = append(rl.entries, journal.Entry{ID: int64(3 - i), Path: "/api/login", Status: 200, At: time.Now()})
	}
	h := New(fakeStats{}, rl, discardLogger()).Router()

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantLimit  int
		wantCount  int
	}{
		{"default limit", "/requests", 200, defaultLimit, 3},
		{"explicit limit", "/requests?limit=2", 200, 2, 2},
		{"capped limit", "/requests?limit=99999", 200, maxLimit, 3},
		{"bad limit", "/requests?limit=abc", 400, 0, 0},
		{"negative limit", "/requests?limit=-1", 400, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl.lastLimit = 0
			rec := get(t, h, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rl.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", rl.lastLimit, tt.wantLimit)
			}
			if tt.wantStatus != 200 {
				return
			}
			var entries []journal.Entry
			if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(entries) != tt.wantCount {
				t.Errorf("got %d entries, want %d", len(entries), tt.wantCount)
			}
		})
	}
}

func TestRequestsJournalDisabledOrFailing(t *testing.T) {
	h := New(fakeStats{}, nil, discardLogger()).Router()
	if rec := get(t, h, "/requests"); rec.Code != http.StatusNotFound {
		t.Errorf("disabled journal: status = %d, want 404", rec.Code)
	}

	h = New(fakeStats{}, &fakeLog{err: errors.New("disk gone")}, discardLogger()).Router()
	if rec := get(t, h, "/requests"); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing journal: status = %d, want 500", rec.Code)
	}
}

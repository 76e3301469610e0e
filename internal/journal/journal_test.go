package journal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/pavelanni/coursework/internal/model"
	"github.com/pavelanni/coursework/internal/protocol"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	paths := []string{"/api/login", "/api/homeworks", "/api/grade"}
	for i, p := range paths {
		_, err := j.Record(ctx, Entry{
			ConnID: "c1",
			Method: "POST",
			Path:   p,
			Status: 200,
			At:     base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record(%s): %v", p, err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 10, []string{"/api/grade", "/api/homeworks", "/api/login"}},
		{"limited", 2, []string{"/api/grade", "/api/homeworks"}},
		{"zero", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := j.Recent(ctx, tt.limit)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Path != tt.want[i] {
					t.Errorf("entry %d path = %q, want %q", i, e.Path, tt.want[i])
				}
			}
		})
	}

	latest, _ := j.Recent(ctx, 1)
	if !latest[0].At.Equal(base.Add(2 * time.Second)) {
		t.Errorf("At = %v", latest[0].At)
	}
	if n, err := j.Count(ctx); err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestMiddleware(t *testing.T) {
	j := newTestJournal(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := j.Middleware(log)(func(ctx context.Context, req *protocol.Request) protocol.Response {
		return protocol.Error(404, "user not found")
	})
	ctx := model.ContextWithConnID(context.Background(), "conn-7")
	h(ctx, &protocol.Request{Method: "POST", Path: "/api/login", RemoteAddr: "127.0.0.1:5000"})

	entries, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.ConnID != "conn-7" || e.Status != 404 || e.RemoteAddr != "127.0.0.1:5000" || e.Path != "/api/login" {
		t.Errorf("entry = %+v", e)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := j.Record(context.Background(), Entry{Method: "POST", Path: "/api/submit", Status: 200, At: time.Now()}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	j.Close()

	j, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	if n, _ := j.Count(context.Background()); n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}

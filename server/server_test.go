package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abiiranathan/pdfhighlight/cli"
	"github.com/abiiranathan/pdfhighlight/database"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRemoveImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "keep.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := removeImages(dir); got != 2 {
		t.Errorf("removeImages() = %d, want 2", got)
	}
	left, _ := os.ReadDir(dir)
	if len(left) != 1 || left[0].Name() != "keep.txt" {
		t.Errorf("left behind: %v", left)
	}
	if got := removeImages(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("removeImages() on a missing dir = %d", got)
	}
}

func TestCleanUpStopsWithContext(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "page.png"), []byte("x"), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleanUpTemporaryFiles(ctx, dir, 10*time.Millisecond, discard)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(dir, "page.png")); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("image was not cleaned up")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not stop")
	}
}

func TestNewServesReadings(t *testing.T) {
	store, err := database.Connect("file:TestNewServesReadings?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.CreateTables(); err != nil {
		t.Fatal(err)
	}

	config := cli.DefaultConfig
	config.PagesDir = t.TempDir()
	srv := New(&config, store, discard)
	if srv.Addr != ":8080" {
		t.Errorf("Addr = %q", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Errorf("GET /readings = %d %q", rec.Code, rec.Body.String())
	}
}

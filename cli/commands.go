package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/abiiranathan/pdfhighlight/database"
	"github.com/abiiranathan/pdfhighlight/highlight"
	"github.com/abiiranathan/pdfhighlight/pdf"
	"github.com/abiiranathan/pdfhighlight/search"
	"github.com/abiiranathan/pdfhighlight/viewer"
	"golang.org/x/sync/errgroup"
)

// ReadFragments reads the fragments file at path: either a JSON array of
// strings or one fragment per line. Blank lines are skipped.
func ReadFragments(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: read fragments: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var fragments []string
		if err := json.Unmarshal(trimmed, &fragments); err != nil {
			return nil, fmt.Errorf("cli: parse fragments %s: %w", path, err)
		}
		return fragments, nil
	}

	var fragments []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fragments = append(fragments, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cli: read fragments %s: %w", path, err)
	}
	return fragments, nil
}

// LocateFile runs the engine over the PDF at path. When store is not nil
// and the PDF is registered, the records are stored for its reading.
func LocateFile(ctx context.Context, config *Config, store *database.Store, logger *slog.Logger,
	path string, fragments []string) ([]highlight.Record, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	doc, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	opts := config.SessionOptions(logger.With("file", filepath.Base(path)))
	opts.SettleDelay = 0

	if store != nil {
		reading, err := store.GetReadingByPath(ctx, path)
		switch {
		case err == nil:
			opts.Persister = store
			opts.ReadingID = reading.ID
		case errors.Is(err, database.ErrNotFound):
			logger.Info("not registered, records are not stored", "path", path)
		default:
			return nil, err
		}
	}

	return viewer.Locate(ctx, pdf.NewRenderer(doc, pdf.DefaultGap), fragments, opts)
}

// Register walks dir and registers every PDF below it. It returns the
// number of new readings.
func Register(ctx context.Context, store *database.Store, dir string) (int, error) {
	files, err := pdfFiles(dir)
	if err != nil {
		return 0, err
	}
	return store.InsertOneByOne(ctx, files)
}

// LocateDir runs LocateFile over every registered PDF below dir, at most
// config.MaxConcurrency at a time, and returns the records per path.
func LocateDir(ctx context.Context, config *Config, store *database.Store, logger *slog.Logger,
	dir string, fragments []string) (map[string][]highlight.Record, error) {
	files, err := pdfFiles(dir)
	if err != nil {
		return nil, err
	}

	registered := files[:0]
	for _, file := range files {
		_, err := store.GetReadingByPath(ctx, file)
		if errors.Is(err, database.ErrNotFound) {
			logger.Debug("skipping unregistered pdf", "path", file)
			continue
		}
		if err != nil {
			return nil, err
		}
		registered = append(registered, file)
	}

	var (
		mu      sync.Mutex
		results = make(map[string][]highlight.Record, len(registered))
	)

	semaphore := make(chan struct{}, max(config.MaxConcurrency, 1))
	defer close(semaphore)

	g, ctx := errgroup.WithContext(ctx)
	for _, file := range registered {
		// Acquire a slot from the semaphore
		semaphore <- struct{}{}

		g.Go(func() error {
			defer func() {
				// Release the slot back to the semaphore
				<-semaphore
			}()

			records, err := LocateFile(ctx, config, store, logger, file, fragments)
			if err != nil {
				if errors.Is(err, pdf.ErrOpen) {
					logger.Warn("skipping unreadable pdf", "path", file, "error", err)
					return nil
				}
				return err
			}

			mu.Lock()
			results[file] = records
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// pdfFiles returns the absolute paths of the PDFs below dir.
func pdfFiles(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	files, err := search.WalkDir(abs, []string{".pdf"})
	if err != nil {
		return nil, fmt.Errorf("cli: unable to load files at %s: %w", dir, err)
	}
	return files, nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/abiiranathan/pdfhighlight/cli"
	"github.com/abiiranathan/pdfhighlight/database"
	"github.com/abiiranathan/pdfhighlight/logging"
	"github.com/abiiranathan/pdfhighlight/routes"
)

// New builds the HTTP server for config. Page images are written to
// config.PagesDir.
func New(config *cli.Config, store *database.Store, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	routes.SetupRoutes(mux, routes.Config{
		Store:    store,
		PagesDir: config.PagesDir,
		Session:  config.SessionOptions(logging.ForComponent(logger, logging.CompViewer)),
		Logger:   logging.ForComponent(logger, logging.CompHTTP),
	})

	// Create a new http server to customize the timeouts.
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           routes.Logger(logging.ForComponent(logger, logging.CompHTTP))(mux),
		ReadTimeout:       time.Second * 10,
		WriteTimeout:      time.Minute * 2,
		ReadHeaderTimeout: time.Second * 5,
	}
}

func Run(config *cli.Config, store *database.Store, logger *slog.Logger) {
	// Create the pages directory if it does not exist
	// We use this to store the generated images from pdfs.
	err := os.MkdirAll(config.PagesDir, os.ModePerm)
	if err != nil {
		log.Fatalf("unable to create directory: %s: %v\n", config.PagesDir, err)
	}

	server := New(config, store, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Clean up temporary files every minute.
	go cleanUpTemporaryFiles(ctx, config.PagesDir, time.Minute, logger)

	go func() {
		log.Printf("Listening on http://0.0.0.0:%d\n", config.Port)

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server terminated with error: %v\n", err)
		}
	}()

	GracefulShutdown(server)
}

func cleanUpTemporaryFiles(ctx context.Context, dir string, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := removeImages(dir)
			if removed > 0 {
				logger.Debug("Cleaned up generated images", "dir", dir, "removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// removeImages deletes the generated PNGs in dir and returns how many
// were removed.
func removeImages(dir string) int {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, file := range files {
		if file.Type().IsRegular() && strings.HasSuffix(file.Name(), ".png") {
			if os.Remove(filepath.Join(dir, file.Name())) == nil {
				removed++
			}
		}
	}
	return removed
}

// Gracefully shuts down the server. The default timeout is 10 seconds
// To wait for pending connections.
func GracefulShutdown(server *http.Server, timeout ...time.Duration) {
	var t time.Duration
	if len(timeout) > 0 {
		t = timeout[0]
	} else {
		t = 10 * time.Second
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	log.Println("waiting on os.Interrupt")

	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), t)
	defer cancel()

	log.Println("Shutting down the server")
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
	log.Println("shutting down gracefully")
}

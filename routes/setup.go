package routes

import (
	"log/slog"
	"net/http"

	"github.com/abiiranathan/pdfhighlight/database"
	"github.com/abiiranathan/pdfhighlight/pdf"
	"github.com/abiiranathan/pdfhighlight/viewer"
)

// Opener opens the PDF at path for layout. The returned func releases it.
type Opener func(path string) (viewer.Document, func(), error)

// Rasterizer renders the zero-indexed page of a PDF to a PNG file.
type Rasterizer func(pageIndex int, pdfPath, outPng string, scale float64) error

// PopplerOpener opens PDFs with the poppler renderer.
func PopplerOpener(path string) (viewer.Document, func(), error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return pdf.NewRenderer(doc, pdf.DefaultGap), doc.Close, nil
}

// Config wires the handlers to their collaborators.
type Config struct {
	Store     *database.Store
	PagesDir  string // where page images are written
	Open      Opener
	Rasterize Rasterizer
	Session   viewer.Options // options of the sessions run by locate
	Logger    *slog.Logger
}

func SetupRoutes(mux *http.ServeMux, cfg Config) {
	if cfg.Open == nil {
		cfg.Open = PopplerOpener
	}
	if cfg.Rasterize == nil {
		cfg.Rasterize = pdf.RenderPageToImage
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &handlers{Config: cfg}

	mux.HandleFunc("GET /readings", h.listReadings)
	mux.HandleFunc("GET /readings/{id}/highlights", h.getHighlights)
	mux.HandleFunc("PUT /readings/{id}/highlights", h.putHighlights)
	mux.HandleFunc("POST /readings/{id}/locate", h.locate)
	mux.HandleFunc("GET /readings/{id}/pages/{page}/overlays", h.pageOverlays)
	mux.HandleFunc("GET /readings/{id}/pages/{page}", h.pageImage)
}

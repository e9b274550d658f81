package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/abiiranathan/pdfhighlight/database"
	"github.com/abiiranathan/pdfhighlight/highlight"
	"github.com/abiiranathan/pdfhighlight/layer"
	"github.com/abiiranathan/pdfhighlight/viewer"
)

type handlers struct {
	Config
}

type locateRequest struct {
	Fragments []string `json:"fragments"`
	Scale     float64  `json:"scale"`
}

type overlaysResponse struct {
	Page     int                 `json:"page"`
	Scale    float64             `json:"scale"`
	Box      layer.Rect          `json:"box"`
	Overlays []highlight.Element `json:"overlays"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// reading resolves the {id} path value. It writes the error response and
// reports false when there is no such reading.
func (h *handlers) reading(w http.ResponseWriter, r *http.Request) (database.Reading, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reading id")
		return database.Reading{}, false
	}

	reading, err := h.Store.GetReading(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("reading %d not found", id))
		return database.Reading{}, false
	}
	if err != nil {
		h.Logger.Error("get reading", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to load reading")
		return database.Reading{}, false
	}
	return reading, true
}

func (h *handlers) scale(r *http.Request) (float64, error) {
	q := r.URL.Query().Get("scale")
	if q == "" {
		if h.Session.Scale > 0 {
			return h.Session.Scale, nil
		}
		return 1, nil
	}
	s, err := strconv.ParseFloat(q, 64)
	if err != nil || s <= 0 {
		return 0, fmt.Errorf("invalid scale %q", q)
	}
	return s, nil
}

func (h *handlers) pageNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "Invalid page number")
		return 0, false
	}
	return page, true
}

func (h *handlers) listReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := h.Store.GetReadings(r.Context())
	if err != nil {
		h.Logger.Error("list readings", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to list readings")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (h *handlers) getHighlights(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.reading(w, r)
	if !ok {
		return
	}

	records, err := h.Store.LoadHighlights(r.Context(), reading.ID)
	if err != nil {
		h.Logger.Error("load highlights", "reading", reading.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to load highlights")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) putHighlights(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.reading(w, r)
	if !ok {
		return
	}

	var records []highlight.Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("record %d: %v", i, err))
			return
		}
	}

	if err := h.Store.SaveHighlights(r.Context(), reading.ID, records); err != nil {
		h.Logger.Error("save highlights", "reading", reading.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to save highlights")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) locate(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.reading(w, r)
	if !ok {
		return
	}

	var req locateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Fragments) == 0 {
		writeError(w, http.StatusBadRequest, "fragments are required")
		return
	}

	doc, release, err := h.Open(reading.Path)
	if err != nil {
		h.Logger.Error("open reading", "path", reading.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to open reading")
		return
	}
	defer release()

	opts := h.Session
	opts.Logger = h.Logger
	opts.ReadingID = reading.ID
	opts.Persister = nil
	if req.Scale > 0 {
		opts.Scale = req.Scale
	}

	records, err := viewer.Locate(r.Context(), doc, req.Fragments, opts)
	if err != nil {
		h.Logger.Error("locate", "reading", reading.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to locate fragments")
		return
	}
	if records == nil {
		records = []highlight.Record{}
	}

	if err := h.Store.SaveHighlights(r.Context(), reading.ID, records); err != nil {
		h.Logger.Error("save highlights", "reading", reading.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to save highlights")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) pageOverlays(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.reading(w, r)
	if !ok {
		return
	}
	page, ok := h.pageNumber(w, r)
	if !ok {
		return
	}
	scale, err := h.scale(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.Store.LoadHighlights(r.Context(), reading.ID)
	if err != nil {
		h.Logger.Error("load highlights", "reading", reading.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to load highlights")
		return
	}

	doc, release, err := h.Open(reading.Path)
	if err != nil {
		h.Logger.Error("open reading", "path", reading.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to open reading")
		return
	}
	defer release()

	if page > doc.NumPages() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("page %d out of range", page))
		return
	}

	box, elements, err := viewer.PageOverlays(r.Context(), doc, page, scale, records)
	if err != nil {
		h.Logger.Error("page overlays", "reading", reading.ID, "page", page, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to lay out page")
		return
	}
	writeJSON(w, http.StatusOK, overlaysResponse{Page: page, Scale: scale, Box: box, Overlays: elements})
}

func (h *handlers) pageImage(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.reading(w, r)
	if !ok {
		return
	}
	page, ok := h.pageNumber(w, r)
	if !ok {
		return
	}
	scale, err := h.scale(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Uses a temporary file in PagesDir; the server removes them periodically.
	tempfile, err := os.CreateTemp(h.PagesDir, "*.png")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to create temp file")
		return
	}
	tempfile.Close()

	// Open document, render image in one single cgo call.
	if err := h.Rasterize(page-1, reading.Path, tempfile.Name(), scale); err != nil {
		h.Logger.Warn("render page", "reading", reading.ID, "page", page, "error", err)
		writeError(w, http.StatusNotFound, "Unable to render the page")
		return
	}

	w.Header().Set("Cache-Control", "max-age=3600")
	http.ServeFile(w, r, tempfile.Name())
}

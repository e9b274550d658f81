package pdf

/*
#cgo pkg-config: glib-2.0 gio-2.0 cairo poppler-glib
#cgo LDFLAGS: -pthread

#include <cairo/cairo.h>
#include <locale.h>
#include <poppler/glib/poppler.h>
#include <stdio.h>
#include <stdlib.h>
#include <stdbool.h>

static pthread_mutex_t cairo_mutex = PTHREAD_MUTEX_INITIALIZER;

PopplerDocument *open_document(const char *filename, int *num_pages){
	GFile* file = g_file_new_for_path(filename);
	if(file == NULL){
		return NULL;
	}

	GError* error = NULL;
	GBytes* bytes = g_file_load_bytes(file, NULL, NULL, &error);
	g_object_unref(file);

	if (error != NULL) {
		g_print("Error loading PDF file: %s\n", error->message);
		g_clear_error(&error);
		return NULL;
	}

	PopplerDocument *doc = poppler_document_new_from_bytes(bytes, NULL, &error);
	if (error) {
		g_print("Error creating PDF document: %s\n", error->message);
		g_clear_error(&error);
		g_bytes_unref(bytes);
		return NULL;
	}

	*num_pages = poppler_document_get_n_pages(doc);
	g_bytes_unref(bytes);
	return doc;
}

// Renders page at scale times its size in points and writes a PNG.
bool render_page_to_image(PopplerPage *page, double scale, const char* output_file) {
	double width, height;
	poppler_page_get_size(page, &width, &height);

	int pixel_width = (int)(width * scale);
	int pixel_height = (int)(height * scale);

	pthread_mutex_lock(&cairo_mutex);

	cairo_surface_t* surface =
		cairo_image_surface_create(CAIRO_FORMAT_ARGB32, pixel_width, pixel_height);
	if (cairo_surface_status(surface) != CAIRO_STATUS_SUCCESS) {
		pthread_mutex_unlock(&cairo_mutex);
		puts("Unable to create cairo surface");
		return false;
	}

	cairo_t* cr = cairo_create(surface);
	if (cairo_status(cr) != CAIRO_STATUS_SUCCESS) {
		cairo_surface_destroy(surface);
		pthread_mutex_unlock(&cairo_mutex);
		puts("Error: could not create cairo context");
		return false;
	}

	cairo_set_source_rgb(cr, 1.0, 1.0, 1.0);
	cairo_paint(cr);
	cairo_scale(cr, scale, scale);
	poppler_page_render(page, cr);

	pthread_mutex_unlock(&cairo_mutex);

	cairo_status_t status = cairo_surface_write_to_png(surface, output_file);
	cairo_destroy(cr);
	cairo_surface_destroy(surface);
	return status == CAIRO_STATUS_SUCCESS;
}

// Render a single page from a document. Avoids multiple cgo calls
bool render_page_from_document(const char *pdf_path, int page_num, double scale, const char* output_png){
	int num_pages=0;
	PopplerDocument *doc = open_document(pdf_path, &num_pages);
	if(doc == NULL){
		puts("Error opening document");
		return false;
	}

	if (page_num < 0 || page_num >= num_pages){
		puts("Page number is out of range of this document");
		g_object_unref(doc);
		return false;
	}

	PopplerPage *page = poppler_document_get_page(doc, page_num);
	if(page == NULL){
		printf("PopplerPage for page %d is NULL\n", page_num);
		g_object_unref(doc);
		return false;
	}

	bool ok = render_page_to_image(page, scale, output_png);
	g_object_unref(page);
	g_object_unref(doc);
	return ok;
}

// Fills text and one rectangle per character of text. Both must be
// released with g_free.
bool page_text_layout(PopplerPage *page, char **text, PopplerRectangle **rects, guint *n_rects){
	*text = poppler_page_get_text(page);
	if (*text == NULL) {
		return false;
	}
	if (!poppler_page_get_text_layout(page, rects, n_rects)) {
		g_free(*text);
		*text = NULL;
		return false;
	}
	return true;
}
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/abiiranathan/pdfhighlight/layer"
)

var (
	ErrOpen   = errors.New("pdf: unable to open document")
	ErrRender = errors.New("pdf: unable to render page")
	ErrPage   = errors.New("pdf: page out of range")
)

type Document struct {
	doc      *C.PopplerDocument
	Path     string
	NumPages int
}

func SetLocale() {
	locale := C.CString("")
	defer C.free(unsafe.Pointer(locale))
	C.setlocale(C.LC_ALL, locale)
}

// Open loads the PDF at path.
func Open(path string) (*Document, error) {
	var c_path *C.char = C.CString(path)
	defer C.free(unsafe.Pointer(c_path))

	var num_pages C.int
	doc := C.open_document(c_path, &num_pages)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrOpen, path)
	}
	return &Document{doc: doc, NumPages: int(num_pages), Path: path}, nil
}

func (pdf *Document) Close() {
	if pdf.doc != nil {
		C.g_object_unref(C.gpointer(pdf.doc))
		pdf.doc = nil
	}
}

type Page struct {
	page *C.PopplerPage

	doc     *Document
	PageNum int // zero-indexed

	Width  float64 // points
	Height float64 // points
}

// GetPage returns the zero-indexed page, or nil when page is out of range.
func (pdf *Document) GetPage(page int) *Page {
	if page < 0 || page >= pdf.NumPages {
		return nil
	}

	p_page := &Page{
		doc:     pdf,
		page:    C.poppler_document_get_page(pdf.doc, C.int(page)),
		PageNum: page,
	}
	if p_page.page == nil {
		return nil
	}

	var width, height C.double
	C.poppler_page_get_size(p_page.page, &width, &height)
	p_page.Width = float64(width)
	p_page.Height = float64(height)

	return p_page
}

func (page *Page) Close() {
	if page.page != nil {
		C.g_object_unref(C.gpointer(page.page))
		page.page = nil
	}
}

// Render writes the page as a PNG at scale pixels per point.
func (page *Page) Render(output string, scale float64) error {
	c_output := C.CString(output)
	defer C.free(unsafe.Pointer(c_output))

	if !bool(C.render_page_to_image(page.page, C.double(scale), c_output)) {
		return fmt.Errorf("%w: page %d of %s", ErrRender, page.PageNum+1, page.doc.Path)
	}
	return nil
}

// Render a pdf page to a PNG image in a single cgo call.
// Faster that opening the document, getting a page and calling page.Render().
func RenderPageToImage(pageNum int, pdfPath, outPng string, scale float64) error {
	c_output := C.CString(outPng)
	defer C.free(unsafe.Pointer(c_output))

	var c_path *C.char = C.CString(pdfPath)
	defer C.free(unsafe.Pointer(c_path))

	if !bool(C.render_page_from_document(c_path, C.int(pageNum), C.double(scale), c_output)) {
		return fmt.Errorf("%w: page %d of %s", ErrRender, pageNum+1, pdfPath)
	}
	return nil
}

// TextLayout returns the page text and the box of each of its runes in
// points, measured from the page's top left corner.
func (page *Page) TextLayout() (string, []layer.Rect) {
	var (
		g_text  *C.char
		g_rects *C.PopplerRectangle
		n_rects C.guint
	)
	if !bool(C.page_text_layout(page.page, &g_text, &g_rects, &n_rects)) {
		return "", nil
	}
	defer C.g_free(C.gpointer(g_text))
	defer C.g_free(C.gpointer(g_rects))

	text := C.GoString(g_text)
	rects := make([]layer.Rect, 0, int(n_rects))
	for _, r := range unsafe.Slice(g_rects, int(n_rects)) {
		rects = append(rects, layer.Rect{
			Left:   float64(r.x1),
			Top:    float64(r.y1),
			Width:  float64(r.x2 - r.x1),
			Height: float64(r.y2 - r.y1),
		})
	}
	return text, rects
}

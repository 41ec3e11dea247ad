package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"showcase/internal/logger"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Handler serves the catalog pages and JSON API.
type Handler struct {
	ctrl   *Controller
	render *Renderer
	pages  *template.Template
}

// NewHandler parses the embedded page templates.
func NewHandler(ctrl *Controller, render *Renderer) (*Handler, error) {
	pages, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{ctrl: ctrl, render: render, pages: pages}, nil
}

type pageData struct {
	State       string
	Error       string
	Banner      *Banner
	Term        string
	FocusSearch bool
	Summary     Summary
	Cards       []CardView
	Detail      *DetailView
}

func (h *Handler) basePage(snap Snapshot) pageData {
	d := pageData{State: snap.State.String(), Banner: snap.Banner}
	if snap.Err != nil {
		d.Error = snap.Err.Error()
	}
	return d
}

// Index handles GET / (?q= search, ?clear=1 resets and focuses the input).
// Each request filters the loaded set on its own; the shared search term
// is left alone.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	d := h.basePage(snap)

	q := r.URL.Query()
	if q.Get("clear") == "" {
		d.Term = q.Get("q")
	} else {
		d.FocusSearch = true
	}
	filtered := Filter(snap.Products, d.Term)
	d.Cards = h.render.Cards(filtered)
	d.Summary = Summarize(len(filtered), len(snap.Products), d.Term)

	h.page(w, "index.html", d)
}

// Detail handles GET /products/{id} (?image=n selects a gallery image).
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	p, status := h.lookup(r)
	if p == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	image, _ := strconv.Atoi(r.URL.Query().Get("image"))
	view := h.render.Detail(*p, image)

	d := h.basePage(h.ctrl.Snapshot())
	d.Detail = &view
	h.page(w, "detail.html", d)
}

func (h *Handler) page(w http.ResponseWriter, name string, d pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.ExecuteTemplate(w, name, d); err != nil {
		logger.Errorf("render %s: %v", name, err)
	}
}

// ProductListResponse is the body of GET /api/products.
type ProductListResponse struct {
	State    string        `json:"state"`
	Source   Source        `json:"source,omitempty"`
	Products []ProductJSON `json:"products"`
	Summary  Summary       `json:"summary"`
	Banner   *Banner       `json:"banner,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// ListProducts handles GET /api/products (?q= search).
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	term := r.URL.Query().Get("q")
	filtered := Filter(snap.Products, term)

	resp := ProductListResponse{
		State:    snap.State.String(),
		Source:   snap.Source,
		Products: h.render.JSONList(filtered),
		Summary:  Summarize(len(filtered), len(snap.Products), term),
		Banner:   snap.Banner,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct handles GET /api/products/{id} (?image=n selects a gallery image).
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, status := h.lookup(r)
	if p == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	image, _ := strconv.Atoi(r.URL.Query().Get("image"))
	writeJSON(w, http.StatusOK, h.render.DetailJSON(*p, image))
}

func (h *Handler) lookup(r *http.Request) (*Product, int) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return nil, http.StatusNotFound
	}
	p, err := h.ctrl.Lookup(r.Context(), id)
	if err != nil {
		logger.Errorf("GetProduct %d: %v", id, err)
		return nil, http.StatusBadGateway
	}
	if p == nil {
		return nil, http.StatusNotFound
	}
	return p, http.StatusOK
}

// StatusResponse is the body of GET /api/status and POST /api/reload.
type StatusResponse struct {
	State      string     `json:"state"`
	Refreshing bool       `json:"refreshing"`
	Source     Source     `json:"source,omitempty"`
	Total      int        `json:"total"`
	LoadedAt   *time.Time `json:"loadedAt,omitempty"`
	Banner     *Banner    `json:"banner,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func statusOf(snap Snapshot) StatusResponse {
	s := StatusResponse{
		State:      snap.State.String(),
		Refreshing: snap.Refreshing,
		Source:     snap.Source,
		Total:      len(snap.Products),
		Banner:     snap.Banner,
	}
	if !snap.LoadedAt.IsZero() {
		t := snap.LoadedAt
		s.LoadedAt = &t
	}
	if snap.Err != nil {
		s.Error = snap.Err.Error()
	}
	return s
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusOf(h.ctrl.Snapshot()))
}

// Reload handles POST /api/reload. It supersedes any load in flight.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.Reload(r.Context())
	status := http.StatusOK
	var loadErr *LoadError
	switch {
	case err == nil:
	case errors.As(err, &loadErr):
		status = http.StatusBadGateway
	case IsTransient(err):
		status = http.StatusConflict
	default:
		logger.Errorf("Reload: %v", err)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, statusOf(h.ctrl.Snapshot()))
}

// Ready reports 200 once a catalog has been loaded from either source.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if h.ctrl.State() != StateLoaded {
		http.Error(w, "catalog not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("encode response: %v", err)
	}
}

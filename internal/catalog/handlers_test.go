package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, api ProductSource, fb FallbackSource) (*mux.Router, *Controller) {
	t.Helper()
	ctrl := newController(api, fb, nil)
	t.Cleanup(ctrl.Close)

	h, err := NewHandler(ctrl, testRenderer())
	require.NoError(t, err)

	r := mux.NewRouter()
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.Detail).Methods(http.MethodGet)
	r.HandleFunc("/api/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/{id}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/api/status", h.Status).Methods(http.MethodGet)
	r.HandleFunc("/api/reload", h.Reload).Methods(http.MethodPost)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	return r, ctrl
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func mugAPI() *fakeAPI {
	red := product(1, "Red Mug", 2)
	red.Gallery = []string{"https://cdn.test/red-1.jpg", "https://cdn.test/red-2.jpg"}
	return &fakeAPI{online: true, products: []Product{red, product(2, "Blue Mug", 1)}}
}

func TestHandler_ReadyBeforeAndAfterLoad(t *testing.T) {
	r, ctrl := newTestRouter(t, mugAPI(), &fakeFallback{})

	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/ready").Code)
	require.NoError(t, ctrl.Load(context.Background()))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready").Code)
}

func TestHandler_ListProducts(t *testing.T) {
	r, ctrl := newTestRouter(t, mugAPI(), &fakeFallback{})
	require.NoError(t, ctrl.Load(context.Background()))

	rec := serve(r, http.MethodGet, "/api/products")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProductListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "loaded", resp.State)
	assert.Equal(t, SourceAPI, resp.Source)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "Blue Mug", resp.Products[0].Title)
	assert.Equal(t, "Red Mug", resp.Products[1].Title)
	assert.True(t, resp.Products[1].ShowBadge)

	rec = serve(r, http.MethodGet, "/api/products?q=green")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Products)
	assert.True(t, resp.Summary.NoResults)

	// per-request search leaves the controller's term alone
	assert.Equal(t, "", ctrl.Snapshot().Term)
}

func TestHandler_GetProduct(t *testing.T) {
	r, ctrl := newTestRouter(t, mugAPI(), &fakeFallback{})
	require.NoError(t, ctrl.Load(context.Background()))

	rec := serve(r, http.MethodGet, "/api/products/1?image=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var d DetailJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "https://cdn.test/red-2.jpg", d.MainImage)
	assert.Equal(t, 1, d.Active)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/products/99").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/products/abc").Code)
}

func TestHandler_IndexPage(t *testing.T) {
	r, ctrl := newTestRouter(t, mugAPI(), &fakeFallback{})

	rec := serve(r, http.MethodGet, "/")
	assert.Contains(t, rec.Body.String(), `id="loading"`)

	require.NoError(t, ctrl.Load(context.Background()))
	rec = serve(r, http.MethodGet, "/?q=red")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Red Mug")
	assert.NotContains(t, body, "Blue Mug")
	assert.Contains(t, body, "1 of 2 products")
	assert.Contains(t, body, `id="search-clear"`)

	rec = serve(r, http.MethodGet, "/?q=green")
	assert.Contains(t, rec.Body.String(), `id="no-results"`)

	rec = serve(r, http.MethodGet, "/?q=red&clear=1")
	body = rec.Body.String()
	assert.Contains(t, body, "autofocus")
	assert.Contains(t, body, "Blue Mug")
}

func TestHandler_IndexEscapesUntrustedText(t *testing.T) {
	evil := product(1, `<img src=x onerror=alert(1)>`, 0)
	r, ctrl := newTestRouter(t, &fakeAPI{online: true, products: []Product{evil}}, &fakeFallback{})
	require.NoError(t, ctrl.Load(context.Background()))

	body := serve(r, http.MethodGet, "/").Body.String()
	assert.NotContains(t, body, "<img src=x")
	assert.Contains(t, body, "&lt;img src=x onerror=alert(1)&gt;")
}

func TestHandler_JSONCarriesPlainText(t *testing.T) {
	p := product(1, "Tom & Jerry <mug>", 0)
	p.Subtitle = `"classic"`
	r, ctrl := newTestRouter(t, &fakeAPI{online: true, products: []Product{p}}, &fakeFallback{})
	require.NoError(t, ctrl.Load(context.Background()))

	var list ProductListResponse
	require.NoError(t, json.Unmarshal(serve(r, http.MethodGet, "/api/products").Body.Bytes(), &list))
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Tom & Jerry <mug>", list.Products[0].Title)
	assert.Equal(t, `"classic"`, list.Products[0].Subtitle)

	var d DetailJSON
	require.NoError(t, json.Unmarshal(serve(r, http.MethodGet, "/api/products/1").Body.Bytes(), &d))
	assert.Equal(t, "Tom & Jerry <mug>", d.Title)
	assert.Equal(t, "Tom & Jerry <mug> description", d.Description)

	// the page still escapes it
	assert.Contains(t, serve(r, http.MethodGet, "/").Body.String(), "Tom &amp; Jerry &lt;mug&gt;")
}

func TestHandler_RefreshKeepsServingLoadedCatalog(t *testing.T) {
	api := mugAPI()
	r, ctrl := newTestRouter(t, api, &fakeFallback{})
	require.NoError(t, ctrl.Load(context.Background()))

	api.mu.Lock()
	api.block = make(chan struct{})
	block := api.block
	api.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- ctrl.Load(context.Background()) }()
	require.Eventually(t, func() bool { return api.calls() == 2 }, time.Second, time.Millisecond)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready").Code)
	body := serve(r, http.MethodGet, "/").Body.String()
	assert.Contains(t, body, `id="product-grid"`)
	assert.NotContains(t, body, `id="loading"`)

	var st StatusResponse
	require.NoError(t, json.Unmarshal(serve(r, http.MethodGet, "/api/status").Body.Bytes(), &st))
	assert.Equal(t, "loaded", st.State)
	assert.True(t, st.Refreshing)
	assert.ErrorIs(t, ctrl.Load(context.Background()), ErrLoadInProgress)

	close(block)
	require.NoError(t, <-done)
	require.NoError(t, json.Unmarshal(serve(r, http.MethodGet, "/api/status").Body.Bytes(), &st))
	assert.False(t, st.Refreshing)
	assert.Equal(t, 2, st.Total)
}

func TestHandler_ErrorPanel(t *testing.T) {
	r, ctrl := newTestRouter(t, &fakeAPI{online: false}, &fakeFallback{err: &ValidationError{Index: -1, Field: "products", Reason: "must be an array"}})
	require.Error(t, ctrl.Load(context.Background()))

	body := serve(r, http.MethodGet, "/").Body.String()
	assert.Contains(t, body, `id="error"`)
	assert.Contains(t, body, "fallback also failed")
}

func TestHandler_DetailPage(t *testing.T) {
	r, ctrl := newTestRouter(t, mugAPI(), &fakeFallback{})
	require.NoError(t, ctrl.Load(context.Background()))

	rec := serve(r, http.MethodGet, "/products/1?image=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="modal-main-image" src="https://cdn.test/red-2.jpg"`)
	assert.Contains(t, body, `class="active"`)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/products/42").Code)
}

func TestHandler_ReloadAndStatus(t *testing.T) {
	r, _ := newTestRouter(t, mugAPI(), &fakeFallback{})

	rec := serve(r, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	var st StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "loaded", st.State)
	assert.Equal(t, 2, st.Total)
	assert.NotNil(t, st.LoadedAt)

	rec = serve(r, http.MethodGet, "/api/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, SourceAPI, st.Source)
}

func TestHandler_ReloadFailure(t *testing.T) {
	r, _ := newTestRouter(t, &fakeAPI{online: false}, &fakeFallback{err: assert.AnError})

	rec := serve(r, http.MethodPost, "/api/reload")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var st StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "error", st.State)
	assert.Contains(t, st.Error, ErrConnectivity.Error())
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"showcase/internal/clock"
	"showcase/internal/logger"
)

// ProductSource is the primary, remote data source.
type ProductSource interface {
	TestConnection(ctx context.Context) bool
	FetchProducts(ctx context.Context, filters url.Values) ([]Product, error)
}

// ProductLookup is implemented by sources that can read a single record.
type ProductLookup interface {
	FetchProductByID(ctx context.Context, id int64) (*Product, error)
}

// FallbackSource is the static secondary data source.
type FallbackSource interface {
	Load(ctx context.Context) ([]Product, error)
}

// ControllerOptions tunes a Controller. Zero values take the defaults.
type ControllerOptions struct {
	Clock          clock.Clock
	BannerTTL      time.Duration
	SearchDebounce time.Duration
	// Filters are passed to every FetchProducts call.
	Filters url.Values
}

// Controller owns the catalog state: the full and filtered product lists,
// the current search term and the load state machine. It is safe for
// concurrent use.
type Controller struct {
	api       ProductSource
	fallback  FallbackSource
	clk       clock.Clock
	bannerTTL time.Duration
	filters   url.Values
	debounce  *Debouncer

	mu          sync.Mutex
	state       State
	loading     bool
	gen         uint64
	cancel      context.CancelFunc
	products    []Product
	filtered    []Product
	term        string
	focusSearch bool
	source      Source
	banner      *Banner
	lastErr     error
	loadedAt    time.Time
}

func NewController(api ProductSource, fallback FallbackSource, opts ControllerOptions) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.BannerTTL <= 0 {
		opts.BannerTTL = 10 * time.Second
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = 300 * time.Millisecond
	}
	return &Controller{
		api:       api,
		fallback:  fallback,
		clk:       opts.Clock,
		bannerTTL: opts.BannerTTL,
		filters:   opts.Filters,
		debounce:  NewDebouncer(opts.SearchDebounce),
		products:  []Product{},
		filtered:  []Product{},
	}
}

// Load runs one load. While another load is in flight it returns
// ErrLoadInProgress without side effects. A catalog that is already loaded
// keeps serving, in StateLoaded, until the new load finishes.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		logger.Debugf("Load: ignored, load in progress")
		return ErrLoadInProgress
	}
	ctx, gen := c.begin(ctx)
	c.mu.Unlock()
	return c.run(ctx, gen)
}

// Reload cancels any in-flight load and starts a new one. The cancelled
// load's outcome is discarded.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, gen := c.begin(ctx)
	c.mu.Unlock()
	return c.run(ctx, gen)
}

// begin marks a load in flight under c.mu and issues a new generation.
// Only a controller without a loaded catalog enters StateLoading.
func (c *Controller) begin(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)
	c.gen++
	c.cancel = cancel
	c.loading = true
	if c.state != StateLoaded {
		c.state = StateLoading
		c.lastErr = nil
		c.banner = nil
	}
	return ctx, c.gen
}

func (c *Controller) run(ctx context.Context, gen uint64) error {
	defer func() {
		c.mu.Lock()
		if c.gen == gen && c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	products, primaryErr := c.loadPrimary(ctx)
	if primaryErr == nil {
		return c.finish(gen, products, SourceAPI, nil, nil)
	}
	logger.Warnf("catalog api load failed, trying fallback: %v", primaryErr)

	products, fbErr := c.fallback.Load(ctx)
	if fbErr != nil {
		loadErr := &LoadError{Primary: primaryErr, Fallback: fbErr}
		logger.Errorf("Load: %v", loadErr)
		return c.finish(gen, nil, SourceNone, nil, loadErr)
	}

	banner := &Banner{
		Message: "Showing the offline catalog; live products are unavailable.",
		Reason:  primaryErr.Error(),
		Expires: c.clk.Now().Add(c.bannerTTL),
	}
	return c.finish(gen, products, SourceFallback, banner, nil)
}

// loadPrimary checks connectivity, then fetches. Any error it returns
// sends the load to the fallback.
func (c *Controller) loadPrimary(ctx context.Context) ([]Product, error) {
	if c.api == nil {
		return nil, ErrConnectivity
	}
	if !c.api.TestConnection(ctx) {
		return nil, ErrConnectivity
	}
	products, err := c.api.FetchProducts(ctx, c.filters)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	valid := Displayable(products)
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: none of %d records is displayable", ErrNoProducts, len(products))
	}
	return valid, nil
}

func (c *Controller) finish(gen uint64, products []Product, src Source, banner *Banner, loadErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		logger.Debugf("Load: discarding result of superseded load %d", gen)
		return ErrLoadSuperseded
	}
	c.loading = false
	if loadErr != nil {
		c.state = StateError
		c.lastErr = loadErr
		return loadErr
	}

	sorted := make([]Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	c.products = sorted
	c.filtered = Filter(sorted, c.term)
	c.source = src
	c.banner = banner
	c.state = StateLoaded
	c.loadedAt = c.clk.Now()
	logger.Infof("catalog loaded from %s: %d products", src, len(sorted))
	return nil
}

// Search stores term and re-derives the filtered list from the full one.
func (c *Controller) Search(term string) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term = term
	c.focusSearch = false
	c.filtered = Filter(c.products, term)
	return c.summaryLocked()
}

// SearchDebounced is Search after the debounce delay. Only the last call in
// a burst runs; done, if set, receives its summary.
func (c *Controller) SearchDebounced(term string, done func(Summary)) {
	c.debounce.Trigger(func() {
		s := c.Search(term)
		if done != nil {
			done(s)
		}
	})
}

// Clear resets the search, restores the full list and asks the view to
// focus the search input.
func (c *Controller) Clear() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term = ""
	c.focusSearch = true
	c.filtered = Filter(c.products, "")
	return c.summaryLocked()
}

// DismissBanner hides the fallback banner before it expires.
func (c *Controller) DismissBanner() {
	c.mu.Lock()
	c.banner = nil
	c.mu.Unlock()
}

// Lookup finds a loaded product by id. Products missing from the loaded set
// are read from the API when it supports single-record reads.
func (c *Controller) Lookup(ctx context.Context, id int64) (*Product, error) {
	c.mu.Lock()
	for _, p := range c.products {
		if p.ID == id {
			c.mu.Unlock()
			return &p, nil
		}
	}
	src := c.source
	c.mu.Unlock()

	lookup, ok := c.api.(ProductLookup)
	if !ok || src != SourceAPI {
		return nil, nil
	}
	p, err := lookup.FetchProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p != nil && !p.Displayable() {
		return nil, nil
	}
	return p, nil
}

// Close stops pending debounced searches.
func (c *Controller) Close() {
	c.debounce.Stop()
}

// Snapshot is a consistent copy of the controller state. Refreshing is set
// while a load runs behind an already loaded catalog.
type Snapshot struct {
	State       State
	Refreshing  bool
	Source      Source
	Products    []Product
	Filtered    []Product
	Term        string
	FocusSearch bool
	Banner      *Banner
	Err         error
	LoadedAt    time.Time
	Summary     Summary
}

// Snapshot copies the current state. An expired banner is omitted.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:       c.state,
		Refreshing:  c.loading && c.state == StateLoaded,
		Source:      c.source,
		Products:    append([]Product(nil), c.products...),
		Filtered:    append([]Product(nil), c.filtered...),
		Term:        c.term,
		FocusSearch: c.focusSearch,
		Err:         c.lastErr,
		LoadedAt:    c.loadedAt,
		Summary:     c.summaryLocked(),
	}
	if c.banner.ActiveAt(c.clk.Now()) {
		b := *c.banner
		s.Banner = &b
	}
	return s
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) summaryLocked() Summary {
	return Summarize(len(c.filtered), len(c.products), c.term)
}

// IsTransient reports whether err came from a load that did not finish on
// its own: an ignored re-entrant call, a superseded or a cancelled load.
func IsTransient(err error) bool {
	return errors.Is(err, ErrLoadInProgress) || errors.Is(err, ErrLoadSuperseded) || errors.Is(err, context.Canceled)
}

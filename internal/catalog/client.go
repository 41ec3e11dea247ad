package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"showcase/internal/auth"
	"showcase/internal/logger"
)

const (
	// pageSize is the rows endpoint's maximum page size.
	pageSize = 200
	// maxPages bounds how many "next" links a fetch follows.
	maxPages = 20
	// maxBody caps a single response body read.
	maxBody = 8 << 20
)

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string
	TableID    int
	Token      string
	Fields     FieldMap
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client reads products from a tabular rows API.
type Client struct {
	rowsURL string
	cred    auth.Credential
	fields  FieldMap
	http    *http.Client
}

// NewClient validates the options and builds a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", opts.BaseURL)
	}
	if opts.TableID <= 0 {
		return nil, fmt.Errorf("api table id must be positive, got %d", opts.TableID)
	}
	cred, err := auth.ParseCredential(opts.Token)
	if err != nil {
		return nil, err
	}
	if cred.Expired(time.Now()) {
		logger.Warnf("api credential expired at %s", cred.Expires.Format(time.RFC3339))
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	fields := opts.Fields
	if fields == (FieldMap{}) {
		fields = DefaultFields()
	}

	return &Client{
		rowsURL: fmt.Sprintf("%s/api/database/rows/table/%d/", base.String(), opts.TableID),
		cred:    cred,
		fields:  fields,
		http:    hc,
	}, nil
}

// TestConnection performs a one-row read. It never returns an error: any
// transport or HTTP failure is reported as false.
func (c *Client) TestConnection(ctx context.Context) bool {
	q := url.Values{}
	q.Set("user_field_names", "true")
	q.Set("size", "1")

	_, status, err := c.get(ctx, c.rowsURL+"?"+q.Encode())
	if err != nil {
		logger.Warnf("TestConnection: %v", err)
		return false
	}
	if status < 200 || status > 299 {
		logger.Warnf("TestConnection: http %d", status)
		return false
	}
	return true
}

// FetchProducts reads every public row, following pagination, and returns
// the records that transform into valid products. filters are added to the
// query as given (e.g. "filter__category__equal").
func (c *Client) FetchProducts(ctx context.Context, filters url.Values) ([]Product, error) {
	const op = "fetch products"

	q := url.Values{}
	q.Set("user_field_names", "true")
	q.Set("size", strconv.Itoa(pageSize))
	q.Set("filter__"+c.fields.Public+"__boolean", "true")
	for k, vs := range filters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	products := []Product{}
	next := c.rowsURL + "?" + q.Encode()
	for page := 0; next != "" && page < maxPages; page++ {
		body, status, err := c.get(ctx, next)
		if err != nil {
			return nil, &DataFetchError{Op: op, Err: err}
		}
		if status < 200 || status > 299 {
			return nil, &DataFetchError{Op: op, Status: status}
		}
		if !gjson.ValidBytes(body) {
			return nil, &DataFetchError{Op: op, Status: status, Err: fmt.Errorf("response is not valid JSON")}
		}

		env := gjson.ParseBytes(body)
		results := env.Get("results")
		if !results.IsArray() {
			return nil, &DataFetchError{Op: op, Status: status, Err: fmt.Errorf("envelope has no results array")}
		}

		batch, errs := TransformAll(results, c.fields)
		for _, e := range errs {
			logger.Warnf("FetchProducts: skipping %v", e)
		}
		products = append(products, batch...)
		if next, err = c.nextPage(env.Get("next").String()); err != nil {
			return nil, &DataFetchError{Op: op, Status: status, Err: err}
		}
	}
	if next != "" {
		logger.Warnf("FetchProducts: stopped after %d pages", maxPages)
	}
	return products, nil
}

// FetchProductByID reads a single row. A missing or non-public row yields
// (nil, nil); other failures are returned.
func (c *Client) FetchProductByID(ctx context.Context, id int64) (*Product, error) {
	const op = "fetch product"

	u := fmt.Sprintf("%s%d/?user_field_names=true", c.rowsURL, id)
	body, status, err := c.get(ctx, u)
	if err != nil {
		return nil, &DataFetchError{Op: op, Err: err}
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status > 299 {
		return nil, &DataFetchError{Op: op, Status: status}
	}
	if !gjson.ValidBytes(body) {
		return nil, &DataFetchError{Op: op, Status: status, Err: fmt.Errorf("response is not valid JSON")}
	}

	p, err := Transform(gjson.ParseBytes(body), c.fields)
	if err != nil {
		logger.Debugf("FetchProductByID %d: %v", id, err)
		return nil, nil
	}
	return p, nil
}

// nextPage resolves a pagination link against the rows endpoint. Links to
// another scheme or host are refused so the credential never leaves it.
func (c *Client) nextPage(link string) (string, error) {
	if link == "" {
		return "", nil
	}
	base, err := url.Parse(c.rowsURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid next page link: %w", err)
	}
	u := base.ResolveReference(ref)
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return "", fmt.Errorf("next page link %q leaves %s://%s", link, base.Scheme, base.Host)
	}
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", c.cred.Header())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

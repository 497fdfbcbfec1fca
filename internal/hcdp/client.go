// Package hcdp is a client for the Hawaiʻi Climate Data Portal mesonet API.
//
// Every collection is queried through the same /stations endpoint with a
// JSON-encoded filter; responses arrive as loosely-typed field maps wrapped
// in a {"result": [{"value": {...}}]} envelope.
package hcdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"github.com/lehua/kilo/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.hcdp.ikewai.org"

	// DefaultPageSize is large enough that normal queries fit in one page.
	DefaultPageSize = 10000

	// maxPages caps the pagination loop so a runaway result set fails
	// loudly instead of looping forever.
	maxPages = 10
)

// Collections exposed by the portal.
const (
	CollectionStationMetadata = "hcdp_station_metadata"
	CollectionStationValue    = "hcdp_station_value"
)

var (
	// ErrNoToken is returned when no API token is configured.
	ErrNoToken = errors.New("hcdp: API token not configured")

	// ErrMalformedResponse is returned when the response body does not
	// match the expected envelope.
	ErrMalformedResponse = errors.New("hcdp: malformed response")
)

// StatusError is a non-success HTTP response from the portal.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hcdp: status %d: %s", e.StatusCode, e.Body)
}

// Client issues authenticated, filtered, paginated queries against the
// portal. All state is per-call; a Client is safe for concurrent use.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	client   *http.Client
}

// NewClient returns a portal client. An empty token is a configuration
// error; an empty baseURL selects the production portal.
func NewClient(token, baseURL string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		token:    token,
		pageSize: DefaultPageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Query fetches every record of a collection matching the filter, paging
// through the result set until a short page. The page count is capped: a
// result set larger than maxPages pages is an error rather than a silent
// truncation.
func (c *Client) Query(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	if collection == "" {
		return nil, errors.New("hcdp: collection name required")
	}

	var all []Record
	for page := 0; page < maxPages; page++ {
		records, err := c.queryPage(ctx, collection, filter, c.pageSize, page*c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) < c.pageSize {
			return all, nil
		}
	}
	return nil, fmt.Errorf("hcdp: query %s: result exceeds %d pages of %d records", collection, maxPages, c.pageSize)
}

func (c *Client) queryPage(ctx context.Context, collection string, filter Filter, limit, offset int) ([]Record, error) {
	q := map[string]any{"name": collection}
	for field, constraint := range filter {
		q["value."+field] = constraint
	}
	qJSON, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("hcdp: encode filter: %w", err)
	}

	params := url.Values{}
	params.Set("q", string(qJSON))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	reqURL := c.baseURL + "/stations?" + params.Encode()

	var body []byte
	start := time.Now()
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are retried; everything else below decides
			// for itself.
			return fmt.Errorf("query %s: %w", collection, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			b, _ := io.ReadAll(resp.Body)
			return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))})
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.HCDPAPICallsTotal.WithLabelValues(collection, "error").Inc()
		return nil, fmt.Errorf("hcdp: %w", err)
	}
	metrics.HCDPAPICallsTotal.WithLabelValues(collection, "ok").Inc()
	metrics.HCDPAPILatency.WithLabelValues(collection).Observe(time.Since(start).Seconds())

	return unwrapEnvelope(body, collection)
}

func unwrapEnvelope(body []byte, collection string) ([]Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: query %s: body is not JSON", ErrMalformedResponse, collection)
	}
	result := gjson.GetBytes(body, "result")
	if !result.Exists() || !result.IsArray() {
		return nil, fmt.Errorf("%w: query %s: missing result array", ErrMalformedResponse, collection)
	}

	var records []Record
	var bad bool
	result.ForEach(func(_, item gjson.Result) bool {
		value := item.Get("value")
		if !value.Exists() {
			bad = true
			return false
		}
		records = append(records, Record{raw: value})
		return true
	})
	if bad {
		return nil, fmt.Errorf("%w: query %s: entry without value wrapper", ErrMalformedResponse, collection)
	}
	return records, nil
}

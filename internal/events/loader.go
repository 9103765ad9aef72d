// Package events fetches the raw post batch and shapes it into
// model.Event records.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	appLog "ngoexplorer/internal/log"
	"ngoexplorer/internal/model"
)

const (
	DefaultEndpoint = "https://jsonplaceholder.typicode.com/posts"
	DefaultLimit    = 12
)

// DefaultBaseDate is the day the first event of a batch is scheduled on.
var DefaultBaseDate = time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)

// ErrStatus is wrapped when the endpoint answers with a non-2xx status.
var ErrStatus = errors.New("events: unexpected response status")

// Options configures a Loader. Zero fields take the package defaults.
// Timeout is opt-in: zero leaves the request bounded only by the caller's
// context, so a hung endpoint keeps Fetch waiting.
type Options struct {
	Endpoint string
	Limit    int
	BaseDate time.Time
	Timeout  time.Duration
	Client   *http.Client
}

// Loader issues one GET per Fetch. It keeps no cache between calls.
type Loader struct {
	endpoint string
	limit    int
	baseDate time.Time
	timeout  time.Duration
	client   *http.Client
}

// Post is the subset of a remote item the loader reads.
type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func NewLoader(opts Options) *Loader {
	l := &Loader{
		endpoint: opts.Endpoint,
		limit:    opts.Limit,
		baseDate: opts.BaseDate,
		timeout:  opts.Timeout,
		client:   opts.Client,
	}
	if l.endpoint == "" {
		l.endpoint = DefaultEndpoint
	}
	if l.limit <= 0 {
		l.limit = DefaultLimit
	}
	if l.baseDate.IsZero() {
		l.baseDate = DefaultBaseDate
	}
	if l.client == nil {
		l.client = &http.Client{}
	}
	return l
}

// Fetch requests the batch and maps it to events. Any transport error,
// non-2xx status or undecodable body is returned as is; there is no retry.
func (l *Loader) Fetch(ctx context.Context) ([]model.Event, error) {
	reqURL, err := l.requestURL()
	if err != nil {
		return nil, err
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	appLog.Info("events fetch start", "url", reqURL)
	started := time.Now()

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("events: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("events: decode body: %w", err)
	}

	evs, err := Shape(posts, l.baseDate)
	if err != nil {
		return nil, err
	}
	appLog.Info("events fetch success", "count", len(evs), "elapsed", time.Since(started).Round(time.Millisecond))
	return evs, nil
}

func (l *Loader) requestURL() (string, error) {
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return "", fmt.Errorf("events: bad endpoint %q: %w", l.endpoint, err)
	}
	q := u.Query()
	q.Set("_limit", strconv.Itoa(l.limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

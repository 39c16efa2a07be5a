package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/okian/fantasyboard/internal/domain/model"
	"github.com/okian/fantasyboard/internal/domain/scoring"
	"github.com/okian/fantasyboard/pkg/logger"
)

// maxBodyBytes caps how much of a response body is decoded.
const maxBodyBytes = 8 << 20

// Client reads the fantasy league REST API over HTTP.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	log       logger.Logger
}

var _ Source = (*Client)(nil)

// NewClient creates a Client for the public API unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
		http:      &http.Client{Transport: http.DefaultTransport},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("source")
	}
	return c
}

// CurrentPeriod implements Source.
func (c *Client) CurrentPeriod(ctx context.Context) (model.PeriodID, error) {
	var body bootstrapResponse
	if err := c.get(ctx, "/bootstrap-static/", false, &body); err != nil {
		return 0, fmt.Errorf("current period: %w", err)
	}
	period, err := body.current()
	if err != nil {
		return 0, fmt.Errorf("current period: %w", err)
	}
	return period, nil
}

// EntityHistory implements Source.
func (c *Client) EntityHistory(ctx context.Context, id model.EntityID, period model.PeriodID) (model.RawPeriodRecord, error) {
	var body historyResponse
	path := "/entry/" + url.PathEscape(string(id)) + "/history/"
	if err := c.get(ctx, path, true, &body); err != nil {
		return model.RawPeriodRecord{}, fmt.Errorf("history for entity %s: %w", id, err)
	}
	rec, err := body.record(period)
	if err != nil {
		return model.RawPeriodRecord{}, fmt.Errorf("history for entity %s: %w", id, err)
	}
	return rec, nil
}

// EntityProfile implements Source. A successful response without a name
// yields the placeholder name rather than an error.
func (c *Client) EntityProfile(ctx context.Context, id model.EntityID) (string, error) {
	var body profileResponse
	path := "/entry/" + url.PathEscape(string(id)) + "/"
	if err := c.get(ctx, path, true, &body); err != nil {
		return "", fmt.Errorf("profile for entity %s: %w", id, err)
	}
	if body.Name == nil {
		return model.PlaceholderName, nil
	}
	return scoring.DisplayName(*body.Name), nil
}

// get issues a GET and decodes a JSON body into out. entity marks
// endpoints where 404 means the entity has no data.
func (c *Client) get(ctx context.Context, path string, entity bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrSourceUnavailable, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug(ctx, "failed to close response body", logger.String("path", path), logger.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound && entity:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%w: GET %s: status %d", ErrNotFoundForPeriod, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%w: GET %s: status %d", ErrSourceUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: GET %s: %w", ErrSourceUnavailable, path, ctx.Err())
		}
		return fmt.Errorf("%w: GET %s: %w", ErrDataShape, path, err)
	}
	return nil
}

package source

import (
	"net/http"
	"strings"

	"github.com/okian/fantasyboard/pkg/logger"
)

// DefaultBaseURL is the public fantasy league API.
const DefaultBaseURL = "https://fantasy.premierleague.com/api"

const defaultUserAgent = "fantasyboard/1.0"

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root. Trailing slashes are trimmed.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

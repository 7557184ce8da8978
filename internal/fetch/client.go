// Package fetch is the HTTP side of asset updates: release tag lookups and
// streaming downloads, optionally routed through a SOCKS5 proxy.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/net/proxy"
)

// Options configures a Client.
type Options struct {
	UserAgent   string
	GitHubToken string // Optional, for rate limiting
	APIBaseURL  string // GitHub API base, overridable for testing
	Timeout     time.Duration

	SOCKS5   string // host:port, empty for direct connections
	Username string
	Password string
}

// Client performs GET requests for the updater.
type Client struct {
	http       *http.Client
	userAgent  string
	token      string
	apiBaseURL string
	fs         afero.Fs
	logger     zerolog.Logger
}

// NewClient creates a client writing downloads to the OS filesystem.
func NewClient(opts Options) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if opts.SOCKS5 != "" {
		var auth *proxy.Auth
		if opts.Username != "" || opts.Password != "" {
			auth = &proxy.Auth{User: opts.Username, Password: opts.Password}
		}
		dialer, err := proxy.SOCKS5("tcp", opts.SOCKS5, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	apiBase := opts.APIBaseURL
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		userAgent:  opts.UserAgent,
		token:      opts.GitHubToken,
		apiBaseURL: apiBase,
		fs:         afero.NewOsFs(),
		logger:     zerolog.Nop(),
	}, nil
}

// WithFs sets the filesystem downloads are written to.
func (c *Client) WithFs(fs afero.Fs) *Client {
	c.fs = fs
	return c
}

// WithLogger sets the request logger.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.logger = logger
	return c
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

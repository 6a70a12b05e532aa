package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evanc577/dash-archiver/internal/logger"
)

// broadcastEndedHeader is set by the origin to "1" once the broadcast
// has ended; its presence (and value) is the sole source of
// Snapshot.Finished.
const broadcastEndedHeader = "x-fb-video-broadcast-ended"

// Client fetches and parses the manifest. It carries the same
// request-timeout discipline as the rest of the archiver's HTTP
// surface (§5's documented 5-second default).
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
	userAgent  string
}

// NewClient builds a manifest Client with the documented default
// per-request timeout.
func NewClient(log logger.Logger, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     log,
		userAgent:  userAgent,
	}
}

// Fetch retrieves and parses the manifest at rawURL.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build manifest request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debugf("fetching manifest from %s", rawURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch manifest %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read manifest body: %w", err)
	}

	finished := resp.Header.Get(broadcastEndedHeader) == "1"
	snapshot, err := Parse(body, rawURL, finished)
	if err != nil {
		return nil, err
	}

	c.logger.Debugf("parsed manifest for stream %s, finished=%v", snapshot.StreamID, snapshot.Finished)
	return snapshot, nil
}

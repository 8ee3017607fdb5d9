package photos

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the external blob store holding asset photos. Calls are
// best-effort collaborators: failures are surfaced to the caller as plain
// errors and must never roll back a business transaction.
type Client struct {
	baseURL string
	hc      *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Delete(ctx context.Context, photoURL string) error {
	if c.baseURL == "" || photoURL == "" {
		return nil
	}
	u := fmt.Sprintf("%s/blobs?url=%s", c.baseURL, url.QueryEscape(photoURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("blob store returned %d", resp.StatusCode)
	}
	return nil
}

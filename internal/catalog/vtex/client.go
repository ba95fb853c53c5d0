// Package vtex implements the catalog.Source and catalog.Target
// contracts against VTEX-style store catalog APIs.
package vtex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/storelift/migrator/internal/catalog"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 50
)

// client is the shared HTTP plumbing for source and target accounts.
type client struct {
	httpClient *http.Client
	endpoint   string
	account    string
	token      string
	pageSize   int
}

func newClient(endpoint, account, token string, pageSize int) *client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   endpoint,
		account:    account,
		token:      token,
		pageSize:   pageSize,
	}
}

// do performs one JSON request against the account API. A 404 response
// surfaces as catalog.ErrNotFound (wrapped in a RequestError); any
// other non-2xx status becomes a RequestError carrying the response
// body so run errors can name the offending call.
func (c *client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}
	if c.account != "" {
		req.Header.Set("X-Account", c.account)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &catalog.RequestError{Method: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &catalog.RequestError{Method: method, URL: u, StatusCode: resp.StatusCode, Err: catalog.ErrNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &catalog.RequestError{Method: method, URL: u, StatusCode: resp.StatusCode, Body: string(detail)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, u, err)
	}
	return nil
}

func (c *client) pageQuery(page int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	return q
}

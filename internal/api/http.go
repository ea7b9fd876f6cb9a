package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// do sends one request and decodes a ResultPage. There is no retry: any
// transport error or non-2xx status is returned to the caller as is.
func (c *Client) do(ctx context.Context, method, path string, in any) (*ResultPage, error) {
	u := c.BaseURL + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	start := time.Now()
	c.logger.Debug("backend request", "method", method, "url", u)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, u, err)
	}

	c.logger.Debug("backend response",
		"method", method, "url", u, "status", res.StatusCode,
		"bytes", len(raw), "duration", time.Since(start).Round(time.Millisecond))

	if res.StatusCode/100 != 2 {
		return nil, parseAPIError(res.StatusCode, raw)
	}

	page, err := decodeResultPage(raw)
	if err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", path, err)
	}
	return page, nil
}

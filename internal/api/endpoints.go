package api

import (
	"context"
	"fmt"
	"net/http"
)

// Backend endpoint paths.
const (
	PathSQL       = "/api/sql"
	PathQuery     = "/api/query"
	PathBoxscores = "/api/boxscores"
	PathFilter    = "/api/boxscores/filter"
)

// SQL runs raw SQL on the backend.
func (c *Client) SQL(ctx context.Context, query string) (*ResultPage, error) {
	return c.do(ctx, http.MethodPost, PathSQL, queryRequest{Query: query})
}

// Ask sends a natural-language question; the backend translates it.
func (c *Client) Ask(ctx context.Context, question string) (*ResultPage, error) {
	return c.do(ctx, http.MethodPost, PathQuery, queryRequest{Query: question})
}

// Boxscores fetches one server page of box scores matching params. This is
// the endpoint used for structured queries and for prefetching the next page.
func (c *Client) Boxscores(ctx context.Context, params Params) (*ResultPage, error) {
	return c.do(ctx, http.MethodGet, withQuery(PathBoxscores, params), nil)
}

// FilterBoxscores calls the alternate filter endpoint. It shares the response
// contract of Boxscores.
func (c *Client) FilterBoxscores(ctx context.Context, params Params) (*ResultPage, error) {
	return c.do(ctx, http.MethodGet, withQuery(PathFilter, params), nil)
}

// Execute sends q to the endpoint matching its mode.
func (c *Client) Execute(ctx context.Context, q Query) (*ResultPage, error) {
	switch q.Mode {
	case ModeSQL:
		return c.SQL(ctx, q.Text)
	case ModeAsk, "":
		return c.Ask(ctx, q.Text)
	case ModeFilter:
		return c.Boxscores(ctx, q.Params)
	default:
		return nil, fmt.Errorf("unknown query mode %q", q.Mode)
	}
}

func withQuery(path string, params Params) string {
	if qs := params.Encode(); qs != "" {
		return path + "?" + qs
	}
	return path
}

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Pager walks a list endpoint one page at a time by following continuation
// tokens. The sequence is finite and not restartable: once exhausted, a
// fresh cursor-less pager must be created. A consumer may simply stop
// calling Next to terminate early.
type Pager[T any] struct {
	c      *Client
	op     string
	path   string
	query  url.Values
	offset string
	done   bool
}

func newPager[T any](c *Client, op, path string, query url.Values) *Pager[T] {
	return &Pager[T]{c: c, op: op, path: path, query: query}
}

// Next fetches and decodes the next page. The second return reports whether
// more pages exist; after it returns false, further calls yield nothing.
func (p *Pager[T]) Next(ctx context.Context) ([]T, bool, error) {
	if p.done {
		return nil, false, nil
	}
	query := url.Values{}
	for key, values := range p.query {
		query[key] = values
	}
	query.Set("limit", strconv.Itoa(p.c.pageLimit))
	if p.offset != "" {
		query.Set("offset", p.offset)
	}

	var env listEnvelope[T]
	if err := p.c.do(ctx, p.op, http.MethodGet, p.path, query, nil, &env, true); err != nil {
		return nil, false, err
	}
	if env.NextPage == nil || env.NextPage.Offset == "" {
		p.done = true
	} else {
		p.offset = env.NextPage.Offset
	}
	return env.Data, !p.done, nil
}

// Collect drives a pager to completion and returns the union of all pages
// in page order.
func Collect[T any](ctx context.Context, p *Pager[T]) ([]T, error) {
	var all []T
	for {
		items, more, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if !more {
			return all, nil
		}
	}
}

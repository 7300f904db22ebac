// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package ipfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultAttemptTimeout bounds every single gateway attempt.
const DefaultAttemptTimeout = 10 * time.Second

// maxBodySize caps how much of a gateway response is buffered.
const maxBodySize = 16 << 20

// ErrNoGateways is returned when a fetch has nothing to try.
var ErrNoGateways = errors.New("ipfs: no gateways configured")

// RetrievalError is returned when every gateway was tried without success.
type RetrievalError struct {
	Ref      string
	Attempts int
	Last     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("ipfs: failed to fetch %s after %d attempts: %v", e.Ref, e.Attempts, e.Last)
}

func (e *RetrievalError) Unwrap() error { return e.Last }

// Response is a fully buffered gateway response.
type Response struct {
	URL        string
	Gateway    string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// RequestOptions customizes a fetch.
type RequestOptions struct {
	Method string
	Header http.Header
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Client  *http.Client  // defaults to a client without a global timeout
	Timeout time.Duration // per-attempt timeout, defaults to DefaultAttemptTimeout
	Logger  log.Logger
}

// Fetcher retrieves content through the resolver's gateways, falling back to
// the next gateway on throttling, server errors, transport errors and
// timeouts.
type Fetcher struct {
	resolver *Resolver
	client   *http.Client
	timeout  time.Duration
	log      log.Logger
}

// NewFetcher creates a fetcher bound to a resolver and its failure cache.
func NewFetcher(resolver *Resolver, opts FetcherOptions) *Fetcher {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAttemptTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Root()
	}
	return &Fetcher{
		resolver: resolver,
		client:   opts.Client,
		timeout:  opts.Timeout,
		log:      opts.Logger.With("component", "ipfs-fetch"),
	}
}

// Resolver returns the resolver used by the fetcher.
func (f *Fetcher) Resolver() *Resolver { return f.resolver }

// Fetch makes one pass over the gateways and returns the first successful
// response. A non-retryable error status (e.g. 404) is returned as-is since
// the content itself is at fault, not the gateway.
func (f *Fetcher) Fetch(ctx context.Context, ref string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	if IsAbsoluteURL(ref) {
		resp, err := f.attempt(ctx, "", ref, opts)
		if err != nil {
			return nil, &RetrievalError{Ref: ref, Attempts: 1, Last: err}
		}
		if retryableStatus(resp.StatusCode) {
			return nil, &RetrievalError{Ref: ref, Attempts: 1, Last: statusError(resp)}
		}
		return resp, nil
	}

	gateways := f.resolver.order()
	if len(gateways) == 0 {
		return nil, ErrNoGateways
	}
	cid := CID(ref)

	var (
		last     error
		attempts int
	)
	for _, gw := range gateways {
		if err := ctx.Err(); err != nil {
			last = err
			break
		}
		attempts++
		url := gw + cid
		resp, err := f.attempt(ctx, gw, url, opts)
		if err != nil {
			// The caller gave up; the gateway is not to blame.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.log.Debug("Gateway attempt failed", "gateway", gw, "ref", ref, "err", err)
			f.resolver.failures.MarkFailed(gw)
			last = err
			continue
		}
		if retryableStatus(resp.StatusCode) {
			f.log.Debug("Gateway returned retryable status", "gateway", gw, "ref", ref, "status", resp.StatusCode)
			f.resolver.failures.MarkFailed(gw)
			last = statusError(resp)
			continue
		}
		if resp.OK() {
			f.resolver.failures.Clear(gw)
		}
		return resp, nil
	}
	f.log.Warn("All gateways failed", "ref", ref, "attempts", attempts, "err", last)
	return nil, &RetrievalError{Ref: ref, Attempts: attempts, Last: last}
}

// attempt performs a single request under its own timeout and buffers the
// body before the deadline expires.
func (f *Fetcher) attempt(ctx context.Context, gateway, url string, opts *RequestOptions) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return &Response{
		URL:        url,
		Gateway:    gateway,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func statusError(resp *Response) error {
	snippet := resp.Body
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	return fmt.Errorf("HTTP status %d from %s: %s", resp.StatusCode, resp.URL, snippet)
}

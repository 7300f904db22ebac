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
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatewayFarm serves five fake gateways from one test server, routed by the
// first path segment (/g0/ … /g4/).
type gatewayFarm struct {
	srv *httptest.Server

	mu       sync.Mutex
	behavior map[string]func(w http.ResponseWriter, r *http.Request)
	hits     []string
}

func newGatewayFarm(t *testing.T) *gatewayFarm {
	f := &gatewayFarm{behavior: make(map[string]func(http.ResponseWriter, *http.Request))}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
		f.mu.Lock()
		f.hits = append(f.hits, parts[0])
		h := f.behavior[parts[0]]
		f.mu.Unlock()
		if h == nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *gatewayFarm) gateways() []string {
	gws := make([]string, 5)
	for i := range gws {
		gws[i] = fmt.Sprintf("%s/g%d/", f.srv.URL, i)
	}
	return gws
}

func (f *gatewayFarm) set(gw string, h func(http.ResponseWriter, *http.Request)) {
	f.mu.Lock()
	f.behavior[gw] = h
	f.mu.Unlock()
}

func (f *gatewayFarm) attempts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hits...)
}

func status(code int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		fmt.Fprint(w, body)
	}
}

func TestFetchFallsBackToFirstSuccess(t *testing.T) {
	farm := newGatewayFarm(t)
	farm.set("g0", status(http.StatusInternalServerError, "boom"))
	farm.set("g1", status(http.StatusServiceUnavailable, "busy"))
	farm.set("g2", status(http.StatusOK, `{"name":"Iron Sword #1"}`))
	farm.set("g3", status(http.StatusOK, "never reached"))

	fc := NewFailureCache(time.Minute, nil)
	f := NewFetcher(NewResolver(farm.gateways(), fc), FetcherOptions{})

	resp, err := f.Fetch(context.Background(), "ipfs://QmMeta", nil)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, `{"name":"Iron Sword #1"}`, string(resp.Body))
	assert.Equal(t, []string{"g0", "g1", "g2"}, farm.attempts())

	gws := farm.gateways()
	assert.True(t, fc.Failed(gws[0]))
	assert.True(t, fc.Failed(gws[1]))
	assert.False(t, fc.Failed(gws[2]))
}

func TestFetchThrottledGatewayIsMarked(t *testing.T) {
	farm := newGatewayFarm(t)
	farm.set("g0", status(http.StatusTooManyRequests, "slow down"))
	farm.set("g1", status(http.StatusOK, "ok"))

	fc := NewFailureCache(time.Minute, nil)
	f := NewFetcher(NewResolver(farm.gateways(), fc), FetcherOptions{})

	_, err := f.Fetch(context.Background(), "QmX", nil)
	require.NoError(t, err)
	assert.True(t, fc.Failed(farm.gateways()[0]))

	// the next fetch starts with the healthy gateway
	_, err = f.Fetch(context.Background(), "QmX", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"g0", "g1", "g1"}, farm.attempts())
}

func TestFetchAllFail(t *testing.T) {
	farm := newGatewayFarm(t)
	for i := 0; i < 4; i++ {
		farm.set(fmt.Sprintf("g%d", i), status(http.StatusInternalServerError, "down"))
	}
	farm.set("g4", status(http.StatusBadGateway, "last one"))

	f := NewFetcher(NewResolver(farm.gateways(), nil), FetcherOptions{})
	_, err := f.Fetch(context.Background(), "QmGone", nil)
	require.Error(t, err)

	var re *RetrievalError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 5, re.Attempts)
	assert.Contains(t, re.Last.Error(), "502")
	assert.Contains(t, err.Error(), "last one")
}

func TestFetchAttemptTimeout(t *testing.T) {
	farm := newGatewayFarm(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	farm.set("g0", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	farm.set("g1", status(http.StatusOK, "fast"))

	fc := NewFailureCache(time.Minute, nil)
	f := NewFetcher(NewResolver(farm.gateways(), fc), FetcherOptions{Timeout: 100 * time.Millisecond})

	start := time.Now()
	resp, err := f.Fetch(context.Background(), "QmSlow", nil)
	require.NoError(t, err)
	assert.Equal(t, "fast", string(resp.Body))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, fc.Failed(farm.gateways()[0]))
}

func TestFetchCallerCancelled(t *testing.T) {
	farm := newGatewayFarm(t)
	ctx, cancel := context.WithCancel(context.Background())
	farm.set("g0", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	})

	fc := NewFailureCache(time.Minute, nil)
	f := NewFetcher(NewResolver(farm.gateways(), fc), FetcherOptions{})

	_, err := f.Fetch(ctx, "QmAbandoned", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"g0"}, farm.attempts())
	for _, gw := range farm.gateways() {
		assert.False(t, fc.Failed(gw), gw)
	}
}

func TestFetchNotFoundIsFinal(t *testing.T) {
	farm := newGatewayFarm(t)
	farm.set("g0", status(http.StatusNotFound, "no such cid"))
	farm.set("g1", status(http.StatusOK, "ok"))

	fc := NewFailureCache(time.Minute, nil)
	f := NewFetcher(NewResolver(farm.gateways(), fc), FetcherOptions{})

	resp, err := f.Fetch(context.Background(), "QmMissing", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.OK())
	assert.Equal(t, []string{"g0"}, farm.attempts())
	assert.False(t, fc.Failed(farm.gateways()[0]))
}

func TestFetchSuccessClearsFailure(t *testing.T) {
	farm := newGatewayFarm(t)
	for i := 0; i < 5; i++ {
		farm.set(fmt.Sprintf("g%d", i), status(http.StatusOK, "ok"))
	}
	fc := NewFailureCache(time.Minute, nil)
	gws := farm.gateways()
	for _, gw := range gws {
		fc.MarkFailed(gw)
	}
	f := NewFetcher(NewResolver(gws, fc), FetcherOptions{})

	_, err := f.Fetch(context.Background(), "QmBack", nil)
	require.NoError(t, err)
	assert.False(t, fc.Failed(gws[0]))
	assert.True(t, fc.Failed(gws[1]))
}

func TestFetchAbsoluteURL(t *testing.T) {
	farm := newGatewayFarm(t)
	farm.set("direct", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, "direct")
	})
	f := NewFetcher(NewResolver(farm.gateways(), nil), FetcherOptions{})

	resp, err := f.Fetch(context.Background(), farm.srv.URL+"/direct/meta.json", &RequestOptions{
		Header: http.Header{"Accept": []string{"application/json"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", string(resp.Body))
	assert.Equal(t, []string{"direct"}, farm.attempts())
}

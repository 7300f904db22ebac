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

// Package ipfs resolves content references against public IPFS gateways,
// fetches content with per-gateway fallback and pins new content through a
// hosted pinning service.
package ipfs

import (
	"strings"
)

// Scheme is the prefix of scheme-qualified content references.
const Scheme = "ipfs://"

// legacyPinataHost marks a malformed reference shape produced by older
// uploads: a dedicated Pinata gateway host glued to the CID without a scheme.
const legacyPinataHost = "mypinata.cloud"

// DefaultGateways is the fixed, ordered list of public gateways. Every entry
// ends with a slash so a CID can be appended directly.
var DefaultGateways = []string{
	"https://gateway.pinata.cloud/ipfs/",
	"https://ipfs.io/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
	"https://dweb.link/ipfs/",
	"https://4everland.io/ipfs/",
}

// Resolver maps content references to retrieval URLs, steering around
// gateways that failed recently.
type Resolver struct {
	gateways []string
	failures *FailureCache
}

// NewResolver creates a resolver over the given gateways. An empty list
// selects DefaultGateways; a nil cache gets a private one.
func NewResolver(gateways []string, failures *FailureCache) *Resolver {
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}
	gws := make([]string, len(gateways))
	for i, gw := range gateways {
		if !strings.HasSuffix(gw, "/") {
			gw += "/"
		}
		gws[i] = gw
	}
	if failures == nil {
		failures = NewFailureCache(0, nil)
	}
	return &Resolver{gateways: gws, failures: failures}
}

// Gateways returns a copy of the configured gateway list.
func (r *Resolver) Gateways() []string {
	return append([]string(nil), r.gateways...)
}

// Failures exposes the shared failure cache.
func (r *Resolver) Failures() *FailureCache { return r.failures }

// Resolve returns one concrete URL for ref. Absolute URLs pass through
// unchanged. Otherwise the first gateway at or after offset (wrapping around)
// without a recent failure is used; if every gateway failed recently the
// first one is used regardless.
func (r *Resolver) Resolve(ref string, offset int) string {
	if IsAbsoluteURL(ref) {
		return ref
	}
	cid := CID(ref)
	n := len(r.gateways)
	if offset < 0 {
		offset = 0
	}
	for i := 0; i < n; i++ {
		gw := r.gateways[(offset+i)%n]
		if !r.failures.Failed(gw) {
			return gw + cid
		}
	}
	return r.gateways[0] + cid
}

// order returns the gateways in the order a fetch should try them: healthy
// ones first in priority order, then the recently failed ones.
func (r *Resolver) order() []string {
	healthy := make([]string, 0, len(r.gateways))
	var failed []string
	for _, gw := range r.gateways {
		if r.failures.Failed(gw) {
			failed = append(failed, gw)
		} else {
			healthy = append(healthy, gw)
		}
	}
	return append(healthy, failed...)
}

// IsAbsoluteURL reports whether ref is already an http(s) URL.
func IsAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// CID normalizes a content reference to a bare path: the scheme prefix is
// stripped and the legacy Pinata shape is reduced to its trailing segment.
func CID(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, legacyPinataHost) && !IsAbsoluteURL(ref) {
		tail := strings.TrimRight(ref, "/")
		if i := strings.LastIndex(tail, "/"); i >= 0 {
			return tail[i+1:]
		}
		return strings.TrimPrefix(tail[strings.Index(tail, legacyPinataHost)+len(legacyPinataHost):], "/")
	}
	ref = strings.TrimPrefix(ref, Scheme)
	ref = strings.TrimPrefix(ref, "/")
	ref = strings.TrimPrefix(ref, "ipfs/")
	return ref
}

// URI returns the scheme-qualified form of a bare CID.
func URI(cid string) string {
	if strings.HasPrefix(cid, Scheme) {
		return cid
	}
	return Scheme + cid
}

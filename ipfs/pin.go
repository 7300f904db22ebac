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
)

// ErrPin is wrapped by every pinning failure so callers can recognise
// storage problems regardless of the provider.
var ErrPin = errors.New("ipfs: pinning failed")

// PinResult is what a pinning service reports for stored content. The JSON
// names match the relay endpoints' response body.
type PinResult struct {
	IpfsHash  string `json:"ipfsHash"`
	PinSize   int64  `json:"pinSize,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// PinOptions names the pinned object and attaches searchable key/values.
type PinOptions struct {
	Name      string
	KeyValues map[string]any
}

// Pinner persists content into IPFS through a hosted service.
type Pinner interface {
	// PinFile stores raw bytes with the given content type.
	PinFile(ctx context.Context, data []byte, contentType string, opts PinOptions) (*PinResult, error)

	// PinJSON stores the JSON encoding of content.
	PinJSON(ctx context.Context, content any, opts PinOptions) (*PinResult, error)
}

func pinError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPin, provider, err)
}

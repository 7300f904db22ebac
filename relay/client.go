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

package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/blacksmith-forge/blacksmith/forge"
	"github.com/blacksmith-forge/blacksmith/ipfs"
)

// Client uploads through a remote relay.  It implements forge.Uploader, so
// a forger without pinning credentials can delegate storage.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ forge.Uploader = (*Client)(nil)

// NewClient creates a client for the relay at baseURL.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// UploadImage posts png to /api/upload-image.
func (c *Client) UploadImage(ctx context.Context, png []byte, filename string, info forge.ImageInfo) (*ipfs.PinResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(png); err != nil {
		return nil, err
	}
	infoJSON, _ := json.Marshal(info)
	if err := mw.WriteField("weaponInfo", string(infoJSON)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.post(ctx, "/api/upload-image", mw.FormDataContentType(), &body)
}

// UploadMetadata posts meta to /api/upload-metadata.
func (c *Client) UploadMetadata(ctx context.Context, meta *forge.Metadata) (*ipfs.PinResult, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/api/upload-metadata", "application/json", bytes.NewReader(payload))
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*ipfs.PinResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: relay: %v", ipfs.ErrPin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var out struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(raw, &out) != nil || out.Error == "" {
			out.Error = string(raw)
		}
		return nil, fmt.Errorf("%w: relay: %d: %s", ipfs.ErrPin, resp.StatusCode, out.Error)
	}
	var res ipfs.PinResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: relay: failed to decode response: %v", ipfs.ErrPin, err)
	}
	if res.IpfsHash == "" {
		return nil, fmt.Errorf("%w: relay: %v", ipfs.ErrPin, errors.New("response carries no hash"))
	}
	return &res, nil
}

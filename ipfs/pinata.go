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
)

// DefaultPinataURL is the Pinata API root.
const DefaultPinataURL = "https://api.pinata.cloud"

// PinataClient pins content through the Pinata HTTP API using a JWT.
type PinataClient struct {
	baseURL string
	jwt     string
	client  *http.Client
}

// NewPinataClient creates a client. An empty baseURL selects DefaultPinataURL.
func NewPinataClient(baseURL, jwt string, client *http.Client) *PinataClient {
	if baseURL == "" {
		baseURL = DefaultPinataURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &PinataClient{baseURL: strings.TrimRight(baseURL, "/"), jwt: jwt, client: client}
}

type pinataMetadata struct {
	Name      string         `json:"name,omitempty"`
	KeyValues map[string]any `json:"keyvalues,omitempty"`
}

type pinataOptions struct {
	CIDVersion int `json:"cidVersion"`
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinFile uploads data via pinFileToIPFS.
func (p *PinataClient) PinFile(ctx context.Context, data []byte, contentType string, opts PinOptions) (*PinResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	name := opts.Name
	if name == "" {
		name = "file"
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, pinError("pinata", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, pinError("pinata", err)
	}
	meta, _ := json.Marshal(pinataMetadata{Name: opts.Name, KeyValues: opts.KeyValues})
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, pinError("pinata", err)
	}
	popts, _ := json.Marshal(pinataOptions{CIDVersion: 1})
	if err := mw.WriteField("pinataOptions", string(popts)); err != nil {
		return nil, pinError("pinata", err)
	}
	if err := mw.Close(); err != nil {
		return nil, pinError("pinata", err)
	}
	return p.post(ctx, "/pinning/pinFileToIPFS", mw.FormDataContentType(), &body)
}

// PinJSON uploads content via pinJSONToIPFS.
func (p *PinataClient) PinJSON(ctx context.Context, content any, opts PinOptions) (*PinResult, error) {
	payload, err := json.Marshal(struct {
		Content  any            `json:"pinataContent"`
		Metadata pinataMetadata `json:"pinataMetadata"`
		Options  pinataOptions  `json:"pinataOptions"`
	}{
		Content:  content,
		Metadata: pinataMetadata{Name: opts.Name, KeyValues: opts.KeyValues},
		Options:  pinataOptions{CIDVersion: 1},
	})
	if err != nil {
		return nil, pinError("pinata", err)
	}
	return p.post(ctx, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload))
}

func (p *PinataClient) post(ctx context.Context, path, contentType string, body io.Reader) (*PinResult, error) {
	if p.jwt == "" {
		return nil, pinError("pinata", errors.New("missing JWT"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, body)
	if err != nil {
		return nil, pinError("pinata", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, pinError("pinata", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, pinError("pinata", fmt.Errorf("upload failed: %d: %s", resp.StatusCode, msg))
	}
	var out pinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pinError("pinata", fmt.Errorf("failed to decode response: %w", err))
	}
	if out.IpfsHash == "" {
		return nil, pinError("pinata", errors.New("response carries no hash"))
	}
	return &PinResult{IpfsHash: out.IpfsHash, PinSize: out.PinSize, Timestamp: out.Timestamp}, nil
}

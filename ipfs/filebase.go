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
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultFilebaseEndpoint is Filebase's S3-compatible API.
const DefaultFilebaseEndpoint = "https://s3.filebase.com"

// s3API is the subset of the S3 client used for pinning.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// FilebaseConfig holds the credentials of an IPFS-backed Filebase bucket.
type FilebaseConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// FilebasePinner pins content by writing objects into an IPFS-backed S3
// bucket. The bucket assigns the CID and reports it as object metadata.
type FilebasePinner struct {
	s3     s3API
	bucket string
	now    func() time.Time
}

// NewFilebasePinner builds an S3 client for the Filebase endpoint.
func NewFilebasePinner(ctx context.Context, cfg FilebaseConfig) (*FilebasePinner, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("ipfs: filebase bucket not configured")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultFilebaseEndpoint
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("ipfs: failed to load filebase config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return newFilebasePinner(client, cfg.Bucket), nil
}

func newFilebasePinner(api s3API, bucket string) *FilebasePinner {
	return &FilebasePinner{s3: api, bucket: bucket, now: time.Now}
}

// PinFile writes data as an object named after opts.Name.
func (f *FilebasePinner) PinFile(ctx context.Context, data []byte, contentType string, opts PinOptions) (*PinResult, error) {
	key := opts.Name
	if key == "" {
		key = fmt.Sprintf("object-%d", f.now().UnixNano())
	}
	meta := make(map[string]string, len(opts.KeyValues))
	for k, v := range opts.KeyValues {
		meta[k] = fmt.Sprint(v)
	}
	_, err := f.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(f.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      meta,
	})
	if err != nil {
		return nil, pinError("filebase", err)
	}
	head, err := f.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, pinError("filebase", err)
	}
	cid := head.Metadata["cid"]
	if cid == "" {
		return nil, pinError("filebase", fmt.Errorf("object %s has no cid", key))
	}
	return &PinResult{
		IpfsHash:  cid,
		PinSize:   int64(len(data)),
		Timestamp: f.now().UTC().Format(time.RFC3339),
	}, nil
}

// PinJSON stores the JSON encoding of content.
func (f *FilebasePinner) PinJSON(ctx context.Context, content any, opts PinOptions) (*PinResult, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, pinError("filebase", err)
	}
	if opts.Name != "" {
		opts.Name += ".json"
	}
	return f.PinFile(ctx, data, "application/json", opts)
}

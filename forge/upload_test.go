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

package forge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPinner struct {
	opts        []ipfs.PinOptions
	contentType string
	content     any
	err         error
}

func (p *recordingPinner) PinFile(ctx context.Context, data []byte, contentType string, opts ipfs.PinOptions) (*ipfs.PinResult, error) {
	p.opts = append(p.opts, opts)
	p.contentType = contentType
	if p.err != nil {
		return nil, p.err
	}
	return &ipfs.PinResult{IpfsHash: "bafyfile", PinSize: int64(len(data))}, nil
}

func (p *recordingPinner) PinJSON(ctx context.Context, content any, opts ipfs.PinOptions) (*ipfs.PinResult, error) {
	p.opts = append(p.opts, opts)
	p.content = content
	if p.err != nil {
		return nil, p.err
	}
	return &ipfs.PinResult{IpfsHash: "bafyjson"}, nil
}

func TestUploadImage(t *testing.T) {
	pinner := &recordingPinner{}
	u := NewPinningUploader(pinner, UploaderOptions{})

	res, err := u.UploadImage(context.Background(), []byte{1, 2, 3}, "weapon.png", ImageInfo{WeaponType: Bow, Tier: 4, Rarity: Rare, TokenID: "temp_1"})
	require.NoError(t, err)
	assert.Equal(t, "bafyfile", res.IpfsHash)
	assert.Equal(t, "image/png", pinner.contentType)

	require.Len(t, pinner.opts, 1)
	assert.Equal(t, "weapon-image-1-tier4-2-temp_1", pinner.opts[0].Name)
	assert.Equal(t, "weapon-image", pinner.opts[0].KeyValues["category"])
	assert.Equal(t, "temp_1", pinner.opts[0].KeyValues["tokenId"])
}

func TestUploadMetadata(t *testing.T) {
	pinner := &recordingPinner{}
	u := NewPinningUploader(pinner, UploaderOptions{})
	meta, err := GenerateMetadata(testParams())
	require.NoError(t, err)

	res, err := u.UploadMetadata(context.Background(), meta)
	require.NoError(t, err)
	assert.Equal(t, "bafyjson", res.IpfsHash)
	assert.Same(t, meta, pinner.content)

	kv := pinner.opts[0].KeyValues
	assert.Equal(t, "Sword", kv["weaponType"])
	assert.Equal(t, 1, kv["tier"])
	assert.Equal(t, "Epic", kv["rarity"])
	assert.Regexp(t, `^weapon-metadata-iron-sword`, pinner.opts[0].Name)

	_, err = u.UploadMetadata(context.Background(), &Metadata{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestUploadMetadataUnknownAttributes(t *testing.T) {
	pinner := &recordingPinner{}
	u := NewPinningUploader(pinner, UploaderOptions{})
	_, err := u.UploadMetadata(context.Background(), &Metadata{
		Name: "Custom", Description: "d", Attributes: []Attribute{{TraitType: "Color", Value: "red"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "unknown", pinner.opts[0].KeyValues["tier"])
}

func TestUploadMockOnFailure(t *testing.T) {
	pinner := &recordingPinner{err: fmt.Errorf("%w: pinata: missing JWT", ipfs.ErrPin)}
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1700000000000))
	ctx := context.Background()

	strict := NewPinningUploader(pinner, UploaderOptions{Clock: clock})
	_, err := strict.UploadImage(ctx, []byte{1}, "a.png", ImageInfo{})
	assert.ErrorIs(t, err, ipfs.ErrPin)

	dev := NewPinningUploader(pinner, UploaderOptions{MockOnFailure: true, Clock: clock})
	img, err := dev.UploadImage(ctx, []byte{1}, "a.png", ImageInfo{})
	require.NoError(t, err)
	assert.Regexp(t, `^QmImageMock1700000000000[0-9a-f]{8}$`, img.IpfsHash)

	meta, err := dev.UploadMetadata(ctx, &Metadata{Name: "n", Description: "d", Attributes: []Attribute{{TraitType: "Tier", Value: 1}}})
	require.NoError(t, err)
	assert.Regexp(t, `^QmMock1700000000000[0-9a-f]{8}$`, meta.IpfsHash)
	assert.True(t, IsPlaceholderRef(meta.IpfsHash))
	assert.True(t, IsPlaceholderRef(img.IpfsHash))
}

func TestIsPlaceholderRef(t *testing.T) {
	for _, ref := range []string{"", "temp_123", "fallback_1_abc", "QmMock1", "QmImageMock1"} {
		assert.True(t, IsPlaceholderRef(ref), ref)
	}
	for _, ref := range []string{"bafybeigdyrzt", "QmYwAPJzv5CZsnA", "ipfs://bafy"} {
		assert.False(t, IsPlaceholderRef(ref), ref)
	}
}

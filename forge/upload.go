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
	"strings"

	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
)

// Prefixes of metadata references that do not point at pinned content.
const (
	TempPrefix       = "temp_"
	FallbackPrefix   = "fallback_"
	MockPrefix       = "QmMock"
	MockImagePrefix  = "QmImageMock"
	imagePinCategory = "weapon-image"
)

// IsPlaceholderRef reports whether ref is empty or one of the stand-in
// references written when pinning failed.  Such references are never
// fetched.
func IsPlaceholderRef(ref string) bool {
	if ref == "" {
		return true
	}
	for _, p := range []string{TempPrefix, FallbackPrefix, MockPrefix, MockImagePrefix} {
		if strings.HasPrefix(ref, p) {
			return true
		}
	}
	return false
}

// ImageInfo describes the weapon an uploaded image belongs to.
type ImageInfo struct {
	WeaponType WeaponType `json:"weaponType"`
	Tier       uint8      `json:"tier"`
	Rarity     Rarity     `json:"rarity"`
	TokenID    string     `json:"tokenId"`
}

// Uploader persists weapon artwork and metadata.
type Uploader interface {
	UploadImage(ctx context.Context, png []byte, filename string, info ImageInfo) (*ipfs.PinResult, error)
	UploadMetadata(ctx context.Context, meta *Metadata) (*ipfs.PinResult, error)
}

// UploaderOptions configures a PinningUploader.
type UploaderOptions struct {
	// MockOnFailure substitutes a mock reference when pinning fails.  It is
	// meant for development setups without pinning credentials.
	MockOnFailure bool

	Clock  clockwork.Clock
	Logger log.Logger
}

// PinningUploader implements Uploader on top of an IPFS pinning service.
type PinningUploader struct {
	pinner ipfs.Pinner
	mock   bool
	clock  clockwork.Clock
	log    log.Logger
}

// NewPinningUploader wraps a pinner.
func NewPinningUploader(pinner ipfs.Pinner, opts UploaderOptions) *PinningUploader {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.Root()
	}
	return &PinningUploader{
		pinner: pinner,
		mock:   opts.MockOnFailure,
		clock:  opts.Clock,
		log:    opts.Logger.With("component", "uploader"),
	}
}

// ImagePinName is the pin name of a weapon image.
func ImagePinName(info ImageInfo) string {
	return fmt.Sprintf("weapon-image-%d-tier%d-%d-%s", info.WeaponType, info.Tier, info.Rarity, info.TokenID)
}

// MetadataPinName is the pin name of a metadata document.
func MetadataPinName(meta *Metadata) string {
	return "weapon-metadata-" + slug.Make(meta.Name)
}

func (u *PinningUploader) UploadImage(ctx context.Context, png []byte, filename string, info ImageInfo) (*ipfs.PinResult, error) {
	res, err := u.pinner.PinFile(ctx, png, "image/png", ipfs.PinOptions{
		Name: ImagePinName(info),
		KeyValues: map[string]any{
			"weaponType": info.WeaponType,
			"tier":       info.Tier,
			"rarity":     info.Rarity,
			"tokenId":    info.TokenID,
			"category":   imagePinCategory,
			"filename":   filename,
		},
	})
	if err != nil {
		if u.mock {
			u.log.Warn("Image upload failed, using mock hash", "err", err)
			return &ipfs.PinResult{IpfsHash: u.mockRef(MockImagePrefix)}, nil
		}
		return nil, err
	}
	u.log.Debug("Pinned weapon image", "hash", res.IpfsHash, "size", res.PinSize)
	return res, nil
}

func (u *PinningUploader) UploadMetadata(ctx context.Context, meta *Metadata) (*ipfs.PinResult, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	res, err := u.pinner.PinJSON(ctx, meta, ipfs.PinOptions{
		Name: MetadataPinName(meta),
		KeyValues: map[string]any{
			"weaponType": attributeOr(meta, "Weapon Type"),
			"tier":       attributeOr(meta, "Tier"),
			"rarity":     attributeOr(meta, "Rarity"),
		},
	})
	if err != nil {
		if u.mock {
			u.log.Warn("Metadata upload failed, using mock hash", "err", err)
			return &ipfs.PinResult{IpfsHash: u.mockRef(MockPrefix)}, nil
		}
		return nil, err
	}
	u.log.Debug("Pinned weapon metadata", "name", meta.Name, "hash", res.IpfsHash)
	return res, nil
}

func (u *PinningUploader) mockRef(prefix string) string {
	return fmt.Sprintf("%s%d%s", prefix, u.clock.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func attributeOr(meta *Metadata, trait string) any {
	if v, ok := meta.Attribute(trait); ok {
		return v
	}
	return "unknown"
}

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
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidMetadata is returned for documents missing required fields.
var ErrInvalidMetadata = errors.New("forge: metadata requires name, description and attributes")

const (
	// DefaultExternalURL is the site that weapon pages link back to.
	DefaultExternalURL = "https://blacksmith-forge.com"

	// DefaultChainName is recorded in the Blockchain attribute.
	DefaultChainName = "Avalanche"

	// ProvenanceTrait names the attribute carrying the attribute hash.
	ProvenanceTrait = "Provenance"
)

// backgroundColors are the marketplace background colours per rarity.
var backgroundColors = [numRarities]string{"808080", "1eff00", "0070dd", "a335ee", "ff8000"}

// Attribute is a single metadata trait.  Value is a string or a number.
type Attribute struct {
	TraitType   string `json:"trait_type"`
	Value       any    `json:"value"`
	DisplayType string `json:"display_type,omitempty"`
}

// Metadata is the ERC-721 metadata document of a weapon.  It is pinned
// once and referenced by content identifier from the on-chain record.
type Metadata struct {
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Image           string      `json:"image"`
	ExternalURL     string      `json:"external_url,omitempty"`
	BackgroundColor string      `json:"background_color,omitempty"`
	AnimationURL    string      `json:"animation_url,omitempty"`
	Attributes      []Attribute `json:"attributes"`
}

// Validate checks the fields every consumer depends on.
func (m *Metadata) Validate() error {
	if m == nil || m.Name == "" || m.Description == "" || len(m.Attributes) == 0 {
		return ErrInvalidMetadata
	}
	return nil
}

// Attribute returns the value of the named trait.
func (m *Metadata) Attribute(trait string) (any, bool) {
	for _, a := range m.Attributes {
		if a.TraitType == trait {
			return a.Value, true
		}
	}
	return nil, false
}

// MetadataParams is the input of GenerateMetadata.
type MetadataParams struct {
	WeaponType WeaponType
	Tier       uint8
	Rarity     Rarity
	Stats      Stats
	TokenID    string
	CraftedBy  string

	// ImageHash is the CID of the uploaded artwork; empty selects the
	// placeholder image.
	ImageHash string

	// ImageGateway is the gateway base used for image URLs.
	ImageGateway string
	ExternalURL  string
	ChainName    string
}

// GenerateMetadata builds the metadata document of a freshly forged weapon.
func GenerateMetadata(p MetadataParams) (*Metadata, error) {
	def, err := Lookup(p.WeaponType, p.Tier)
	if err != nil {
		return nil, err
	}
	if !p.Rarity.Valid() {
		return nil, fmt.Errorf("forge: invalid rarity %d", p.Rarity)
	}
	if p.ImageGateway == "" {
		p.ImageGateway = ipfs.DefaultGateways[0]
	}
	if !strings.HasSuffix(p.ImageGateway, "/") {
		p.ImageGateway += "/"
	}
	if p.ExternalURL == "" {
		p.ExternalURL = DefaultExternalURL
	}
	if p.ChainName == "" {
		p.ChainName = DefaultChainName
	}

	total := p.Stats.Total()
	average := int(math.Round(float64(total) / 3))
	power := int(math.Round(float64(total) * (float64(p.Tier) / 10) * float64(p.Rarity+1)))

	typeName, rarityName := p.WeaponType.String(), p.Rarity.String()

	image := PlaceholderImage(p.ImageGateway, p.WeaponType, p.Tier, p.Rarity)
	if p.ImageHash != "" {
		image = p.ImageGateway + ipfs.CID(p.ImageHash)
	}

	meta := &Metadata{
		Name: fmt.Sprintf("%s #%s", def.Name, p.TokenID),
		Description: fmt.Sprintf("%s\n\nThis %s %s was masterfully forged by a skilled blacksmith on the %s blockchain. "+
			"Each weapon is unique with randomized stats and exists as a verifiable NFT.\n\nForged by: %s",
			def.Description, strings.ToLower(rarityName), strings.ToLower(typeName), p.ChainName, shortAddress(p.CraftedBy)),
		Image:           image,
		ExternalURL:     fmt.Sprintf("%s/weapon/%s", strings.TrimRight(p.ExternalURL, "/"), p.TokenID),
		BackgroundColor: backgroundColors[p.Rarity],
		Attributes: []Attribute{
			{TraitType: "Weapon Type", Value: typeName},
			{TraitType: "Tier", Value: int(p.Tier), DisplayType: "number"},
			{TraitType: "Rarity", Value: rarityName},
			{TraitType: "Damage", Value: p.Stats.Damage, DisplayType: "number"},
			{TraitType: "Durability", Value: p.Stats.Durability, DisplayType: "number"},
			{TraitType: "Speed", Value: p.Stats.Speed, DisplayType: "number"},
			{TraitType: "Total Stats", Value: total, DisplayType: "number"},
			{TraitType: "Average Stat", Value: average, DisplayType: "number"},
			{TraitType: "Power Level", Value: power, DisplayType: "number"},
			{TraitType: "Generation", Value: "Genesis"},
			{TraitType: "Blockchain", Value: p.ChainName},
		},
	}
	meta.Attributes = append(meta.Attributes, Attribute{
		TraitType: ProvenanceTrait,
		Value:     HashAttributes(meta.Attributes).Hex(),
	})
	return meta, nil
}

// PlaceholderImage is the pre-rendered artwork used when no custom image
// could be uploaded.
func PlaceholderImage(gateway string, t WeaponType, tier uint8, r Rarity) string {
	return fmt.Sprintf("%sweapon-images/%s-tier%d-%s.png",
		gateway, strings.ToLower(t.String()), tier, strings.ToLower(r.String()))
}

// HashAttributes computes the keccak256 hash of the canonical JSON encoding
// of attrs.  Attributes are sorted by trait type and the provenance trait
// itself is excluded, so the hash is stable under reordering.
func HashAttributes(attrs []Attribute) common.Hash {
	sorted := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		if a.TraitType != ProvenanceTrait {
			sorted = append(sorted, a)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TraitType < sorted[j].TraitType
	})
	// Normalise numbers so decoded documents (float64) hash like fresh ones.
	for i, a := range sorted {
		switch v := a.Value.(type) {
		case int:
			sorted[i].Value = float64(v)
		case float64:
			sorted[i].Value = v
		}
	}
	canonical, _ := json.Marshal(sorted)
	return common.BytesToHash(crypto.Keccak256(canonical))
}

// VerifyProvenance reports whether the document's provenance attribute
// matches its other attributes.
func VerifyProvenance(m *Metadata) bool {
	v, ok := m.Attribute(ProvenanceTrait)
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s == HashAttributes(m.Attributes).Hex()
}

// shortAddress renders 0x1234...abcd, or "Blacksmith" when the creator is
// not known yet.
func shortAddress(addr string) string {
	if addr == "" || addr == "TBD" {
		return "Blacksmith"
	}
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

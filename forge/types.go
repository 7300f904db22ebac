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

// Package forge defines the off-chain side of the weapon forging game.  It
// mirrors the on-chain BlacksmithNFT records, prepares the artwork and
// metadata of new weapons, drives the mint transaction and hydrates players'
// collections.  Leveling, rarity rolls and fee enforcement stay on-chain.
package forge

import (
	"fmt"
	"strings"
)

// WeaponType mirrors the on-chain BlacksmithNFT.WeaponType enum.
type WeaponType uint8

const (
	Sword WeaponType = iota
	Bow
	Axe

	numWeaponTypes = 3
)

// String returns the display name of the weapon type.
func (t WeaponType) String() string {
	switch t {
	case Sword:
		return "Sword"
	case Bow:
		return "Bow"
	case Axe:
		return "Axe"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of the three known weapon types.
func (t WeaponType) Valid() bool { return t < numWeaponTypes }

// ParseWeaponType accepts a display name (case-insensitive) or a number.
func ParseWeaponType(s string) (WeaponType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sword", "0":
		return Sword, nil
	case "bow", "1":
		return Bow, nil
	case "axe", "2":
		return Axe, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeaponType, s)
}

// Rarity mirrors the on-chain BlacksmithNFT.Rarity enum.
type Rarity uint8

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
	Legendary

	numRarities = 5
)

var rarityNames = [numRarities]string{"Common", "Uncommon", "Rare", "Epic", "Legendary"}

// String returns the display name of the rarity.
func (r Rarity) String() string {
	if !r.Valid() {
		return "Unknown"
	}
	return rarityNames[r]
}

// Valid reports whether r is within the closed rarity range.
func (r Rarity) Valid() bool { return r < numRarities }

// ParseRarity accepts a display name (case-insensitive) or a number.
func ParseRarity(s string) (Rarity, error) {
	s = strings.TrimSpace(s)
	for i, name := range rarityNames {
		if strings.EqualFold(s, name) || s == fmt.Sprint(i) {
			return Rarity(i), nil
		}
	}
	return 0, fmt.Errorf("forge: invalid rarity %q", s)
}

const (
	MinTier = 1
	MaxTier = 10
)

// ValidTier reports whether tier is within [MinTier, MaxTier].
func ValidTier(tier uint8) bool { return tier >= MinTier && tier <= MaxTier }

// Weapon is the read-only projection of an on-chain weapon record.
type Weapon struct {
	TokenID    string     `json:"tokenId"`
	WeaponType WeaponType `json:"weaponType"`
	Tier       uint8      `json:"tier"`
	Rarity     Rarity     `json:"rarity"`
	Damage     uint16     `json:"damage"`
	Durability uint16     `json:"durability"`
	Speed      uint16     `json:"speed"`

	// CraftedAt is the mint time in milliseconds since the epoch.
	CraftedAt int64  `json:"craftedAt"`
	CraftedBy string `json:"craftedBy"`

	// IPFSHash references the off-chain metadata document.  It may be a
	// placeholder if the metadata upload failed at forge time.
	IPFSHash string `json:"ipfsHash"`
}

// TotalStats is the sum of the three stat values.
func (w *Weapon) TotalStats() int {
	return int(w.Damage) + int(w.Durability) + int(w.Speed)
}

// Validate checks the closed ranges of the record.
func (w *Weapon) Validate() error {
	if !w.WeaponType.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWeaponType, w.WeaponType)
	}
	if !ValidTier(w.Tier) {
		return fmt.Errorf("%w: %d", ErrInvalidTier, w.Tier)
	}
	if !w.Rarity.Valid() {
		return fmt.Errorf("forge: invalid rarity %d", w.Rarity)
	}
	return nil
}

// Player is the on-chain player profile.
type Player struct {
	Level         uint16 `json:"level"`
	Experience    uint32 `json:"experience"`
	SwordsCrafted uint16 `json:"swordsCrafted"`
	BowsCrafted   uint16 `json:"bowsCrafted"`
	AxesCrafted   uint16 `json:"axesCrafted"`
	IsRegistered  bool   `json:"isRegistered"`
}

// TotalCrafted sums the per-type craft counters.
func (p *Player) TotalCrafted() int {
	return int(p.SwordsCrafted) + int(p.BowsCrafted) + int(p.AxesCrafted)
}

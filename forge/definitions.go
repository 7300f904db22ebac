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

import "fmt"

// Stats holds the three weapon stats.
type Stats struct {
	Damage     int `json:"damage"`
	Durability int `json:"durability"`
	Speed      int `json:"speed"`
}

// Total is the sum of all stats.
func (s Stats) Total() int { return s.Damage + s.Durability + s.Speed }

// Definition is the static catalogue entry for one (type, tier) pair.
type Definition struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	RequiredLevel int    `json:"requiredLevel"`
	BaseStats     Stats  `json:"baseStats"`
}

// Definitions is indexed by weapon type, then tier-1.
var Definitions = [numWeaponTypes][MaxTier]Definition{
	Sword: {
		{"Iron Sword", "A basic but reliable blade", 1, Stats{30, 50, 35}},
		{"Steel Sword", "Stronger and sharper than iron", 11, Stats{40, 60, 40}},
		{"Silver Sword", "Gleaming blade with magical properties", 21, Stats{50, 70, 45}},
		{"Mithril Sword", "Lightweight yet incredibly strong", 31, Stats{60, 80, 55}},
		{"Enchanted Sword", "Imbued with arcane energies", 41, Stats{70, 90, 50}},
		{"Dragon Sword", "Forged from dragon scales and fire", 51, Stats{80, 100, 60}},
		{"Celestial Blade", "Blessed by the stars above", 61, Stats{90, 110, 65}},
		{"Demon Slayer", "Bane of all dark creatures", 71, Stats{100, 120, 70}},
		{"Phoenix Sword", "Reborn from eternal flames", 81, Stats{110, 130, 75}},
		{"Excalibur", "The legendary sword of kings", 91, Stats{120, 150, 80}},
	},
	Bow: {
		{"Wooden Bow", "Simple hunting bow", 1, Stats{25, 40, 50}},
		{"Composite Bow", "Reinforced with horn and sinew", 11, Stats{35, 50, 55}},
		{"Elvish Bow", "Crafted by forest dwellers", 21, Stats{45, 60, 65}},
		{"Recurve Bow", "Advanced design for more power", 31, Stats{55, 70, 70}},
		{"Longbow", "Maximum range and penetration", 41, Stats{65, 80, 60}},
		{"Shadow Bow", "Silent death from the darkness", 51, Stats{75, 90, 80}},
		{"Storm Bow", "Crackling with lightning energy", 61, Stats{85, 100, 85}},
		{"Ice Bow", "Freezes enemies with each shot", 71, Stats{95, 110, 75}},
		{"Solar Bow", "Harnesses the power of the sun", 81, Stats{105, 120, 90}},
		{"Phoenix Longbow", "Arrows that never miss their mark", 91, Stats{115, 140, 95}},
	},
	Axe: {
		{"Stone Axe", "Primitive but effective", 1, Stats{35, 60, 25}},
		{"Iron Axe", "Sharp metal edge", 11, Stats{45, 70, 30}},
		{"Battle Axe", "Designed for war", 21, Stats{55, 80, 35}},
		{"Dwarven Axe", "Masterwork of mountain smiths", 31, Stats{65, 95, 40}},
		{"Berserker Axe", "Fueled by rage and bloodlust", 41, Stats{75, 85, 50}},
		{"Frost Axe", "Chills enemies to the bone", 51, Stats{85, 100, 45}},
		{"Molten Axe", "Blazing hot metal edge", 61, Stats{95, 110, 55}},
		{"Void Axe", "Tears through reality itself", 71, Stats{105, 120, 60}},
		{"Titan Axe", "Wielded by giants of old", 81, Stats{115, 135, 50}},
		{"Thunderstrike Axe", "Each swing calls down lightning", 91, Stats{125, 150, 65}},
	},
}

// Lookup returns the catalogue entry for (t, tier).
func Lookup(t WeaponType, tier uint8) (Definition, error) {
	if !t.Valid() {
		return Definition{}, fmt.Errorf("%w: %d", ErrInvalidWeaponType, t)
	}
	if !ValidTier(tier) {
		return Definition{}, fmt.Errorf("%w: %d", ErrInvalidTier, tier)
	}
	return Definitions[t][tier-1], nil
}

// UnlockedTiers returns the tiers of t whose required level is at most level.
func UnlockedTiers(t WeaponType, level int) []uint8 {
	if !t.Valid() {
		return nil
	}
	var tiers []uint8
	for i, def := range Definitions[t] {
		if def.RequiredLevel <= level {
			tiers = append(tiers, uint8(i+1))
		}
	}
	return tiers
}

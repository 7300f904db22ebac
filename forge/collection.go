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
	"fmt"
	"math"
	"sort"
	"strings"
)

// SortOrder orders a collection listing.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortRarity SortOrder = "rarity"
	SortStats  SortOrder = "stats"
)

// ParseSortOrder parses a sort key; "" selects SortNewest.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(s)); o {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortRarity, SortStats:
		return o, nil
	default:
		return "", fmt.Errorf("forge: unknown sort order %q", s)
	}
}

// Filter selects and orders weapons of a collection.  Nil pointers and a
// zero tier match everything.
type Filter struct {
	WeaponType *WeaponType `json:"weaponType,omitempty"`
	Rarity     *Rarity     `json:"rarity,omitempty"`
	Tier       uint8       `json:"tier,omitempty"`

	// Query matches token ids by case-insensitive substring.
	Query  string    `json:"query,omitempty"`
	SortBy SortOrder `json:"sortBy,omitempty"`
}

// Match reports whether w passes the filter.
func (f *Filter) Match(w *WeaponView) bool {
	if f.WeaponType != nil && w.WeaponType != *f.WeaponType {
		return false
	}
	if f.Rarity != nil && w.Rarity != *f.Rarity {
		return false
	}
	if f.Tier != 0 && w.Tier != f.Tier {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(w.TokenID), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// Apply returns the matching weapons in the requested order.  The input is
// left untouched.
func (f *Filter) Apply(weapons []*WeaponView) []*WeaponView {
	out := make([]*WeaponView, 0, len(weapons))
	for _, w := range weapons {
		if f == nil || f.Match(w) {
			out = append(out, w)
		}
	}
	order := SortNewest
	if f != nil && f.SortBy != "" {
		order = f.SortBy
	}
	var less func(a, b *WeaponView) bool
	switch order {
	case SortOldest:
		less = func(a, b *WeaponView) bool { return a.CraftedAt < b.CraftedAt }
	case SortRarity:
		less = func(a, b *WeaponView) bool { return a.Rarity > b.Rarity }
	case SortStats:
		less = func(a, b *WeaponView) bool { return a.TotalStats() > b.TotalStats() }
	default:
		less = func(a, b *WeaponView) bool { return a.CraftedAt > b.CraftedAt }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// CollectionStats summarises a collection.
type CollectionStats struct {
	Total        int            `json:"total"`
	ByType       map[string]int `json:"byType"`
	ByRarity     map[string]int `json:"byRarity"`
	AverageStats Stats          `json:"averageStats"`
	HighestTier  uint8          `json:"highestTier"`
	Legendary    int            `json:"legendary"`

	// TotalValue is the sum of all stats of all weapons.
	TotalValue int `json:"totalValue"`
}

// Summarize computes the statistics of a collection.
func Summarize(weapons []*WeaponView) CollectionStats {
	st := CollectionStats{
		Total:    len(weapons),
		ByType:   make(map[string]int, numWeaponTypes),
		ByRarity: make(map[string]int, numRarities),
	}
	for t := WeaponType(0); t < numWeaponTypes; t++ {
		st.ByType[t.String()] = 0
	}
	for r := Rarity(0); r < numRarities; r++ {
		st.ByRarity[r.String()] = 0
	}
	var sum Stats
	for _, w := range weapons {
		st.ByType[w.WeaponType.String()]++
		st.ByRarity[w.Rarity.String()]++
		if w.Rarity == Legendary {
			st.Legendary++
		}
		st.HighestTier = max(st.HighestTier, w.Tier)
		sum.Damage += int(w.Damage)
		sum.Durability += int(w.Durability)
		sum.Speed += int(w.Speed)
	}
	st.TotalValue = sum.Total()
	if n := float64(len(weapons)); n > 0 {
		st.AverageStats = Stats{
			Damage:     int(math.Round(float64(sum.Damage) / n)),
			Durability: int(math.Round(float64(sum.Durability) / n)),
			Speed:      int(math.Round(float64(sum.Speed) / n)),
		}
	}
	return st
}

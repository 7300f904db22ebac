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
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(id string, t WeaponType, tier uint8, r Rarity, dmg uint16, at int64) *WeaponView {
	return &WeaponView{Weapon: Weapon{
		TokenID: id, WeaponType: t, Tier: tier, Rarity: r,
		Damage: dmg, Durability: 10, Speed: 10, CraftedAt: at,
	}}
}

func sampleCollection() []*WeaponView {
	return []*WeaponView{
		view("1", Sword, 1, Common, 30, 1000),
		view("2", Bow, 3, Legendary, 45, 3000),
		view("12", Axe, 2, Rare, 60, 2000),
		view("21", Sword, 5, Epic, 20, 4000),
	}
}

func ids(views []*WeaponView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.TokenID
	}
	return out
}

func TestFilterSort(t *testing.T) {
	all := sampleCollection()
	tests := []struct {
		order SortOrder
		want  []string
	}{
		{SortNewest, []string{"21", "2", "12", "1"}},
		{SortOldest, []string{"1", "12", "2", "21"}},
		{SortRarity, []string{"2", "21", "12", "1"}},
		{SortStats, []string{"12", "2", "1", "21"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			assert.Equal(t, tt.want, ids((&Filter{SortBy: tt.order}).Apply(all)))
		})
	}
	assert.Equal(t, []string{"1", "2", "12", "21"}, ids(all), "input untouched")
}

func TestFilterMatch(t *testing.T) {
	all := sampleCollection()
	sword, epic := Sword, Epic

	assert.Equal(t, []string{"21", "1"}, ids((&Filter{WeaponType: &sword}).Apply(all)))
	assert.Equal(t, []string{"21"}, ids((&Filter{WeaponType: &sword, Rarity: &epic}).Apply(all)))
	assert.Equal(t, []string{"12"}, ids((&Filter{Tier: 2}).Apply(all)))
	assert.Equal(t, []string{"21", "2", "12", "1"}, ids((*Filter)(nil).Apply(all)))

	// Query matches token ids by substring.
	assert.Equal(t, []string{"21", "12", "1"}, ids((&Filter{Query: "1"}).Apply(all)))
	assert.Empty(t, (&Filter{Query: "x"}).Apply(all))
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortNewest, o)
	o, err = ParseSortOrder("Rarity")
	require.NoError(t, err)
	assert.Equal(t, SortRarity, o)
	_, err = ParseSortOrder("price")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	st := Summarize(sampleCollection())
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.ByType["Sword"])
	assert.Equal(t, 1, st.ByType["Bow"])
	assert.Equal(t, 0, st.ByRarity["Uncommon"])
	assert.Equal(t, 1, st.Legendary)
	assert.Equal(t, uint8(5), st.HighestTier)
	assert.Equal(t, 155+80, st.TotalValue)
	assert.Equal(t, Stats{Damage: 39, Durability: 10, Speed: 10}, st.AverageStats)

	empty := Summarize(nil)
	assert.Zero(t, empty.Total)
	assert.Equal(t, Stats{}, empty.AverageStats)
	assert.Len(t, empty.ByType, 3)
}

func TestFees(t *testing.T) {
	assert.Equal(t, uint64(150_000), PadGasLimit(100_000))
	assert.Equal(t, uint64(1), PadGasLimit(1), "rounds down")

	wei, err := ParseEther("0.001")
	require.NoError(t, err)
	assert.Equal(t, DefaultMintingFee, wei)
	assert.Equal(t, "0.001", FormatEther(wei))

	wei, err = ParseEther("2")
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", wei.String())
	assert.Equal(t, "2", FormatEther(wei))
	assert.Equal(t, "1.5", FormatEther(big.NewInt(1_500_000_000_000_000_000)))

	_, err = ParseEther("-1")
	assert.ErrorIs(t, err, ErrNegativeFee)
	_, err = ParseEther("abc")
	assert.ErrorIs(t, err, ErrInvalidFee)
	_, err = ParseEther("0.0000000000000000001")
	assert.ErrorIs(t, err, ErrInvalidFee)
}

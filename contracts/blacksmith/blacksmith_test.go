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

package blacksmith

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestABISurface(t *testing.T) {
	parsed, err := ParseABI()
	require.NoError(t, err)
	for _, m := range []string{"forgeWeapon", "getPlayer", "getPlayerWeapons", "getWeapon", "canCraftTier", "estimateForgeGas", "MINTING_FEE"} {
		assert.Contains(t, parsed.Methods, m)
	}
	assert.True(t, parsed.Methods["forgeWeapon"].IsPayable())
}

func TestTupleLayouts(t *testing.T) {
	parsed, err := ParseABI()
	require.NoError(t, err)

	player := PlayerInfo{Level: 3, Experience: 250, SwordsCrafted: 2, AxesCrafted: 1, IsRegistered: true}
	data, err := parsed.Methods["getPlayer"].Outputs.Pack(player)
	require.NoError(t, err)
	out, err := parsed.Methods["getPlayer"].Outputs.Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, player, *abi.ConvertType(out[0], new(PlayerInfo)).(*PlayerInfo))

	weapon := WeaponInfo{
		WeaponType: 1, Tier: 4, Rarity: 3,
		Damage: 71, Durability: 60, Speed: 88,
		CraftedAt: 1700000000,
		CraftedBy: common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678"),
		IpfsHash:  "bafyweapon",
	}
	data, err = parsed.Methods["getWeapon"].Outputs.Pack(weapon)
	require.NoError(t, err)
	out, err = parsed.Methods["getWeapon"].Outputs.Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, weapon, *abi.ConvertType(out[0], new(WeaponInfo)).(*WeaponInfo))
}

func TestMintedTokenID(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000b1ac5")
	nft, err := NewBlacksmithNFT(addr, nil)
	require.NoError(t, err)

	owner := common.HexToAddress("0xabc")
	transferID := nft.abi.Events["Transfer"].ID
	mint := &types.Log{
		Address: addr,
		Topics: []common.Hash{
			transferID,
			{},
			common.BytesToHash(owner.Bytes()),
			common.BigToHash(big.NewInt(77)),
		},
	}
	foreign := &types.Log{Address: common.HexToAddress("0xdead"), Topics: mint.Topics}

	id, err := nft.MintedTokenID(&types.Receipt{Logs: []*types.Log{foreign, mint}})
	require.NoError(t, err)
	assert.Equal(t, int64(77), id.Int64())

	_, err = nft.MintedTokenID(&types.Receipt{Logs: []*types.Log{foreign}})
	assert.ErrorIs(t, err, ErrNoTransferEvent)
}

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

// Package blacksmith provides high-level Go bindings for the BlacksmithNFT
// contract: forging weapon NFTs and reading players and weapons.
package blacksmith

import (
	"errors"
	"math/big"
	"strings"

	"github.com/blacksmith-forge/blacksmith/contracts/blacksmith/contract"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNoTransferEvent is returned when a receipt carries no mint event of
// this contract.
var ErrNoTransferEvent = errors.New("blacksmith: receipt has no Transfer event")

// BlacksmithNFT is a high-level wrapper around the on-chain BlacksmithNFT contract.
type BlacksmithNFT struct {
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract
}

// NewBlacksmithNFT connects to an already-deployed BlacksmithNFT contract.
func NewBlacksmithNFT(addr common.Address, backend bind.ContractBackend) (*BlacksmithNFT, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, err
	}
	return &BlacksmithNFT{
		abi:      parsed,
		address:  addr,
		contract: bind.NewBoundContract(addr, parsed, backend, backend, backend),
	}, nil
}

// ParseABI parses the embedded contract ABI.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(contract.BlacksmithNFTABI))
}

// Address returns the contract address.
func (b *BlacksmithNFT) Address() common.Address { return b.address }

// ──────────────────────────────────────────────
//  Write methods
// ──────────────────────────────────────────────

// ForgeWeapon mints a new weapon. opts.Value must carry at least the
// minting fee.
func (b *BlacksmithNFT) ForgeWeapon(opts *bind.TransactOpts, weaponType, tier uint8, ipfsHash string) (*types.Transaction, error) {
	return b.contract.Transact(opts, "forgeWeapon", weaponType, tier, ipfsHash)
}

// ──────────────────────────────────────────────
//  Read methods
// ──────────────────────────────────────────────

// PlayerInfo mirrors the contract's Player struct.
type PlayerInfo struct {
	Level         uint16
	Experience    uint32
	SwordsCrafted uint16
	BowsCrafted   uint16
	AxesCrafted   uint16
	IsRegistered  bool
}

// WeaponInfo mirrors the contract's Weapon struct.
type WeaponInfo struct {
	WeaponType uint8
	Tier       uint8
	Rarity     uint8
	Damage     uint16
	Durability uint16
	Speed      uint16
	CraftedAt  uint32
	CraftedBy  common.Address
	IpfsHash   string
}

// GetPlayer reads a player's profile. Unknown addresses return a zero,
// unregistered profile.
func (b *BlacksmithNFT) GetPlayer(opts *bind.CallOpts, player common.Address) (*PlayerInfo, error) {
	var out []interface{}
	if err := b.contract.Call(opts, &out, "getPlayer", player); err != nil {
		return nil, err
	}
	info := *abi.ConvertType(out[0], new(PlayerInfo)).(*PlayerInfo)
	return &info, nil
}

// GetPlayerWeapons returns the token ids owned by player.
func (b *BlacksmithNFT) GetPlayerWeapons(opts *bind.CallOpts, player common.Address) ([]*big.Int, error) {
	var out []interface{}
	if err := b.contract.Call(opts, &out, "getPlayerWeapons", player); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

// GetWeapon reads a single weapon record.
func (b *BlacksmithNFT) GetWeapon(opts *bind.CallOpts, tokenId *big.Int) (*WeaponInfo, error) {
	var out []interface{}
	if err := b.contract.Call(opts, &out, "getWeapon", tokenId); err != nil {
		return nil, err
	}
	info := *abi.ConvertType(out[0], new(WeaponInfo)).(*WeaponInfo)
	return &info, nil
}

// CanCraftTier reports whether player's level allows forging tier.
func (b *BlacksmithNFT) CanCraftTier(opts *bind.CallOpts, player common.Address, tier uint8) (bool, error) {
	var out []interface{}
	if err := b.contract.Call(opts, &out, "canCraftTier", player, tier); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// EstimateForgeGas returns the contract's own gas estimate for a forge by player.
func (b *BlacksmithNFT) EstimateForgeGas(opts *bind.CallOpts, player common.Address) (*big.Int, error) {
	var out []interface{}
	if err := b.contract.Call(opts, &out, "estimateForgeGas", player); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// MintingFee returns the fee in wei every forge must carry.
func (b *BlacksmithNFT) MintingFee(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := b.contract.Call(opts, &out, "MINTING_FEE"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ──────────────────────────────────────────────
//  Events
// ──────────────────────────────────────────────

// Transfer is the ERC-721 Transfer event.
type Transfer struct {
	From    common.Address
	To      common.Address
	TokenId *big.Int
	Raw     types.Log
}

// MintedTokenID scans a receipt for the mint (Transfer from the zero
// address) emitted by this contract and returns its token id.
func (b *BlacksmithNFT) MintedTokenID(receipt *types.Receipt) (*big.Int, error) {
	ev := b.abi.Events["Transfer"]
	for _, lg := range receipt.Logs {
		if lg.Address != b.address || len(lg.Topics) != 4 || lg.Topics[0] != ev.ID {
			continue
		}
		out := new(Transfer)
		if err := b.contract.UnpackLog(out, "Transfer", *lg); err != nil {
			return nil, err
		}
		if out.From == (common.Address{}) {
			return out.TokenId, nil
		}
	}
	return nil, ErrNoTransferEvent
}

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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainBackend is the contract surface the forge service consumes.  The
// contract owns leveling, rarity rolls and fee enforcement; this interface
// only reads its state and submits forge transactions.
type ChainBackend interface {
	// Account returns the signing account, or the zero address for a
	// read-only backend.
	Account() common.Address

	// Player reads a player profile.
	Player(ctx context.Context, addr common.Address) (*Player, error)

	// PlayerWeapons returns the token ids owned by addr.
	PlayerWeapons(ctx context.Context, addr common.Address) ([]*big.Int, error)

	// Weapon reads a weapon record.  CraftedAt is converted to milliseconds.
	Weapon(ctx context.Context, tokenID *big.Int) (*Weapon, error)

	// MintingFee returns the fee every forge must carry, in wei.
	MintingFee(ctx context.Context) (*big.Int, error)

	// EstimateForgeGas returns the contract's gas estimate for a forge by addr.
	EstimateForgeGas(ctx context.Context, addr common.Address) (uint64, error)

	// CanCraftTier reports whether addr may forge the given tier.
	CanCraftTier(ctx context.Context, addr common.Address, tier uint8) (bool, error)

	// PendingNonce returns the next nonce of addr including pending
	// transactions.
	PendingNonce(ctx context.Context, addr common.Address) (uint64, error)

	// ForgeWeapon signs and sends a forge transaction.
	ForgeWeapon(ctx context.Context, call ForgeCall) (*types.Transaction, error)

	// WaitMined blocks until tx is included in a block.
	WaitMined(ctx context.Context, tx *types.Transaction) (*Receipt, error)
}

// ForgeCall carries the arguments and transaction parameters of a forge.
type ForgeCall struct {
	WeaponType  WeaponType
	Tier        uint8
	MetadataRef string
	Value       *big.Int
	GasLimit    uint64
	Nonce       uint64
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash      common.Hash `json:"txHash"`
	Status      uint64      `json:"status"`
	BlockNumber uint64      `json:"blockNumber"`
	GasUsed     uint64      `json:"gasUsed"`

	// TokenID is the minted token, when the receipt carries the mint event.
	TokenID *big.Int `json:"tokenId,omitempty"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool { return r.Status == types.ReceiptStatusSuccessful }

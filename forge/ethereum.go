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
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/blacksmith-forge/blacksmith/contracts/blacksmith"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ContractBackend is what EthereumBackend needs from a node connection.
// *ethclient.Client satisfies it.
type ContractBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// EthereumBackend implements ChainBackend for the BlacksmithNFT contract on
// any EVM chain.
type EthereumBackend struct {
	backend ContractBackend
	nft     *blacksmith.BlacksmithNFT
	opts    *bind.TransactOpts // nil for read-only backends
}

// NewEthereumBackend wires a backend to a deployed BlacksmithNFT contract.
// opts may be nil, in which case ForgeWeapon fails with ErrNoSigner.
func NewEthereumBackend(backend ContractBackend, nft *blacksmith.BlacksmithNFT, opts *bind.TransactOpts) *EthereumBackend {
	return &EthereumBackend{backend: backend, nft: nft, opts: opts}
}

// DialEthereum connects to rpcURL and binds the contract at addr.  With a
// non-nil key the backend signs forge transactions for the key's account.
func DialEthereum(ctx context.Context, rpcURL string, addr common.Address, key *ecdsa.PrivateKey) (*EthereumBackend, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("forge: failed to dial %s: %w", rpcURL, err)
	}
	nft, err := blacksmith.NewBlacksmithNFT(addr, client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	var opts *bind.TransactOpts
	if key != nil {
		chainID, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("forge: failed to read chain id: %w", err)
		}
		if opts, err = bind.NewKeyedTransactorWithChainID(key, chainID); err != nil {
			client.Close()
			return nil, nil, err
		}
	}
	return NewEthereumBackend(client, nft, opts), client, nil
}

func (e *EthereumBackend) Account() common.Address {
	if e.opts == nil {
		return common.Address{}
	}
	return e.opts.From
}

func (e *EthereumBackend) call(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: e.Account()}
}

func (e *EthereumBackend) Player(ctx context.Context, addr common.Address) (*Player, error) {
	info, err := e.nft.GetPlayer(e.call(ctx), addr)
	if err != nil {
		return nil, err
	}
	return &Player{
		Level:         info.Level,
		Experience:    info.Experience,
		SwordsCrafted: info.SwordsCrafted,
		BowsCrafted:   info.BowsCrafted,
		AxesCrafted:   info.AxesCrafted,
		IsRegistered:  info.IsRegistered,
	}, nil
}

func (e *EthereumBackend) PlayerWeapons(ctx context.Context, addr common.Address) ([]*big.Int, error) {
	return e.nft.GetPlayerWeapons(e.call(ctx), addr)
}

func (e *EthereumBackend) Weapon(ctx context.Context, tokenID *big.Int) (*Weapon, error) {
	info, err := e.nft.GetWeapon(e.call(ctx), tokenID)
	if err != nil {
		return nil, err
	}
	return &Weapon{
		TokenID:    tokenID.String(),
		WeaponType: WeaponType(info.WeaponType),
		Tier:       info.Tier,
		Rarity:     Rarity(info.Rarity),
		Damage:     info.Damage,
		Durability: info.Durability,
		Speed:      info.Speed,
		CraftedAt:  int64(info.CraftedAt) * 1000,
		CraftedBy:  info.CraftedBy.Hex(),
		IPFSHash:   info.IpfsHash,
	}, nil
}

func (e *EthereumBackend) MintingFee(ctx context.Context) (*big.Int, error) {
	return e.nft.MintingFee(e.call(ctx))
}

func (e *EthereumBackend) EstimateForgeGas(ctx context.Context, addr common.Address) (uint64, error) {
	gas, err := e.nft.EstimateForgeGas(e.call(ctx), addr)
	if err != nil {
		return 0, err
	}
	if !gas.IsUint64() {
		return 0, fmt.Errorf("forge: gas estimate %s out of range", gas)
	}
	return gas.Uint64(), nil
}

func (e *EthereumBackend) CanCraftTier(ctx context.Context, addr common.Address, tier uint8) (bool, error) {
	return e.nft.CanCraftTier(e.call(ctx), addr, tier)
}

func (e *EthereumBackend) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	return e.backend.PendingNonceAt(ctx, addr)
}

func (e *EthereumBackend) ForgeWeapon(ctx context.Context, call ForgeCall) (*types.Transaction, error) {
	if e.opts == nil {
		return nil, ErrNoSigner
	}
	// Per-call copy; the shared opts never carry call-specific values.
	opts := *e.opts
	opts.Context = ctx
	opts.Value = call.Value
	opts.GasLimit = call.GasLimit
	opts.Nonce = new(big.Int).SetUint64(call.Nonce)

	return e.nft.ForgeWeapon(&opts, uint8(call.WeaponType), call.Tier, call.MetadataRef)
}

func (e *EthereumBackend) WaitMined(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	receipt, err := bind.WaitMined(ctx, e.backend, tx)
	if err != nil {
		return nil, err
	}
	out := &Receipt{
		TxHash:  receipt.TxHash,
		Status:  receipt.Status,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if id, err := e.nft.MintedTokenID(receipt); err == nil {
		out.TokenID = id
	}
	return out, nil
}

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

package relay

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/blacksmith-forge/blacksmith/forge"
	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	forgerAccount = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	ownerAccount  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

// stubChain is a ChainBackend serving fixed records.
type stubChain struct {
	mu       sync.Mutex
	level    uint16
	weapons  map[string]*forge.Weapon
	owned    []*big.Int
	forgeErr error
	sent     []forge.ForgeCall
}

func newStubChain() *stubChain {
	return &stubChain{
		level: 3,
		weapons: map[string]*forge.Weapon{
			"1": {TokenID: "1", WeaponType: forge.Sword, Tier: 1, Rarity: forge.Common, Damage: 25, Durability: 40, Speed: 30, CraftedAt: 1000, IPFSHash: "bafymeta1"},
			"2": {TokenID: "2", WeaponType: forge.Bow, Tier: 2, Rarity: forge.Legendary, Damage: 50, Durability: 45, Speed: 60, CraftedAt: 2000, IPFSHash: "fallback_2000_abc"},
			"3": {TokenID: "3", WeaponType: forge.Axe, Tier: 1, Rarity: forge.Rare, Damage: 35, Durability: 55, Speed: 20, CraftedAt: 3000, IPFSHash: "QmMock3000deadbeef"},
		},
		owned: []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)},
	}
}

func (c *stubChain) Account() common.Address { return forgerAccount }

func (c *stubChain) Player(ctx context.Context, addr common.Address) (*forge.Player, error) {
	return &forge.Player{Level: c.level, Experience: 250, SwordsCrafted: 1, BowsCrafted: 1, AxesCrafted: 1, IsRegistered: true}, nil
}

func (c *stubChain) PlayerWeapons(ctx context.Context, addr common.Address) ([]*big.Int, error) {
	if addr != ownerAccount {
		return nil, nil
	}
	return c.owned, nil
}

func (c *stubChain) Weapon(ctx context.Context, id *big.Int) (*forge.Weapon, error) {
	w, ok := c.weapons[id.String()]
	if !ok {
		return nil, errors.New("execution reverted: ERC721: invalid token ID")
	}
	cpy := *w
	return &cpy, nil
}

func (c *stubChain) MintingFee(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1e15), nil
}

func (c *stubChain) EstimateForgeGas(ctx context.Context, addr common.Address) (uint64, error) {
	return 200000, nil
}

func (c *stubChain) CanCraftTier(ctx context.Context, addr common.Address, tier uint8) (bool, error) {
	return tier <= 2, nil
}

func (c *stubChain) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	return 3, nil
}

func (c *stubChain) ForgeWeapon(ctx context.Context, call forge.ForgeCall) (*types.Transaction, error) {
	if c.forgeErr != nil {
		return nil, c.forgeErr
	}
	c.mu.Lock()
	c.sent = append(c.sent, call)
	c.mu.Unlock()
	return types.NewTx(&types.LegacyTx{Nonce: call.Nonce, Gas: call.GasLimit, Value: call.Value}), nil
}

func (c *stubChain) WaitMined(ctx context.Context, tx *types.Transaction) (*forge.Receipt, error) {
	return &forge.Receipt{TxHash: tx.Hash(), Status: types.ReceiptStatusSuccessful, BlockNumber: 10, GasUsed: 150000, TokenID: big.NewInt(4)}, nil
}

func (c *stubChain) calls() []forge.ForgeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]forge.ForgeCall(nil), c.sent...)
}

// memPinner records pinned content.
type memPinner struct {
	mu    sync.Mutex
	files []ipfs.PinOptions
	docs  []any
	err   error
}

func (p *memPinner) PinFile(ctx context.Context, data []byte, contentType string, opts ipfs.PinOptions) (*ipfs.PinResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, opts)
	return &ipfs.PinResult{IpfsHash: "bafyimage", PinSize: int64(len(data))}, nil
}

func (p *memPinner) PinJSON(ctx context.Context, content any, opts ipfs.PinOptions) (*ipfs.PinResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs = append(p.docs, content)
	return &ipfs.PinResult{IpfsHash: "bafymeta"}, nil
}

func (p *memPinner) counts() (files, docs int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.files), len(p.docs)
}

// memCache is a MetadataCache backed by a map.
type memCache map[string]*forge.Metadata

func (c memCache) Get(cid string) (*forge.Metadata, bool) {
	m, ok := c[cid]
	return m, ok
}

func (c memCache) Put(cid string, m *forge.Metadata) error {
	c[cid] = m
	return nil
}

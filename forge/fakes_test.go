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
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var testAccount = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

// fakeChain is an in-memory ChainBackend recording every call.
type fakeChain struct {
	mu    sync.Mutex
	calls []string

	account  common.Address
	canCraft bool
	fee      *big.Int
	feeErr   error
	gas      uint64
	nonce    uint64
	forgeErr error
	status   uint64
	tokenID  *big.Int

	// gate, when set, blocks CanCraftTier until closed.
	gate chan struct{}

	sent []ForgeCall

	players   map[common.Address]*Player
	weapons   map[string]*Weapon
	weaponErr map[string]error
	owned     []*big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		account:   testAccount,
		canCraft:  true,
		fee:       big.NewInt(2_000_000_000_000_000),
		gas:       100_000,
		nonce:     7,
		status:    types.ReceiptStatusSuccessful,
		tokenID:   big.NewInt(42),
		players:   make(map[common.Address]*Player),
		weapons:   make(map[string]*Weapon),
		weaponErr: make(map[string]error),
	}
}

func (c *fakeChain) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeChain) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeChain) count(call string) int {
	n := 0
	for _, got := range c.Calls() {
		if got == call {
			n++
		}
	}
	return n
}

func (c *fakeChain) Account() common.Address { return c.account }

func (c *fakeChain) Player(ctx context.Context, addr common.Address) (*Player, error) {
	c.record("getPlayer")
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.players[addr]
	if !ok {
		return &Player{Level: 1}, nil
	}
	cp := *p
	return &cp, nil
}

func (c *fakeChain) PlayerWeapons(ctx context.Context, addr common.Address) ([]*big.Int, error) {
	c.record("getPlayerWeapons")
	return c.owned, nil
}

func (c *fakeChain) Weapon(ctx context.Context, id *big.Int) (*Weapon, error) {
	c.record("getWeapon")
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.weaponErr[id.String()]; err != nil {
		return nil, err
	}
	w, ok := c.weapons[id.String()]
	if !ok {
		return nil, fmt.Errorf("execution reverted: unknown token %s", id)
	}
	cp := *w
	return &cp, nil
}

func (c *fakeChain) MintingFee(ctx context.Context) (*big.Int, error) {
	c.record("MINTING_FEE")
	if c.feeErr != nil {
		return nil, c.feeErr
	}
	return new(big.Int).Set(c.fee), nil
}

func (c *fakeChain) EstimateForgeGas(ctx context.Context, addr common.Address) (uint64, error) {
	c.record("estimateForgeGas")
	return c.gas, nil
}

func (c *fakeChain) CanCraftTier(ctx context.Context, addr common.Address, tier uint8) (bool, error) {
	c.record("canCraftTier")
	if c.gate != nil {
		<-c.gate
	}
	return c.canCraft, nil
}

func (c *fakeChain) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	c.record("pendingNonce")
	return c.nonce, nil
}

func (c *fakeChain) ForgeWeapon(ctx context.Context, call ForgeCall) (*types.Transaction, error) {
	c.record("forgeWeapon")
	if c.forgeErr != nil {
		return nil, c.forgeErr
	}
	c.mu.Lock()
	c.sent = append(c.sent, call)
	c.mu.Unlock()
	return types.NewTx(&types.LegacyTx{Nonce: call.Nonce, Value: call.Value, Gas: call.GasLimit}), nil
}

func (c *fakeChain) WaitMined(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	c.record("waitMined")
	return &Receipt{TxHash: tx.Hash(), Status: c.status, BlockNumber: 100, TokenID: c.tokenID}, nil
}

// fakeUploader records uploads and fails on demand.
type fakeUploader struct {
	mu       sync.Mutex
	images   []ImageInfo
	metas    []*Metadata
	imageErr error
	metaErr  error
}

func (u *fakeUploader) UploadImage(ctx context.Context, png []byte, filename string, info ImageInfo) (*ipfs.PinResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.images = append(u.images, info)
	if u.imageErr != nil {
		return nil, u.imageErr
	}
	if len(png) == 0 {
		return nil, errors.New("empty image")
	}
	return &ipfs.PinResult{IpfsHash: "bafyimage"}, nil
}

func (u *fakeUploader) UploadMetadata(ctx context.Context, meta *Metadata) (*ipfs.PinResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.metas = append(u.metas, meta)
	if u.metaErr != nil {
		return nil, u.metaErr
	}
	return &ipfs.PinResult{IpfsHash: "bafymeta"}, nil
}

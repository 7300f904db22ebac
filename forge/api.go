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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// API exposes the service and the forger over JSON-RPC in the "forge"
// namespace.
type API struct {
	service *Service
	forger  *Forger
}

// NewAPI creates the RPC API.  forger may be nil for read-only deployments.
func NewAPI(service *Service, forger *Forger) *API {
	return &API{service: service, forger: forger}
}

// APIs returns the RPC descriptors to register.
func (api *API) APIs() []rpc.API {
	return []rpc.API{{Namespace: "forge", Service: api}}
}

// Player returns the on-chain profile of addr.
func (api *API) Player(ctx context.Context, addr common.Address) (*Player, error) {
	return api.service.Player(ctx, addr)
}

// Weapon returns a weapon and its metadata.
func (api *API) Weapon(ctx context.Context, tokenID string) (*WeaponView, error) {
	return api.service.Weapon(ctx, tokenID)
}

// Collection returns the filtered collection of owner.
func (api *API) Collection(ctx context.Context, owner common.Address, filter *Filter) (*CollectionResult, error) {
	return api.service.Collection(ctx, owner, filter)
}

// UnlockedTiers returns the tiers of each weapon type a player of the given
// level may forge.  Tiers are widened to int; a []uint8 would be encoded
// as a base64 string.
func (api *API) UnlockedTiers(level int) map[string][]int {
	out := make(map[string][]int, numWeaponTypes)
	for t := WeaponType(0); t < numWeaponTypes; t++ {
		tiers := []int{}
		for _, tier := range UnlockedTiers(t, level) {
			tiers = append(tiers, int(tier))
		}
		out[t.String()] = tiers
	}
	return out
}

// Definition returns the catalogue entry of a weapon.
func (api *API) Definition(weaponType WeaponType, tier uint8) (Definition, error) {
	return Lookup(weaponType, tier)
}

// Forge forges a weapon for the service account.
func (api *API) Forge(ctx context.Context, weaponType WeaponType, tier uint8) (*ForgeResult, error) {
	if api.forger == nil {
		return nil, Classify(ErrNoSigner, nil)
	}
	return api.forger.Forge(ctx, ForgeRequest{WeaponType: weaponType, Tier: tier})
}

// Quote returns the fee and gas limit of a forge by the service account.
func (api *API) Quote(ctx context.Context) (*Quote, error) {
	if api.forger == nil {
		return nil, Classify(ErrNoSigner, nil)
	}
	return api.forger.Quote(ctx)
}

// Status reports the forger state.
func (api *API) Status() map[string]any {
	if api.forger == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled": true,
		"account": api.forger.Account(),
		"state":   api.forger.State().String(),
		"busy":    api.forger.Busy(),
	}
}

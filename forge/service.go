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
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/blacksmith-forge/blacksmith/internal/batch"
	"github.com/blacksmith-forge/blacksmith/internal/dedup"
	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/jonboulle/clockwork"
)

// DefaultPlayerTTL bounds how long a player profile is served from cache.
const DefaultPlayerTTL = 15 * time.Second

// MetadataCache persists fetched metadata documents by CID.  Documents are
// immutable, so entries never expire.
type MetadataCache interface {
	Get(cid string) (*Metadata, bool)
	Put(cid string, meta *Metadata) error
}

// WeaponView is a weapon record joined with its metadata document.
type WeaponView struct {
	Weapon
	Metadata *Metadata `json:"metadata"`
	ImageURL string    `json:"imageUrl,omitempty"`

	// MetadataError is set when the document could not be loaded.
	MetadataError string `json:"metadataError,omitempty"`
}

// CollectionResult is a hydrated, filtered collection.
type CollectionResult struct {
	Weapons []*WeaponView   `json:"weapons"`
	Stats   CollectionStats `json:"stats"`

	// Total is the number of tokens owned; Failed of those could not be
	// loaded.
	Total   int    `json:"total"`
	Failed  int    `json:"failed"`
	Warning string `json:"warning,omitempty"`
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Cache     MetadataCache
	PlayerTTL time.Duration
	WeaponTTL time.Duration
	Batch     batch.Options
	Clock     clockwork.Clock
	Logger    log.Logger
}

// Service answers read queries: player profiles, single weapons and whole
// collections.  Loads of the same key are shared between concurrent callers.
type Service struct {
	chain   ChainBackend
	fetcher *ipfs.Fetcher
	cache   MetadataCache
	batch   batch.Options
	log     log.Logger

	players *dedup.Group[common.Address, *Player]
	weapons *dedup.Group[string, *WeaponView]
}

// NewService creates a read service over a chain backend and an IPFS
// fetcher.
func NewService(chain ChainBackend, fetcher *ipfs.Fetcher, opts ServiceOptions) *Service {
	if opts.PlayerTTL <= 0 {
		opts.PlayerTTL = DefaultPlayerTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Batch.Clock == nil {
		opts.Batch.Clock = opts.Clock
	}
	if opts.Logger == nil {
		opts.Logger = log.Root()
	}
	return &Service{
		chain:   chain,
		fetcher: fetcher,
		cache:   opts.Cache,
		batch:   opts.Batch,
		log:     opts.Logger.With("component", "service"),
		players: dedup.New[common.Address, *Player](opts.PlayerTTL, opts.Clock),
		weapons: dedup.New[string, *WeaponView](opts.WeaponTTL, opts.Clock),
	}
}

// Player returns the profile of addr.
func (s *Service) Player(ctx context.Context, addr common.Address) (*Player, error) {
	return s.players.Do(ctx, addr, func(ctx context.Context) (*Player, error) {
		return s.chain.Player(ctx, addr)
	})
}

// RefreshPlayer drops the cached profile of addr and reads it again.
func (s *Service) RefreshPlayer(ctx context.Context, addr common.Address) (*Player, error) {
	s.players.Forget(addr)
	p, err := s.Player(ctx, addr)
	if err != nil {
		s.log.Warn("Failed to refresh player", "addr", addr, "err", err)
		return nil, err
	}
	s.log.Debug("Refreshed player", "addr", addr, "level", p.Level, "crafted", p.TotalCrafted())
	return p, nil
}

// Weapon returns the weapon with the given token id and its metadata.  A
// metadata failure does not fail the call; it is reported in the view.
func (s *Service) Weapon(ctx context.Context, tokenID string) (*WeaponView, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("forge: invalid token id %q", tokenID)
	}
	key := id.String()
	return s.weapons.Do(ctx, key, func(ctx context.Context) (*WeaponView, error) {
		return s.loadWeapon(ctx, id)
	})
}

func (s *Service) loadWeapon(ctx context.Context, id *big.Int) (*WeaponView, error) {
	w, err := s.chain.Weapon(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("forge: weapon %s: %w", id, err)
	}
	view := &WeaponView{Weapon: *w}
	if IsPlaceholderRef(w.IPFSHash) {
		return view, nil
	}
	meta, err := s.Metadata(ctx, w.IPFSHash)
	if err != nil {
		s.log.Warn("Failed to load weapon metadata", "token", w.TokenID, "ref", w.IPFSHash, "err", err)
		view.MetadataError = err.Error()
		return view, nil
	}
	view.Metadata = meta
	if meta.Image != "" && s.fetcher != nil {
		view.ImageURL = s.fetcher.Resolver().Resolve(meta.Image, 0)
	}
	return view, nil
}

// Metadata loads the metadata document behind ref, from the cache if
// possible.
func (s *Service) Metadata(ctx context.Context, ref string) (*Metadata, error) {
	cid := ipfs.CID(ref)
	if s.cache != nil {
		if meta, ok := s.cache.Get(cid); ok {
			return meta, nil
		}
	}
	if s.fetcher == nil {
		return nil, ipfs.ErrNoGateways
	}
	resp, err := s.fetcher.Fetch(ctx, ref, &ipfs.RequestOptions{
		Header: http.Header{
			"Accept":        {"application/json"},
			"Cache-Control": {"no-cache"},
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("forge: metadata %s: gateway returned %d", cid, resp.StatusCode)
	}
	meta := new(Metadata)
	if err := json.Unmarshal(resp.Body, meta); err != nil {
		return nil, fmt.Errorf("forge: metadata %s: %w", cid, err)
	}
	if s.cache != nil {
		if err := s.cache.Put(cid, meta); err != nil {
			s.log.Warn("Failed to cache metadata", "cid", cid, "err", err)
		}
	}
	return meta, nil
}

// Collection loads every weapon owned by owner in bounded batches and
// applies filter.  Individual failures are tolerated; the call fails with
// ErrCollectionUnavailable only when nothing could be loaded.
func (s *Service) Collection(ctx context.Context, owner common.Address, filter *Filter) (*CollectionResult, error) {
	ids, err := s.chain.PlayerWeapons(ctx, owner)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	results := batch.Process(ctx, keys, s.Weapon, s.batch)
	views, failed := batch.Values(results)

	if len(keys) > 0 && len(views) == 0 {
		var last error
		for _, r := range results {
			if r.Err != nil {
				last = r.Err
			}
		}
		return nil, fmt.Errorf("%w: %d of %d failed: %v", ErrCollectionUnavailable, failed, len(keys), last)
	}
	res := &CollectionResult{
		Weapons: filter.Apply(views),
		Stats:   Summarize(views),
		Total:   len(keys),
		Failed:  failed,
	}
	if failed > 0 {
		res.Warning = fmt.Sprintf("%d of %d weapons could not be loaded", failed, len(keys))
		s.log.Warn("Collection partially loaded", "owner", owner, "failed", failed, "total", len(keys))
	}
	return res, nil
}

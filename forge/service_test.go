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
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/blacksmith-forge/blacksmith/internal/batch"
	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metadataGateway serves metadata documents by CID and counts requests.
type metadataGateway struct {
	*httptest.Server
	hits atomic.Int32
	docs map[string]*Metadata
}

func newMetadataGateway(t *testing.T) *metadataGateway {
	g := &metadataGateway{docs: make(map[string]*Metadata)}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.hits.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		doc, ok := g.docs[strings.TrimPrefix(r.URL.Path, "/ipfs/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(g.Close)
	return g
}

func (g *metadataGateway) fetcher() *ipfs.Fetcher {
	return ipfs.NewFetcher(ipfs.NewResolver([]string{g.URL + "/ipfs/"}, nil), ipfs.FetcherOptions{})
}

type memCache struct {
	mu   sync.Mutex
	docs map[string]*Metadata
}

func (c *memCache) Get(cid string) (*Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.docs[cid]
	return m, ok
}

func (c *memCache) Put(cid string, m *Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[cid] = m
	return nil
}

func sampleMetadata(t *testing.T) *Metadata {
	meta, err := GenerateMetadata(testParams())
	require.NoError(t, err)
	meta.Image = "ipfs://bafyart"
	return meta
}

func TestServiceWeapon(t *testing.T) {
	gw := newMetadataGateway(t)
	gw.docs["bafymeta"] = sampleMetadata(t)

	chain := newFakeChain()
	chain.weapons["5"] = &Weapon{TokenID: "5", WeaponType: Sword, Tier: 1, Rarity: Epic, Damage: 31, IPFSHash: "ipfs://bafymeta"}
	svc := NewService(chain, gw.fetcher(), ServiceOptions{})

	v, err := svc.Weapon(context.Background(), "5")
	require.NoError(t, err)
	require.NotNil(t, v.Metadata)
	assert.Equal(t, "Iron Sword #temp_1700000000000", v.Metadata.Name)
	assert.Equal(t, gw.URL+"/ipfs/bafyart", v.ImageURL)
	assert.Empty(t, v.MetadataError)

	// Served from the dedup cache.
	_, err = svc.Weapon(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, int32(1), gw.hits.Load())
	assert.Equal(t, 1, chain.count("getWeapon"))
}

func TestServiceWeaponJSONShape(t *testing.T) {
	v := &WeaponView{Weapon: Weapon{TokenID: "9", Tier: 2}, ImageURL: "https://x/img"}
	blob, err := json.Marshal(v)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(blob, &flat))
	assert.Equal(t, "9", flat["tokenId"])
	assert.Equal(t, float64(2), flat["tier"])
	assert.Contains(t, flat, "metadata")
	assert.Equal(t, "https://x/img", flat["imageUrl"])
}

func TestServiceWeaponSkipsPlaceholders(t *testing.T) {
	gw := newMetadataGateway(t)
	chain := newFakeChain()
	for i, ref := range []string{"", "temp_1", "fallback_1700000000000_abc123", "QmMock1700000000000abcd"} {
		id := big.NewInt(int64(i + 1)).String()
		chain.weapons[id] = &Weapon{TokenID: id, Tier: 1, IPFSHash: ref}
	}
	svc := NewService(chain, gw.fetcher(), ServiceOptions{})
	for id := range chain.weapons {
		v, err := svc.Weapon(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, v.Metadata)
	}
	assert.Zero(t, gw.hits.Load())
}

func TestServiceWeaponMetadataFailure(t *testing.T) {
	gw := newMetadataGateway(t)
	chain := newFakeChain()
	chain.weapons["3"] = &Weapon{TokenID: "3", Tier: 1, IPFSHash: "bafymissing"}
	svc := NewService(chain, gw.fetcher(), ServiceOptions{})

	v, err := svc.Weapon(context.Background(), "3")
	require.NoError(t, err, "a missing document does not fail the weapon")
	assert.Nil(t, v.Metadata)
	assert.Contains(t, v.MetadataError, "404")
}

func TestServiceWeaponInvalidID(t *testing.T) {
	svc := NewService(newFakeChain(), nil, ServiceOptions{})
	_, err := svc.Weapon(context.Background(), "abc")
	assert.Error(t, err)
	_, err = svc.Weapon(context.Background(), "-1")
	assert.Error(t, err)
}

func TestServiceWeaponRejectsBadRecord(t *testing.T) {
	chain := newFakeChain()
	chain.weapons["1"] = &Weapon{TokenID: "1", WeaponType: Axe, Tier: 0}
	chain.weapons["2"] = &Weapon{TokenID: "2", WeaponType: Sword, Tier: 11}
	chain.weapons["3"] = &Weapon{TokenID: "3", WeaponType: WeaponType(7), Tier: 2}
	chain.weapons["4"] = &Weapon{TokenID: "4", WeaponType: Bow, Tier: 2, Rarity: Rarity(9)}
	svc := NewService(chain, nil, ServiceOptions{})
	ctx := context.Background()

	_, err := svc.Weapon(ctx, "1")
	assert.ErrorIs(t, err, ErrInvalidTier)
	_, err = svc.Weapon(ctx, "2")
	assert.ErrorIs(t, err, ErrInvalidTier)
	_, err = svc.Weapon(ctx, "3")
	assert.ErrorIs(t, err, ErrInvalidWeaponType)
	_, err = svc.Weapon(ctx, "4")
	assert.ErrorContains(t, err, "invalid rarity")
}

func TestServiceMetadataCache(t *testing.T) {
	gw := newMetadataGateway(t)
	gw.docs["bafymeta"] = sampleMetadata(t)
	cache := &memCache{docs: make(map[string]*Metadata)}

	svc := NewService(newFakeChain(), gw.fetcher(), ServiceOptions{Cache: cache})
	_, err := svc.Metadata(context.Background(), "ipfs://bafymeta")
	require.NoError(t, err)
	assert.Contains(t, cache.docs, "bafymeta")

	// A second service sharing the cache never touches the network.
	other := NewService(newFakeChain(), gw.fetcher(), ServiceOptions{Cache: cache})
	meta, err := other.Metadata(context.Background(), "bafymeta")
	require.NoError(t, err)
	assert.Equal(t, "Iron Sword #temp_1700000000000", meta.Name)
	assert.Equal(t, int32(1), gw.hits.Load())
}

func TestServicePlayer(t *testing.T) {
	chain := newFakeChain()
	chain.players[testAccount] = &Player{Level: 12, SwordsCrafted: 3, IsRegistered: true}
	svc := NewService(chain, nil, ServiceOptions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.Player(ctx, testAccount)
			assert.NoError(t, err)
			assert.Equal(t, uint16(12), p.Level)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, chain.count("getPlayer"))

	chain.mu.Lock()
	chain.players[testAccount].Level = 13
	chain.mu.Unlock()

	p, err := svc.RefreshPlayer(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, uint16(13), p.Level)
	assert.Equal(t, 2, chain.count("getPlayer"))
}

func TestServiceCollection(t *testing.T) {
	chain := newFakeChain()
	for i := 1; i <= 4; i++ {
		id := big.NewInt(int64(i))
		chain.owned = append(chain.owned, id)
		chain.weapons[id.String()] = &Weapon{TokenID: id.String(), WeaponType: WeaponType(i % 3), Tier: uint8(i), CraftedAt: int64(i) * 1000}
	}
	chain.weaponErr["3"] = errors.New("header not found")

	svc := NewService(chain, nil, ServiceOptions{Batch: batch.Options{Size: 2, Delay: -1}})
	res, err := svc.Collection(context.Background(), testAccount, &Filter{SortBy: SortOldest})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 1, res.Failed)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, []string{"1", "2", "4"}, ids(res.Weapons))
	assert.Equal(t, 3, res.Stats.Total)
	assert.Equal(t, uint8(4), res.Stats.HighestTier)
}

func TestServiceCollectionUnavailable(t *testing.T) {
	chain := newFakeChain()
	chain.owned = []*big.Int{big.NewInt(1), big.NewInt(2)}
	chain.weaponErr["1"] = errors.New("timeout")
	chain.weaponErr["2"] = errors.New("timeout")

	svc := NewService(chain, nil, ServiceOptions{Batch: batch.Options{Delay: -1}})
	_, err := svc.Collection(context.Background(), testAccount, nil)
	assert.ErrorIs(t, err, ErrCollectionUnavailable)
}

func TestServiceCollectionEmpty(t *testing.T) {
	svc := NewService(newFakeChain(), nil, ServiceOptions{})
	res, err := svc.Collection(context.Background(), testAccount, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Weapons)
	assert.Zero(t, res.Total)
}

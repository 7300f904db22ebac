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

// Package store persists fetched metadata documents and the forge journal.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/blacksmith-forge/blacksmith/forge"
	"github.com/ethereum/go-ethereum/log"
	bolt "go.etcd.io/bbolt"
)

var metadataBucket = []byte("metadata")

// MetadataCache is a bbolt-backed forge.MetadataCache.  Metadata documents
// are content addressed, so entries are never invalidated.
type MetadataCache struct {
	db  *bolt.DB
	log log.Logger
}

// OpenMetadataCache opens or creates the cache file at path.
func OpenMetadataCache(path string) (*MetadataCache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: failed to open metadata cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metadataBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &MetadataCache{db: db, log: log.Root().With("component", "metadata-cache")}, nil
}

// Get returns the cached document for cid.  Undecodable entries count as
// misses.
func (c *MetadataCache) Get(cid string) (*forge.Metadata, bool) {
	var raw []byte
	c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(metadataBucket).Get([]byte(cid)); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if raw == nil {
		return nil, false
	}
	meta := new(forge.Metadata)
	if err := json.Unmarshal(raw, meta); err != nil {
		c.log.Warn("Dropping corrupt cache entry", "cid", cid, "err", err)
		return nil, false
	}
	return meta, true
}

// Put stores meta under cid.
func (c *MetadataCache) Put(cid string, meta *forge.Metadata) error {
	blob, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metadataBucket).Put([]byte(cid), blob)
	})
}

// Len returns the number of cached documents.
func (c *MetadataCache) Len() int {
	n := 0
	c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(metadataBucket).Stats().KeyN
		return nil
	})
	return n
}

// Close closes the underlying database.
func (c *MetadataCache) Close() error {
	return c.db.Close()
}

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

package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/blacksmith-forge/blacksmith/forge"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	_ "github.com/glebarez/go-sqlite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DefaultJournalLimit caps ListByAccount when no limit is given.
const DefaultJournalLimit = 50

// ErrNotFound is returned for unknown forge ids.
var ErrNotFound = errors.New("store: record not found")

// ForgeRecord is the journal row of one forge attempt.  It is created on
// the first transition and updated on every later one.
type ForgeRecord struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Account     string `gorm:"index;size:42" json:"account"`
	WeaponType  uint8  `json:"weaponType"`
	Tier        uint8  `json:"tier"`
	State       string `gorm:"index" json:"state"`
	TxHash      string `json:"txHash,omitempty"`
	MetadataRef string `json:"metadataRef,omitempty"`
	ImageRef    string `json:"imageRef,omitempty"`
	ErrorType   string `json:"errorType,omitempty"`
	Error       string `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Journal records forge attempts in a SQLite database.  It implements
// forge.Observer.
type Journal struct {
	db  *gorm.DB
	log log.Logger
}

// OpenJournal opens the journal database at path.  ":memory:" opens a
// private in-memory database.
func OpenJournal(path string) (*Journal, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)"
	}
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to open journal: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := db.AutoMigrate(&ForgeRecord{}); err != nil {
		return nil, fmt.Errorf("store: failed to migrate journal: %w", err)
	}
	return &Journal{db: db, log: log.Root().With("component", "journal")}, nil
}

// OnForgeEvent upserts the record of the event's forge.
func (j *Journal) OnForgeEvent(ev forge.Event) {
	rec := ForgeRecord{
		ID:          ev.ForgeID,
		Account:     ev.Account.Hex(),
		WeaponType:  uint8(ev.Request.WeaponType),
		Tier:        ev.Request.Tier,
		State:       ev.To.String(),
		MetadataRef: ev.MetadataRef,
		ImageRef:    ev.ImageRef,
		CreatedAt:   ev.At,
		UpdatedAt:   ev.At,
	}
	if ev.TxHash != (common.Hash{}) {
		rec.TxHash = ev.TxHash.Hex()
	}
	if ev.Err != nil {
		rec.ErrorType = string(ev.Err.Type)
		rec.Error = ev.Err.Message
	}
	err := j.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"state", "tx_hash", "metadata_ref", "image_ref", "error_type", "error", "updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		j.log.Error("Failed to journal forge event", "id", ev.ForgeID, "state", ev.To, "err", err)
	}
}

// Get returns the record with the given id.
func (j *Journal) Get(id string) (*ForgeRecord, error) {
	var rec ForgeRecord
	err := j.db.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByAccount returns the most recent forges of account, newest first.
func (j *Journal) ListByAccount(account common.Address, limit int) ([]ForgeRecord, error) {
	if limit <= 0 {
		limit = DefaultJournalLimit
	}
	var recs []ForgeRecord
	err := j.db.Where("account = ?", account.Hex()).
		Order("created_at desc").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// Close closes the database.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Package repo implements the persistence layer for the medication tracker.
// This file provides the key-value Store: named collections holding JSON
// payloads, persisted in the "collections" table.
//
// The Store is deliberately dumb. It moves bytes; encoding, decoding and the
// read-failure policy live in collection.go. Every consumer receives an
// explicitly constructed Store, which lets tests swap in a fresh database
// per test without shared globals.
package repo

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/medremind-core/internal/domain"
)

// Store is durable key-value storage of JSON payloads.
type Store interface {
	// Load returns the payload stored under key, or (nil, nil) if absent.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the payload stored under key.
	Save(ctx context.Context, key string, payload []byte) error
	// Remove deletes the named keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
	// Atomic runs fn against a Store whose writes commit together or not at
	// all. Nested calls reuse the outer unit.
	Atomic(ctx context.Context, fn func(Store) error) error
}

// GormStore is the SQLite-backed Store.
type GormStore struct {
	DB   *gorm.DB
	inTx bool
}

// NewGormStore wraps db as a Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Load implements Store.
func (s *GormStore) Load(ctx context.Context, key string) ([]byte, error) {
	var row domain.Collection
	err := s.DB.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Payload), nil
}

// Save implements Store with an upsert on the key.
func (s *GormStore) Save(ctx context.Context, key string, payload []byte) error {
	row := domain.Collection{Key: key, Payload: datatypes.JSON(payload)}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

// Remove implements Store.
func (s *GormStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Where("key IN ?", keys).Delete(&domain.Collection{}).Error
}

// Atomic implements Store using a database transaction.
func (s *GormStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx, inTx: true})
	})
}

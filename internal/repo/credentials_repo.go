// Package repo implements the persistence layer for the medication tracker.
// This file stores the single credentials record used by the PIN gate.
package repo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tbourn/medremind-core/internal/domain"
)

// GetCredentials returns the stored credentials, or nil when none exist or
// the record cannot be read.
func GetCredentials(ctx context.Context, s Store) *domain.Credentials {
	c, err := LoadCredentials(ctx, s)
	var rerr *StorageReadError
	if errors.As(err, &rerr) {
		logReadFailure(ctx, rerr)
		return nil
	}
	return c
}

// LoadCredentials is the strict read. It returns (nil, nil) when no record
// exists and a *StorageReadError when the record cannot be loaded or decoded.
func LoadCredentials(ctx context.Context, s Store) (*domain.Credentials, error) {
	raw, err := s.Load(ctx, domain.CollectionCredentials)
	if err != nil {
		return nil, &StorageReadError{Collection: domain.CollectionCredentials, Err: err}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var c domain.Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, &StorageReadError{Collection: domain.CollectionCredentials, Err: err}
	}
	return &c, nil
}

// SaveCredentials replaces the credentials record.
func SaveCredentials(ctx context.Context, s Store, c domain.Credentials) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return &StorageWriteError{Collection: domain.CollectionCredentials, Err: err}
	}
	if err := s.Save(ctx, domain.CollectionCredentials, raw); err != nil {
		return &StorageWriteError{Collection: domain.CollectionCredentials, Err: err}
	}
	return nil
}

// DeleteCredentials removes the credentials record.
func DeleteCredentials(ctx context.Context, s Store) error {
	return ClearCollections(ctx, s, domain.CollectionCredentials)
}

// Package repo implements the persistence layer for the medication tracker.
// This file provides typed access to JSON collections stored in a Store and
// the storage error taxonomy.
//
// Error semantics:
//   - Display reads (ReadCollection) never fail. A missing key, an I/O error
//     or a payload that does not decode all yield an empty collection; the
//     failure is logged as a StorageReadError and swallowed.
//   - Read-modify-write paths use LoadCollection, which returns the
//     *StorageReadError instead. A collection that cannot be read is never
//     overwritten.
//   - Writes always report failure as *StorageWriteError, which matches
//     ErrStorageWrite via errors.Is, so callers can surface it and keep the
//     user's input for a retry.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrStorageWrite is matched by every *StorageWriteError.
var ErrStorageWrite = errors.New("storage write failed")

// ErrStorageRead is matched by every *StorageReadError.
var ErrStorageRead = errors.New("storage read failed")

// StorageReadError describes a read or decode failure. Display reads log and
// swallow it; write paths return it.
type StorageReadError struct {
	Collection string
	Err        error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Collection, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorageRead) true.
func (e *StorageReadError) Is(target error) bool { return target == ErrStorageRead }

// StorageWriteError reports a failed collection write.
type StorageWriteError struct {
	Collection string
	Err        error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Collection, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorageWrite) true.
func (e *StorageWriteError) Is(target error) bool { return target == ErrStorageWrite }

// ReadCollection loads and decodes the collection stored under key for
// display. Failures are logged and yield an empty collection. It always
// returns a non-nil slice.
func ReadCollection[T any](ctx context.Context, s Store, key string) []T {
	out, err := LoadCollection[T](ctx, s, key)
	if err != nil {
		var re *StorageReadError
		if errors.As(err, &re) {
			logReadFailure(ctx, re)
		}
		return []T{}
	}
	return out
}

// LoadCollection loads and decodes the collection stored under key. An absent
// key is an empty collection; any other failure is a *StorageReadError.
func LoadCollection[T any](ctx context.Context, s Store, key string) ([]T, error) {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return nil, &StorageReadError{Collection: key, Err: err}
	}
	out := []T{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &StorageReadError{Collection: key, Err: err}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// WriteCollection serializes items and replaces the collection under key.
func WriteCollection[T any](ctx context.Context, s Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return &StorageWriteError{Collection: key, Err: err}
	}
	if err := s.Save(ctx, key, raw); err != nil {
		return &StorageWriteError{Collection: key, Err: err}
	}
	return nil
}

// ClearCollections removes the named collections entirely.
func ClearCollections(ctx context.Context, s Store, keys ...string) error {
	if err := s.Remove(ctx, keys...); err != nil {
		return &StorageWriteError{Collection: fmt.Sprint(keys), Err: err}
	}
	return nil
}

// logReadFailure prefers a logger carried by ctx and falls back to the
// global logger.
func logReadFailure(ctx context.Context, err *StorageReadError) {
	lg := zerolog.Ctx(ctx)
	if lg.GetLevel() == zerolog.Disabled {
		lg = &log.Logger
	}
	lg.Error().
		Str("collection", err.Collection).
		Err(err.Err).
		Msg("storage read failed; returning empty collection")
}

// Package kv provides the durable key->blob storage the file cache sits on:
// a single logical collection keyed by file name, with last-write-wins
// semantics on Put and per-record atomicity.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get and Delete for an absent key.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable is returned when the backing store cannot be opened or
	// used at all. Callers treat the cache as transparently absent.
	ErrUnavailable = errors.New("store unavailable")

	// ErrQuotaExceeded is returned when a write is rejected for space so
	// callers can offer clear-and-retry instead of looping.
	ErrQuotaExceeded = errors.New("store quota exceeded")
)

// Store is an asynchronous key->blob collection. Operations against the same
// key issued concurrently are not ordered relative to each other; a Get
// racing a Put or Delete observes either the old or the new record, never a
// torn one. Callers needing read-my-own-write must wait for Put to return
// before the dependent Get.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error

	// Keys enumerates the stored keys in unspecified order.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes every entry in the collection.
	Clear(ctx context.Context) error

	Close() error
}

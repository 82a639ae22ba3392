package testsupport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lectern/internal/config"
	"lectern/internal/kvstore"
)

// MustOpenStore opens the configured kvstore for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) kvstore.Store {
	t.Helper()

	store, err := kvstore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// ErrInjected is returned by FlakyStore when a failure is armed.
var ErrInjected = errors.New("injected store failure")

// FlakyStore wraps a Store and fails writes while FailWrites is set.
type FlakyStore struct {
	kvstore.Store

	mu         sync.Mutex
	failWrites bool
	failReads  bool
	puts       int
}

// NewFlakyStore wraps inner.
func NewFlakyStore(inner kvstore.Store) *FlakyStore {
	return &FlakyStore{Store: inner}
}

// FailWrites arms or disarms Put/Delete failures.
func (f *FlakyStore) FailWrites(fail bool) {
	f.mu.Lock()
	f.failWrites = fail
	f.mu.Unlock()
}

// FailReads arms or disarms Get failures.
func (f *FlakyStore) FailReads(fail bool) {
	f.mu.Lock()
	f.failReads = fail
	f.mu.Unlock()
}

// Puts reports how many writes reached the inner store.
func (f *FlakyStore) Puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func (f *FlakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return f.Store.Get(ctx, key)
}

func (f *FlakyStore) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failWrites
	if !fail {
		f.puts++
	}
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Store.Put(ctx, key, value)
}

func (f *FlakyStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Store.Delete(ctx, key)
}

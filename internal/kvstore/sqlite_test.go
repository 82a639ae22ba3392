package kvstore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"lectern/internal/kvstore"
	"lectern/internal/testsupport"
)

func TestSQLitePutGetDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, "transcriptData", []byte(`{"a":{}}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "transcriptData", []byte(`{"b":{}}`)); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}
	got, err := store.Get(ctx, "transcriptData")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"b":{}}` {
		t.Fatalf("expected overwritten value, got %s", got)
	}

	if err := store.Delete(ctx, "transcriptData"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "transcriptData"); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
	if _, err := store.Get(ctx, "transcriptData"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lectern.db")
	ctx := context.Background()

	first, err := kvstore.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := kvstore.PutJSON(ctx, first, "session", map[string]int{"cursor": 3}); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := kvstore.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	var decoded map[string]int
	found, err := kvstore.GetJSON(ctx, second, "session", &decoded)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if !found || decoded["cursor"] != 3 {
		t.Fatalf("unexpected decoded value: found=%v %v", found, decoded)
	}
}

func TestGetJSONReportsMissingKey(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	var target map[string]any
	found, err := kvstore.GetJSON(context.Background(), store, "nothing", &target)
	if err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if found {
		t.Fatal("expected missing key to report not found")
	}
}

func TestOpenSQLiteRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lectern.db")
	ctx := context.Background()

	store, err := kvstore.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := kvstore.OpenSQLite(ctx, path); !errors.Is(err, kvstore.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestFlakyStoreInjectsFailures(t *testing.T) {
	inner := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	flaky := testsupport.NewFlakyStore(inner)
	ctx := context.Background()

	flaky.FailWrites(true)
	if err := flaky.Put(ctx, "k", []byte("v")); !errors.Is(err, testsupport.ErrInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	flaky.FailWrites(false)
	if err := flaky.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if flaky.Puts() != 1 {
		t.Fatalf("expected 1 successful put, got %d", flaky.Puts())
	}
}

package transcripts_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"lectern/internal/testsupport"
	"lectern/internal/transcripts"
)

func TestIsSentinel(t *testing.T) {
	cases := []struct {
		lines []string
		want  bool
	}{
		{[]string{transcripts.NoTranscriptAvailable}, true},
		{[]string{transcripts.ErrorLine("navigation failed")}, true},
		{[]string{"[Could not find transcript button]"}, true},
		{[]string{"[Error: x]", "more"}, false},
		{[]string{"Hello world"}, false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := transcripts.IsSentinel(tc.lines); got != tc.want {
			t.Fatalf("IsSentinel(%q) = %v, want %v", tc.lines, got, tc.want)
		}
	}
}

func TestErrorLine(t *testing.T) {
	if got := transcripts.ErrorLine(" timed out "); got != "[Error: timed out]" {
		t.Fatalf("unexpected error line %q", got)
	}
	if got := transcripts.ErrorLine(""); got != "[Error: unknown failure]" {
		t.Fatalf("unexpected empty error line %q", got)
	}
}

func TestCollectionCloneIsDeep(t *testing.T) {
	c := transcripts.Collection{}
	c.Set("S", "L", []string{"a"})
	clone := c.Clone()
	clone["S"]["L"][0] = "b"
	if lines, _ := c.Lines("S", "L"); lines[0] != "a" {
		t.Fatal("clone shares line storage")
	}
	sections, lectures := c.Counts()
	if sections != 1 || lectures != 1 {
		t.Fatalf("unexpected counts %d/%d", sections, lectures)
	}
}

func TestRepositoryMergeRereadsPersistedValue(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	repo := transcripts.NewRepository(store, "transcriptData")
	ctx := context.Background()

	if _, err := repo.Merge(ctx, "S1", "L1", []string{"one"}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	// A writer outside this code path clears the record between merges.
	other := transcripts.NewRepository(store, "transcriptData")
	if err := other.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	merged, err := repo.Merge(ctx, "S1", "L2", []string{"two"})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	want := transcripts.Collection{"S1": {"L2": {"two"}}}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("expected merge onto cleared record, got %v", merged)
	}
	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, want) {
		t.Fatalf("persisted value %v does not match %v", loaded, want)
	}
}

func TestRepositoryLoadEmpty(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	repo := transcripts.NewRepository(store, "")
	loaded, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty collection, got %v", loaded)
	}
	if repo.Key() != "transcriptData" {
		t.Fatalf("unexpected default key %q", repo.Key())
	}
}

func TestRepositoryMergeSurfacesWriteFailure(t *testing.T) {
	flaky := testsupport.NewFlakyStore(testsupport.MustOpenStore(t, testsupport.NewConfig(t)))
	repo := transcripts.NewRepository(flaky, "transcriptData")
	flaky.FailWrites(true)

	if _, err := repo.Merge(context.Background(), "S", "L", []string{"x"}); !errors.Is(err, testsupport.ErrInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
}

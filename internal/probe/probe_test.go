package probe

import (
	"os"
	"path/filepath"
	"testing"

	"probevault/internal/filter"
	"probevault/internal/icache"
	"probevault/internal/probeitem"
)

func TestExecuteWalksAndSubmits(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write a.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatalf("write b.txt: %v", err)
	}

	cache := icache.New(icache.Options{QueueCapacity: 8})
	defer cache.Free(nil)
	dest := probeitem.NewSliceCollectedObject()

	run := &Run{
		Cache: cache,
		Dest:  dest,
		Root:  dir,
		Packages: []probeitem.PackageItem{
			{Name: "openssl", Version: "3.0.0"},
		},
	}

	res, err := run.Execute()
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Observed != 3 {
		t.Fatalf("expected 3 observed (2 files + 1 package), got %d", res.Observed)
	}
	if res.Accepted != 3 {
		t.Fatalf("expected 3 accepted, got %d", res.Accepted)
	}
	if len(dest.Items) != 3 {
		t.Fatalf("expected 3 collected items, got %d", len(dest.Items))
	}
	for _, item := range dest.Items {
		if item.Stamp() == "" {
			t.Fatalf("expected every collected item to carry a stamp")
		}
	}
}

func TestExecuteAppliesFilter(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write keep.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tiny.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write tiny.txt: %v", err)
	}

	cache := icache.New(icache.Options{QueueCapacity: 8})
	defer cache.Free(nil)
	dest := probeitem.NewSliceCollectedObject()

	run := &Run{
		Cache:   cache,
		Dest:    dest,
		Root:    dir,
		Filters: filter.Build(filter.Config{MinFileSize: 5}),
	}

	res, err := run.Execute()
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Filtered != 1 {
		t.Fatalf("expected 1 filtered file, got %d", res.Filtered)
	}
	if res.Accepted != 1 {
		t.Fatalf("expected 1 accepted file, got %d", res.Accepted)
	}
}

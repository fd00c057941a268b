package filter

import (
	"testing"

	"probevault/internal/probeitem"
)

func TestRejectFileBySize(t *testing.T) {
	s := Build(Config{MinFileSize: 1024})
	small := &probeitem.FileItem{Path: "/etc/passwd", Size: 10}
	big := &probeitem.FileItem{Path: "/etc/shadow", Size: 4096}

	if !s.Reject(small) {
		t.Fatalf("expected small file to be rejected")
	}
	if s.Reject(big) {
		t.Fatalf("expected large file to be accepted")
	}
}

func TestRejectFileByPathPrefix(t *testing.T) {
	s := Build(Config{ExcludePathPrefixes: []string{"/proc", "/tmp"}})
	item := &probeitem.FileItem{Path: "/tmp/scratch", Size: 1}
	if !s.Reject(item) {
		t.Fatalf("expected /tmp path to be rejected")
	}
	other := &probeitem.FileItem{Path: "/etc/hosts", Size: 1}
	if s.Reject(other) {
		t.Fatalf("expected /etc path to be accepted")
	}
}

func TestRejectPackageByName(t *testing.T) {
	s := Build(Config{ExcludePackageNames: []string{"Debug-Tools"}})
	pkg := &probeitem.PackageItem{Name: "debug-tools"}
	if !s.Reject(pkg) {
		t.Fatalf("expected case-insensitive package name match to reject")
	}
	other := &probeitem.PackageItem{Name: "openssl"}
	if s.Reject(other) {
		t.Fatalf("expected unlisted package to be accepted")
	}
}

func TestNilSetRejectsNothing(t *testing.T) {
	var s *Set
	if s.Reject(&probeitem.FileItem{Path: "/anything"}) {
		t.Fatalf("nil filter set should reject nothing")
	}
}

// Package probeitem defines the item and collected-object contracts the
// item cache treats as opaque collaborators, plus the two concrete item
// kinds a compliance probe run in this repo actually produces.
package probeitem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Item is the contract internal/icache relies on. The cache never
// inspects an item's fields directly; it only calls these methods.
type Item interface {
	// Fingerprint is a pure function of content. Collisions are
	// expected and handled by the cache, not here.
	Fingerprint() uint64
	// Equal reports whether two items with the same fingerprint are
	// the same logical observation.
	Equal(other Item) bool
	// Stamp returns the unique ID last written by SetStamp, or "" if
	// none has been assigned yet.
	Stamp() string
	// SetStamp overwrites the item's stamp field. Called at most once
	// per distinct equality class, by the cache worker only.
	SetStamp(id string)
}

// CollectedObject is the external aggregate the cache appends
// canonical item references to. Ownership stays with the caller;
// the cache only ever calls Append. An Append failure is fatal for
// the run: the worker latches worker-dead and stops.
type CollectedObject interface {
	Append(item Item) error
}

// Kind distinguishes the item shapes this probe run emits.
type Kind string

const (
	KindFile    Kind = "file"
	KindPackage Kind = "package"
)

// FileItem is a structured observation about one filesystem entry.
type FileItem struct {
	Path     string
	Mode     string
	Owner    string
	Group    string
	Size     int64
	SHA256   string
	stampVal string
}

func (f *FileItem) Fingerprint() uint64 {
	var b strings.Builder
	b.WriteString(string(KindFile))
	b.WriteByte('\x00')
	b.WriteString(f.Path)
	b.WriteByte('\x00')
	b.WriteString(f.Mode)
	b.WriteByte('\x00')
	b.WriteString(f.Owner)
	b.WriteByte('\x00')
	b.WriteString(f.Group)
	b.WriteByte('\x00')
	fmt.Fprintf(&b, "%d", f.Size)
	b.WriteByte('\x00')
	b.WriteString(f.SHA256)
	return xxhash.Sum64String(b.String())
}

func (f *FileItem) Equal(other Item) bool {
	o, ok := other.(*FileItem)
	if !ok {
		return false
	}
	return f.Path == o.Path && f.Mode == o.Mode && f.Owner == o.Owner &&
		f.Group == o.Group && f.Size == o.Size && f.SHA256 == o.SHA256
}

func (f *FileItem) Stamp() string     { return f.stampVal }
func (f *FileItem) SetStamp(id string) { f.stampVal = id }

// PackageItem is a structured observation about one installed package.
type PackageItem struct {
	Name     string
	Version  string
	Arch     string
	Vendor   string
	stampVal string
}

func (p *PackageItem) Fingerprint() uint64 {
	var b strings.Builder
	b.WriteString(string(KindPackage))
	b.WriteByte('\x00')
	b.WriteString(p.Name)
	b.WriteByte('\x00')
	b.WriteString(p.Version)
	b.WriteByte('\x00')
	b.WriteString(p.Arch)
	b.WriteByte('\x00')
	b.WriteString(p.Vendor)
	return xxhash.Sum64String(b.String())
}

func (p *PackageItem) Equal(other Item) bool {
	o, ok := other.(*PackageItem)
	if !ok {
		return false
	}
	return p.Name == o.Name && p.Version == o.Version && p.Arch == o.Arch && p.Vendor == o.Vendor
}

func (p *PackageItem) Stamp() string      { return p.stampVal }
func (p *PackageItem) SetStamp(id string) { p.stampVal = id }

// SliceCollectedObject is the simplest CollectedObject: an
// order-preserving slice, useful for tests and for the bundled probe's
// default sink. Not safe for concurrent Append from multiple
// goroutines — the cache only ever appends from its single worker
// goroutine, so no locking is needed here.
type SliceCollectedObject struct {
	Items []Item
}

func NewSliceCollectedObject() *SliceCollectedObject {
	return &SliceCollectedObject{Items: make([]Item, 0, 64)}
}

func (s *SliceCollectedObject) Append(item Item) error {
	s.Items = append(s.Items, item)
	return nil
}

// Stamps returns the stamp of every collected item, in append order.
func (s *SliceCollectedObject) Stamps() []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Stamp()
	}
	return out
}

// SortedFilePaths is a small test/debug helper, not used by the cache.
func SortedFilePaths(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if f, ok := it.(*FileItem); ok {
			out = append(out, f.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Package filter implements the boolean filter predicate the cache
// relies on through icache.Filter: evaluated on the producer's own
// goroutine, it decides whether an item reaches Submit at all, using
// a compiled set of rejection rules built once from config.
package filter

import (
	"path/filepath"
	"strings"

	"probevault/internal/icache"
	"probevault/internal/probeitem"
)

// Set holds a compiled set of rejection rules built once from config
// and evaluated per item thereafter.
type Set struct {
	excludePathPrefixes []string
	excludePackageNames map[string]struct{}
	minFileSize         int64
}

// Config is the declarative form a Set is built from.
type Config struct {
	ExcludePathPrefixes []string `json:"exclude_path_prefixes" yaml:"exclude_path_prefixes"`
	ExcludePackageNames []string `json:"exclude_package_names" yaml:"exclude_package_names"`
	MinFileSize         int64    `json:"min_file_size" yaml:"min_file_size"`
}

// Build compiles a Config into a Set ready for repeated evaluation.
func Build(cfg Config) *Set {
	s := &Set{
		excludePathPrefixes: append([]string(nil), cfg.ExcludePathPrefixes...),
		minFileSize:         cfg.MinFileSize,
	}
	if len(cfg.ExcludePackageNames) > 0 {
		s.excludePackageNames = make(map[string]struct{}, len(cfg.ExcludePackageNames))
		for _, name := range cfg.ExcludePackageNames {
			s.excludePackageNames[strings.ToLower(name)] = struct{}{}
		}
	}
	return s
}

// Reject implements icache.Filter.
func (s *Set) Reject(item icache.Item) bool {
	if s == nil {
		return false
	}
	switch v := item.(type) {
	case *probeitem.FileItem:
		return s.rejectFile(v)
	case *probeitem.PackageItem:
		return s.rejectPackage(v)
	default:
		return false
	}
}

func (s *Set) rejectFile(f *probeitem.FileItem) bool {
	if f.Size < s.minFileSize {
		return true
	}
	clean := filepath.Clean(f.Path)
	for _, prefix := range s.excludePathPrefixes {
		if strings.HasPrefix(clean, prefix) {
			return true
		}
	}
	return false
}

func (s *Set) rejectPackage(p *probeitem.PackageItem) bool {
	if s.excludePackageNames == nil {
		return false
	}
	_, excluded := s.excludePackageNames[strings.ToLower(p.Name)]
	return excluded
}

// Package probe implements the bundled collection probe: a synchronous
// walker that observes filesystem entries and a small synthetic package
// manifest, turning each observation into a probeitem.Item and feeding
// it through a filter.Set into an icache.Cache via icache.Collect.
package probe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"probevault/internal/filter"
	"probevault/internal/icache"
	"probevault/internal/probeitem"
)

// Run describes one bundled probe invocation: walk Root on the local
// filesystem, evaluate every regular file against Filters, and submit
// surviving observations to Cache/Dest. Packages is a static manifest
// supplied by the caller rather than a real package-manager query,
// since this probe only collects what it's told about.
type Run struct {
	Cache    *icache.Cache
	Dest     icache.CollectedObject
	Filters  *filter.Set
	Root     string
	Packages []probeitem.PackageItem
	Logger   *slog.Logger
}

// Result tallies what happened during one Run, independent of the
// cache's own Stats (which are cumulative across the cache's lifetime,
// not scoped to a single Run).
type Result struct {
	Observed int
	Filtered int
	Accepted int
	Failed   int
}

// Execute walks Root and the static package manifest, submitting every
// accepted observation through icache.Collect, then issues a Barrier so
// the caller can rely on every accepted item having reached Dest before
// Execute returns.
func (r *Run) Execute() (Result, error) {
	var res Result

	if r.Root != "" {
		err := filepath.WalkDir(r.Root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if r.Logger != nil {
					r.Logger.Warn("probe walk error", "path", path, "err", err)
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			res.Observed++
			item, obsErr := observeFile(path, d)
			if obsErr != nil {
				if r.Logger != nil {
					r.Logger.Warn("probe observe failed", "path", path, "err", obsErr)
				}
				res.Failed++
				return nil
			}
			switch icache.Collect(r.Cache, r.Dest, item, r.Filters) {
			case icache.CollectFiltered:
				res.Filtered++
			case icache.CollectAccepted:
				res.Accepted++
			case icache.CollectFailed:
				res.Failed++
				return r.Cache.Err()
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("probe: walk %s: %w", r.Root, err)
		}
	}

	for i := range r.Packages {
		res.Observed++
		item := r.Packages[i]
		switch icache.Collect(r.Cache, r.Dest, &item, r.Filters) {
		case icache.CollectFiltered:
			res.Filtered++
		case icache.CollectAccepted:
			res.Accepted++
		case icache.CollectFailed:
			res.Failed++
			return res, r.Cache.Err()
		}
	}

	if err := r.Cache.Barrier(); err != nil {
		return res, fmt.Errorf("probe: barrier: %w", err)
	}
	return res, nil
}

func observeFile(path string, d fs.DirEntry) (*probeitem.FileItem, error) {
	info, err := d.Info()
	if err != nil {
		return nil, err
	}

	item := &probeitem.FileItem{
		Path: path,
		Mode: info.Mode().String(),
		Size: info.Size(),
	}

	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		item.Owner = lookupUser(stat.Uid)
		item.Group = lookupGroup(stat.Gid)
	}

	if info.Mode().IsRegular() {
		sum, err := hashFile(path)
		if err != nil {
			return nil, err
		}
		item.SHA256 = sum
	}

	return item, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func lookupUser(uid uint32) string {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return strconv.FormatUint(uint64(uid), 10)
	}
	return u.Username
}

func lookupGroup(gid uint32) string {
	g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10))
	if err != nil {
		return strconv.FormatUint(uint64(gid), 10)
	}
	return g.Name
}

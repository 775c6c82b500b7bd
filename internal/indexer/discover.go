package indexer

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// job is one packet to parse. name is what gets stored as pkt_file: the
// absolute source path, or bundle path plus packet name for bundled packets.
type job struct {
	path   string
	name   string
	bundle *bundle
}

// bundle tracks an extracted archive until all of its packets are handled.
type bundle struct {
	path    string
	dir     string
	packets int
	stored  int
}

// discover lists packets and bundles under every configured path, extracting
// bundles into the temp path. Order is sorted by path within each root.
func (ix *Indexer) discover(result *Result) ([]job, []*bundle) {
	var jobs []job
	var bundles []*bundle

	for _, root := range ix.cfg.Paths {
		files, err := ix.listFiles(root)
		if err != nil {
			if os.IsNotExist(err) {
				log.Printf("WARN: Inbound path %s does not exist", root)
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("read inbound dir %s: %v", root, err))
			continue
		}

		for _, path := range files {
			name := filepath.Base(path)
			if isPacketName(name) {
				jobs = append(jobs, job{path: path, name: absPath(path)})
				continue
			}
			if !BundleExtension(name) {
				continue
			}
			// Potential ZIP bundle; .out may also be a flow file.
			isZIP, err := IsZIPBundle(path)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("check bundle %s: %v", name, err))
				continue
			}
			if !isZIP {
				continue
			}
			b, bundleJobs, err := ix.extract(path)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
				if !ix.cfg.DryRun {
					ix.quarantine(path)
				}
				continue
			}
			result.BundlesExtracted++
			bundles = append(bundles, b)
			jobs = append(jobs, bundleJobs...)
		}
	}
	return jobs, bundles
}

// extract unpacks one bundle into a private directory under the temp path.
func (ix *Indexer) extract(path string) (*bundle, []job, error) {
	if err := os.MkdirAll(ix.cfg.TempPath, 0755); err != nil {
		return nil, nil, fmt.Errorf("create temp dir %s: %w", ix.cfg.TempPath, err)
	}
	dir, err := os.MkdirTemp(ix.cfg.TempPath, "bundle-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}
	pktPaths, err := ExtractBundle(path, dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, fmt.Errorf("extract bundle %s: %w", filepath.Base(path), err)
	}
	if len(pktPaths) == 0 {
		log.Printf("WARN: Bundle %s contains no .PKT files", path)
	} else {
		log.Printf("INFO: Unpacked bundle %s: %d .PKT files", filepath.Base(path), len(pktPaths))
	}

	b := &bundle{path: path, dir: dir, packets: len(pktPaths)}
	jobs := make([]job, 0, len(pktPaths))
	for _, p := range pktPaths {
		jobs = append(jobs, job{
			path:   p,
			name:   filepath.Join(absPath(path), filepath.Base(p)),
			bundle: b,
		})
	}
	return b, jobs, nil
}

// listFiles returns regular files in root, descending into subdirectories
// when Recursive is set. The temp and bad paths are never descended into.
func (ix *Indexer) listFiles(root string) ([]string, error) {
	if !ix.cfg.Recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				files = append(files, filepath.Join(root, e.Name()))
			}
		}
		return files, nil
	}

	skip := ix.workDirs()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("WARN: Skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != root && skip[absPath(path)] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// workDirs returns the absolute temp and bad paths, which recursive scans
// and watches never enter.
func (ix *Indexer) workDirs() map[string]bool {
	dirs := map[string]bool{}
	for _, p := range []string{ix.cfg.TempPath, ix.cfg.BadPath} {
		if p != "" {
			dirs[absPath(p)] = true
		}
	}
	return dirs
}

// quarantine moves a problem file to the bad path, when one is configured.
func (ix *Indexer) quarantine(path string) {
	if ix.cfg.BadPath == "" {
		return
	}
	if err := os.MkdirAll(ix.cfg.BadPath, 0755); err != nil {
		log.Printf("WARN: Failed to create bad path %s: %v", ix.cfg.BadPath, err)
		return
	}
	dest := uniquePath(filepath.Join(ix.cfg.BadPath, filepath.Base(path)))
	if err := os.Rename(path, dest); err != nil {
		log.Printf("WARN: Failed to move bad file %s to %s: %v", path, dest, err)
		return
	}
	log.Printf("INFO: Moved %s to %s", filepath.Base(path), dest)
}

// uniquePath inserts .1, .2, ... before the extension until path does not
// exist, so "a.pkt" becomes "a.1.pkt".
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		p := fmt.Sprintf("%s.%d%s", stem, i, ext)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// cleanupBundles removes every extraction directory.
func (ix *Indexer) cleanupBundles(bundles []*bundle) {
	for _, b := range bundles {
		if err := os.RemoveAll(b.dir); err != nil {
			log.Printf("WARN: Failed to remove temp dir %s: %v", b.dir, err)
		}
	}
}

// finishBundles deletes bundles whose packets were all stored.
func (ix *Indexer) finishBundles(bundles []*bundle, result *Result) {
	if !ix.cfg.Delete {
		return
	}
	for _, b := range bundles {
		if b.packets == 0 || b.stored != b.packets {
			continue
		}
		if err := os.Remove(b.path); err != nil {
			log.Printf("WARN: Failed to remove processed bundle %s: %v", b.path, err)
			continue
		}
		result.FilesDeleted++
	}
}

package indexer

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// zipMagic is the 4-byte magic number for ZIP archives (PK\x03\x04).
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// maxPacketSize bounds a single packet extracted from a bundle.
const maxPacketSize = 64 << 20

// BundleExtension reports whether a filename looks like an FTN echomail bundle:
//
//	.mo0 .tu0 .we0 .th0 .fr0 .sa0 .su0  (day-based, 0-9 then a-z on overflow)
//	.out                                (outbound bundle or flow file)
//	.zip                                (explicit ZIP bundle)
//
// The check is case-insensitive. Callers confirm with IsZIPBundle.
func BundleExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".zip", ".out":
		return true
	}
	if len(ext) != 4 {
		return false
	}
	switch ext[1:3] {
	case "mo", "tu", "we", "th", "fr", "sa", "su":
		c := ext[3]
		return c >= '0' && c <= '9' || c >= 'a' && c <= 'z'
	}
	return false
}

// IsZIPBundle reports whether the file at path begins with the ZIP magic bytes.
func IsZIPBundle(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return false, nil
	}
	return bytes.Equal(magic, zipMagic), nil
}

// ExtractBundle unpacks the .PKT entries of the ZIP bundle at srcPath into
// destDir and returns their paths in archive order. Directory components are
// dropped; entries sharing a base name are written as name.1.pkt, name.2.pkt
// and so on, so each packet gets its own file.
func ExtractBundle(srcPath, destDir string) ([]string, error) {
	// Names are flattened below, so ErrInsecurePath is not fatal.
	r, err := zip.OpenReader(srcPath)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && r != nil) {
		return nil, fmt.Errorf("open bundle %s: %w", filepath.Base(srcPath), err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create dest dir %s: %w", destDir, err)
	}

	var paths []string
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		// Archives from DOS tossers may use backslash separators.
		name := zf.Name[strings.LastIndexAny(zf.Name, `/\`)+1:]
		if !isPacketName(name) {
			continue
		}
		dest := uniquePath(filepath.Join(destDir, name))
		if err := writeEntry(zf, dest); err != nil {
			return paths, fmt.Errorf("extract %s from bundle: %w", zf.Name, err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

// writeEntry copies one archive entry to a new file at dest. Entries larger
// than maxPacketSize are refused.
func writeEntry(zf *zip.File, dest string) error {
	if zf.UncompressedSize64 > maxPacketSize {
		return fmt.Errorf("entry is %d bytes, limit %d", zf.UncompressedSize64, maxPacketSize)
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxPacketSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxPacketSize {
		err = fmt.Errorf("entry exceeds %d bytes", maxPacketSize)
	}
	if err != nil {
		os.Remove(dest)
	}
	return err
}

func isPacketName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pkt")
}

package artifact

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extract unpacks archive into destDir. The format is chosen by extension:
// .zip, .tar.gz or .tgz.
func (f *Fetcher) Extract(archive, destDir string) error {
	return Extract(archive, destDir)
}

// Extract is the package-level form of Fetcher.Extract.
func Extract(archive, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &ExtractError{Archive: archive, Err: err}
	}
	name := strings.ToLower(archive)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archive, destDir)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return extractTarGz(archive, destDir)
	default:
		return &ExtractError{Archive: archive, Err: fmt.Errorf("unsupported archive type")}
	}
}

// safeJoin resolves an archive entry name under destDir, rejecting absolute
// paths and any entry that climbs out of it.
func safeJoin(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return "", errUnsafePath
	}
	target := filepath.Join(destDir, clean)
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errUnsafePath
	}
	return target, nil
}

func extractZip(archive, destDir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return &ExtractError{Archive: archive, Err: err}
	}
	defer zr.Close()
	for _, zf := range zr.File {
		target, err := safeJoin(destDir, zf.Name)
		if err != nil {
			return &ExtractError{Archive: archive, Entry: zf.Name, Err: err}
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &ExtractError{Archive: archive, Entry: zf.Name, Err: err}
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return &ExtractError{Archive: archive, Entry: zf.Name, Err: err}
		}
		err = writeFile(target, rc, zf.Mode())
		rc.Close()
		if err != nil {
			return &ExtractError{Archive: archive, Entry: zf.Name, Err: err}
		}
	}
	return nil
}

func extractTarGz(archive, destDir string) error {
	fh, err := os.Open(archive)
	if err != nil {
		return &ExtractError{Archive: archive, Err: err}
	}
	defer fh.Close()
	gz, err := gzip.NewReader(fh)
	if err != nil {
		return &ExtractError{Archive: archive, Err: err}
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &ExtractError{Archive: archive, Err: err}
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return &ExtractError{Archive: archive, Entry: hdr.Name, Err: err}
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &ExtractError{Archive: archive, Entry: hdr.Name, Err: err}
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, fs.FileMode(hdr.Mode)); err != nil {
				return &ExtractError{Archive: archive, Entry: hdr.Name, Err: err}
			}
		default:
			// links and devices are not part of a runtime bundle
		}
	}
}

func writeFile(target string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	perm := mode.Perm() | 0o600
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

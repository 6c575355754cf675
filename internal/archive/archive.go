// Package archive extracts patch archives into a directory.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Format identifies an archive format.
type Format string

const (
	// FormatUnknown is returned when the format can't be determined.
	FormatUnknown Format = ""

	// FormatZip is a zip archive.
	FormatZip Format = "zip"

	// FormatTarGz is a gzip compressed tarball.
	FormatTarGz Format = "tar.gz"

	// FormatTarZst is a zstd compressed tarball.
	FormatTarZst Format = "tar.zst"
)

var (
	// ErrUnsupportedFormat is returned when the archive isn't in a supported format.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrCorrupt is returned when the archive can't be read.
	ErrCorrupt = errors.New("corrupt archive")
)

var magics = []struct {
	format Format
	magic  []byte
}{
	{FormatZip, []byte("PK\x03\x04")},
	{FormatZip, []byte("PK\x05\x06")},
	{FormatTarGz, []byte{0x1f, 0x8b}},
	{FormatTarZst, []byte{0x28, 0xb5, 0x2f, 0xfd}},
}

// extensions maps file name extensions to archive formats.
var extensions = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tar.zst", FormatTarZst},
	{".tgz", FormatTarGz},
	{".tzst", FormatTarZst},
	{".zip", FormatZip},
}

// FormatFromName returns the archive format matching a file name's extension.
func FormatFromName(name string) Format {
	name = strings.ToLower(name)

	for _, ext := range extensions {
		if strings.HasSuffix(name, ext.suffix) {
			return ext.format
		}
	}

	return FormatUnknown
}

// Extension returns the archive extension of a file name as written, or an empty string.
func Extension(name string) string {
	lower := strings.ToLower(name)

	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext.suffix) {
			return name[len(name)-len(ext.suffix):]
		}
	}

	return ""
}

// Detect returns the format of an archive based on its first bytes.
func Detect(path string) (Format, error) {
	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}

	defer f.Close()

	header, err := bufio.NewReader(f).Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}

	for _, m := range magics {
		if bytes.HasPrefix(header, m.magic) {
			return m.format, nil
		}
	}

	return FormatUnknown, nil
}

// Extract unpacks the archive at archivePath into dest, creating dest if needed.
// Entries are always kept within dest.
func Extract(ctx context.Context, archivePath string, dest string) error {
	format, err := Detect(archivePath)
	if err != nil {
		return err
	}

	if format == FormatUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(archivePath))
	}

	err = os.MkdirAll(dest, 0o755)
	if err != nil {
		return err
	}

	switch format {
	case FormatZip:
		return extractZip(ctx, archivePath, dest)
	case FormatTarGz, FormatTarZst:
		return extractTar(ctx, archivePath, dest, format)
	default:
		return ErrUnsupportedFormat
	}
}

func extractZip(ctx context.Context, archivePath string, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	defer zr.Close()

	for _, f := range zr.File {
		err := ctx.Err()
		if err != nil {
			return err
		}

		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			err = os.MkdirAll(target, 0o755)
			if err != nil {
				return err
			}

			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCorrupt, f.Name, err)
		}

		err = writeFile(target, rc, f.Mode())
		_ = rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

func extractTar(ctx context.Context, archivePath string, dest string, format Format) error {
	// #nosec G304
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}

	defer f.Close()

	var r io.Reader

	if format == FormatTarGz {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		defer gz.Close()

		r = gz
	} else {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		defer zr.Close()

		r = zr
	}

	tr := tar.NewReader(r)

	for {
		err := ctx.Err()
		if err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, 0o755)
		case tar.TypeReg:
			err = writeFile(target, tr, hdr.FileInfo().Mode())
		default:
			// Links and devices have no place in a patch archive.
			continue
		}

		if err != nil {
			return err
		}
	}
}

// entryPath resolves an archive entry name below dest.
func entryPath(dest string, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")

	target, err := securejoin.SecureJoin(dest, filepath.FromSlash(name))
	if err != nil {
		return "", fmt.Errorf("%w: bad entry %q: %w", ErrCorrupt, name, err)
	}

	return target, nil
}

func writeFile(target string, r io.Reader, mode fs.FileMode) error {
	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return err
	}

	perm := mode.Perm() | 0o600
	if mode.Perm() == 0 {
		perm = 0o644
	}

	// #nosec G304
	fd, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}

	defer fd.Close()

	// Read from the decompressor in chunks to avoid excessive memory consumption.
	for {
		_, err = io.CopyN(fd, r, 4*1024*1024)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("%w: %s: %w", ErrCorrupt, filepath.Base(target), err)
		}
	}

	return fd.Close()
}

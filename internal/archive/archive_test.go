package archive_test

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/internal/archive"
)

var testFiles = map[string]string{
	"manifest.json":            `{"actions": []}`,
	"overrides/config/a.cfg":   "a=1",
	"overrides/mods/extra.jar": "jar",
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	defer f.Close()

	zw := zip.NewWriter(f)

	_, err = zw.Create("overrides/")
	require.NoError(t, err)

	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
}

func writeTar(t *testing.T, w io.Writer, files map[string]string) {
	t.Helper()

	tw := tar.NewWriter(w)

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "overrides/", Typeflag: tar.TypeDir, Mode: 0o755}))

	for name, content := range files {
		err := tw.WriteHeader(&tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(content))})
		require.NoError(t, err)

		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}

	// Symlinks are ignored.
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}))

	require.NoError(t, tw.Close())
}

func requireExtracted(t *testing.T, dest string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
		require.NoError(t, err)
		require.Equal(t, content, string(got))
	}
}

func TestExtractZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "update.zip")
	writeZip(t, path, testFiles)

	format, err := archive.Detect(path)
	require.NoError(t, err)
	require.Equal(t, archive.FormatZip, format)

	dest := filepath.Join(dir, "out")
	require.NoError(t, archive.Extract(context.Background(), path, dest))
	requireExtracted(t, dest, testFiles)
}

func TestExtractTarGz(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "update.tar.gz")

	f, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	writeTar(t, gz, testFiles)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "out")
	require.NoError(t, archive.Extract(context.Background(), path, dest))
	requireExtracted(t, dest, testFiles)
	require.NoFileExists(t, filepath.Join(dest, "link"))
}

func TestExtractTarZst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "update.tar.zst")

	f, err := os.Create(path)
	require.NoError(t, err)

	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	writeTar(t, zw, testFiles)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	format, err := archive.Detect(path)
	require.NoError(t, err)
	require.Equal(t, archive.FormatTarZst, format)

	dest := filepath.Join(dir, "out")
	require.NoError(t, archive.Extract(context.Background(), path, dest))
	requireExtracted(t, dest, testFiles)
}

func TestExtractStaysInDestination(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "update.zip")
	writeZip(t, path, map[string]string{"../../escape.txt": "nope"})

	dest := filepath.Join(dir, "a", "out")
	require.NoError(t, archive.Extract(context.Background(), path, dest))

	require.NoFileExists(t, filepath.Join(dir, "escape.txt"))
	require.FileExists(t, filepath.Join(dest, "escape.txt"))
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Not an archive.
	path := filepath.Join(dir, "update_temp.zip")
	require.NoError(t, os.WriteFile(path, []byte("<html>rate limited</html>"), 0o600))

	err := archive.Extract(context.Background(), path, filepath.Join(dir, "out"))
	require.ErrorIs(t, err, archive.ErrUnsupportedFormat)

	// Truncated zip.
	path = filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04garbage"), 0o600))

	err = archive.Extract(context.Background(), path, filepath.Join(dir, "out"))
	require.ErrorIs(t, err, archive.ErrCorrupt)

	// Missing file.
	err = archive.Extract(context.Background(), filepath.Join(dir, "missing.zip"), filepath.Join(dir, "out"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatFromName(t *testing.T) {
	t.Parallel()

	require.Equal(t, archive.FormatZip, archive.FormatFromName("Update-26.02.ZIP"))
	require.Equal(t, archive.FormatTarGz, archive.FormatFromName("update.tgz"))
	require.Equal(t, archive.FormatTarGz, archive.FormatFromName("update.tar.gz"))
	require.Equal(t, archive.FormatTarZst, archive.FormatFromName("update.tar.zst"))
	require.Equal(t, archive.FormatTarZst, archive.FormatFromName("update.tzst"))
	require.Equal(t, archive.FormatUnknown, archive.FormatFromName("download"))
}

func TestExtension(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want string
	}{
		{"update_26.03.zip", ".zip"},
		{"Update-26.02.ZIP", ".ZIP"},
		{"update.tar.gz", ".tar.gz"},
		{"update.tzst", ".tzst"},
		{"download", ""},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, archive.Extension(tc.name), tc.name)
		require.Equal(t, tc.want != "", archive.FormatFromName(tc.name) != archive.FormatUnknown, tc.name)
	}
}

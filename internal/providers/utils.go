package providers

import (
	"path/filepath"
	"strings"

	"github.com/tcymc/tcy-updater/internal/archive"
	"github.com/tcymc/tcy-updater/internal/mirror"
)

// isArchive reports whether the file name looks like a patch archive.
func isArchive(name string) bool {
	return archive.FormatFromName(name) != archive.FormatUnknown
}

// versionFromArchive derives a version identifier from an "update*.zip" style file name.
// "update_26.03.01.12.00.zip" gives "26.03.01.12.00". Without a usable suffix, the base
// name is returned.
func versionFromArchive(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, archive.Extension(base))

	if !strings.HasPrefix(strings.ToLower(stem), "update") {
		return stem
	}

	version := strings.Trim(stem[len("update"):], "_-. ")
	if version == "" {
		return stem
	}

	return version
}

// sameURLs returns a download map using the same URL for every source.
func sameURLs(u string) map[string]string {
	return map[string]string{
		mirror.SourceCN:     u,
		mirror.SourceGlobal: u,
	}
}

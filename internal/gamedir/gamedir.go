// Package gamedir locates and inspects the mod-pack installation inside the game root.
package gamedir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/tcymc/tcy-updater/api"
)

// Folder types which can be listed.
const (
	FolderMods   = "mods"
	FolderConfig = "config"
)

var (
	// ErrNotFound is returned when the target version folder can't be found.
	ErrNotFound = errors.New("game version folder not found")

	// ErrInvalidPath is returned for paths which aren't allowed to be modified.
	ErrInvalidPath = errors.New("invalid path")
)

// layouts lists the supported installation layouts, in lookup order.
var layouts = [][]string{
	{".minecraft", "versions"},
	{"versions"},
}

// VersionDir returns the folder of the named game version, supporting both the launcher's
// ".minecraft/versions" and a bare "versions" layout.
func VersionDir(root string, name string) (string, error) {
	for _, layout := range layouts {
		dir := filepath.Join(append(append([]string{root}, layout...), name)...)

		_, err := os.Stat(dir)
		if err == nil {
			return dir, nil
		}
	}

	return "", ErrNotFound
}

// CheckPath reports whether the named game version is installed below root.
func CheckPath(root string, name string) bool {
	_, err := VersionDir(root, name)

	return err == nil
}

// ResolveSubdir returns a sub-folder (mods or config) of the game version. When the
// ".minecraft" layout doesn't have it, the bare layout is used.
func ResolveSubdir(root string, name string, sub string) string {
	primary := filepath.Join(root, ".minecraft", "versions", name, sub)

	_, err := os.Stat(primary)
	if err == nil {
		return primary
	}

	return filepath.Join(root, "versions", name, sub)
}

// ListFiles returns the recursive content of the mods or config folder. Folders come first,
// then entries are ordered by case-insensitive name. A missing folder is an empty list.
func ListFiles(root string, name string, folderType string) ([]api.FileNode, error) {
	sub := FolderConfig
	if folderType == FolderMods {
		sub = FolderMods
	}

	return scan(ResolveSubdir(root, name, sub), "")
}

func scan(dir string, rel string) ([]api.FileNode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []api.FileNode{}, nil
		}

		return nil, err
	}

	slices.SortStableFunc(entries, func(a fs.DirEntry, b fs.DirEntry) int {
		if a.IsDir() != b.IsDir() {
			if a.IsDir() {
				return -1
			}

			return 1
		}

		return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	})

	nodes := make([]api.FileNode, 0, len(entries))

	for _, entry := range entries {
		relPath := entry.Name()
		if rel != "" {
			relPath = rel + "/" + entry.Name()
		}

		if entry.IsDir() {
			children, err := scan(filepath.Join(dir, entry.Name()), relPath)
			if err != nil {
				return nil, err
			}

			nodes = append(nodes, api.FileNode{
				Type:     "folder",
				Name:     entry.Name(),
				Path:     relPath,
				Children: children,
			})

			continue
		}

		info, err := entry.Info()
		if err != nil {
			// The entry went away while listing.
			continue
		}

		nodes = append(nodes, api.FileNode{
			Type: "file",
			Name: entry.Name(),
			Path: relPath,
			Size: fmt.Sprintf("%.1f KB", float64(info.Size())/1024),
			Date: info.ModTime().Format("2006-01-02 15:04"),
		})
	}

	return nodes, nil
}

// DeleteMod removes a single file from the mods folder. Only regular files can be removed and the
// relative path may not contain "..".
func DeleteMod(root string, name string, rel string) error {
	if rel == "" || strings.Contains(rel, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}

	modsDir := ResolveSubdir(root, name, FolderMods)

	target, err := securejoin.SecureJoin(modsDir, rel)
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %q isn't a file", ErrInvalidPath, rel)
	}

	return os.Remove(target)
}

// ScanArchives returns the names of the "update*.zip" archives present in root, sorted.
func ScanArchives(root string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "update*.zip"))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, filepath.Base(match))
	}

	slices.Sort(names)

	return names, nil
}

package gamedir_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/internal/gamedir"
)

const versionName = "异界战斗幻想"

func writeFile(t *testing.T, path string, size int) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
}

func TestCheckPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		layout []string
		want   bool
	}{
		{"launcher layout", []string{".minecraft", "versions", versionName}, true},
		{"bare layout", []string{"versions", versionName}, true},
		{"missing", []string{"versions", "other"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(append([]string{root}, tc.layout...)...), 0o755))
			require.Equal(t, tc.want, gamedir.CheckPath(root, versionName))
		})
	}
}

func TestResolveSubdir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	// Without the launcher layout, the bare layout is used.
	require.Equal(t, filepath.Join(root, "versions", versionName, "mods"), gamedir.ResolveSubdir(root, versionName, "mods"))

	primary := filepath.Join(root, ".minecraft", "versions", versionName, "mods")
	require.NoError(t, os.MkdirAll(primary, 0o755))
	require.Equal(t, primary, gamedir.ResolveSubdir(root, versionName, "mods"))
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mods := filepath.Join(root, "versions", versionName, "mods")

	writeFile(t, filepath.Join(mods, "b.jar"), 2048)
	writeFile(t, filepath.Join(mods, "A.jar"), 512)
	writeFile(t, filepath.Join(mods, "zeta", "inner.jar"), 1024)

	nodes, err := gamedir.ListFiles(root, versionName, "mods")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	require.Equal(t, "folder", nodes[0].Type)
	require.Equal(t, "zeta", nodes[0].Name)
	require.Len(t, nodes[0].Children, 1)
	require.Equal(t, "zeta/inner.jar", nodes[0].Children[0].Path)
	require.Equal(t, "1.0 KB", nodes[0].Children[0].Size)

	require.Equal(t, "A.jar", nodes[1].Name)
	require.Equal(t, "0.5 KB", nodes[1].Size)
	require.Len(t, nodes[1].Date, len("2006-01-02 15:04"))
	require.Equal(t, "b.jar", nodes[2].Name)

	// Missing config folder.
	nodes, err = gamedir.ListFiles(root, versionName, "config")
	require.NoError(t, err)
	require.Empty(t, nodes)
}

func TestDeleteMod(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mods := filepath.Join(root, "versions", versionName, "mods")

	writeFile(t, filepath.Join(mods, "old.jar"), 10)
	writeFile(t, filepath.Join(root, "secret.txt"), 10)
	require.NoError(t, os.MkdirAll(filepath.Join(mods, "folder"), 0o755))

	require.ErrorIs(t, gamedir.DeleteMod(root, versionName, "../../../secret.txt"), gamedir.ErrInvalidPath)
	require.ErrorIs(t, gamedir.DeleteMod(root, versionName, ""), gamedir.ErrInvalidPath)
	require.ErrorIs(t, gamedir.DeleteMod(root, versionName, "folder"), gamedir.ErrInvalidPath)
	require.Error(t, gamedir.DeleteMod(root, versionName, "missing.jar"))

	require.NoError(t, gamedir.DeleteMod(root, versionName, "old.jar"))
	require.NoFileExists(t, filepath.Join(mods, "old.jar"))
	require.FileExists(t, filepath.Join(root, "secret.txt"))
}

func TestScanArchives(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "update_26.03.01.zip"), 1)
	writeFile(t, filepath.Join(root, "update.zip"), 1)
	writeFile(t, filepath.Join(root, "other.zip"), 1)

	names, err := gamedir.ScanArchives(root)
	require.NoError(t, err)
	require.Equal(t, []string{"update.zip", "update_26.03.01.zip"}, names)
}

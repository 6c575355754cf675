package patch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/internal/download"
	"github.com/tcymc/tcy-updater/internal/patch"
	"github.com/tcymc/tcy-updater/internal/progress"
)

const archiveURL = "https://github.com/tcymc/pack/releases/download/26.03/update_26.03.zip"

type fakeDownloader struct {
	mu    sync.Mutex
	files map[string][]byte
	urls  []string
}

func (f *fakeDownloader) File(_ context.Context, rawURL string, target string, progressFunc download.ProgressFunc) (int64, error) {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	data, ok := f.files[rawURL]
	f.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("%w: 404 Not Found", download.ErrHTTPStatus)
	}

	err := os.WriteFile(target, data, 0o600)
	if err != nil {
		return 0, err
	}

	if progressFunc != nil {
		progressFunc(int64(len(data)), int64(len(data)))
	}

	return int64(len(data)), nil
}

func (f *fakeDownloader) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string{}, f.urls...)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)

		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func apply(t *testing.T, d *fakeDownloader, root string, source string) (*patch.Report, *progress.Recorder, error) {
	t.Helper()

	rec := &progress.Recorder{}
	applier := patch.NewApplier(d, "")

	report, err := applier.Apply(context.Background(), patch.Request{
		Version:      "26.03",
		URL:          archiveURL,
		Source:       source,
		GameRoot:     root,
		MirrorPrefix: "https://gh-proxy.org/",
	}, rec)

	return report, rec, err
}

func requireClean(t *testing.T, root string) {
	t.Helper()

	require.NoDirExists(t, filepath.Join(root, patch.ScratchDir))
	require.NoFileExists(t, filepath.Join(root, "update_26.03.zip"))
}

func TestApplyDeleteKeyword(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mods", "old_patch.jar"), []byte("old"))
	writeFile(t, filepath.Join(root, "mods", "new_patch.jar"), []byte("new"))
	writeFile(t, filepath.Join(root, "mods", "OLDER.jar"), []byte("older"))

	d := &fakeDownloader{files: map[string][]byte{
		archiveURL: buildZip(t, map[string]string{
			"manifest.json": `{"actions":[{"type":"delete_keyword","folder":"mods","keyword":"old"}]}`,
		}),
	}}

	report, rec, err := apply(t, d, root, "global")
	require.NoError(t, err)

	require.NoFileExists(t, filepath.Join(root, "mods", "old_patch.jar"))
	require.NoFileExists(t, filepath.Join(root, "mods", "OLDER.jar"))
	require.FileExists(t, filepath.Join(root, "mods", "new_patch.jar"))
	require.Equal(t, 2, report.Count(patch.OpOK))
	require.NoError(t, report.Err())

	// The global source isn't rewritten.
	require.Equal(t, []string{archiveURL}, d.requested())

	last, ok := rec.Last()
	require.True(t, ok)
	require.Equal(t, 100, last.Percent)

	requireClean(t, root)
}

func TestApplyCopyFolderAndDelete(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config", "a.cfg"), []byte("old a"))
	writeFile(t, filepath.Join(root, "config", "b.cfg"), []byte("keep b"))
	writeFile(t, filepath.Join(root, "mods", "removed.jar"), []byte("x"))

	// A scratch directory left behind by an earlier failure.
	writeFile(t, filepath.Join(root, patch.ScratchDir, "stale.txt"), []byte("stale"))

	d := &fakeDownloader{files: map[string][]byte{
		"https://gh-proxy.org/" + archiveURL: buildZip(t, map[string]string{
			"manifest.json": `{"actions":[
				{"type":"copy_folder","src":"overrides/config","dest":"config"},
				{"type":"copy_folder","src":"missing","dest":"config"},
				{"type":"delete","path":"mods/removed.jar"},
				{"type":"delete","path":"mods/absent.jar"}
			]}`,
			"overrides/config/a.cfg":     "new a",
			"overrides/config/sub/c.cfg": "c",
		}),
	}}

	report, _, err := apply(t, d, root, "cn")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "config", "a.cfg"))
	require.NoError(t, err)
	require.Equal(t, "new a", string(data))

	data, err = os.ReadFile(filepath.Join(root, "config", "b.cfg"))
	require.NoError(t, err)
	require.Equal(t, "keep b", string(data))

	require.FileExists(t, filepath.Join(root, "config", "sub", "c.cfg"))
	require.NoFileExists(t, filepath.Join(root, "mods", "removed.jar"))

	require.Equal(t, 2, report.Count(patch.OpOK))
	require.Equal(t, 2, report.Count(patch.OpSkipped))
	require.Equal(t, []string{"https://gh-proxy.org/" + archiveURL}, d.requested())

	requireClean(t, root)
}

func TestApplyExternalFilesTolerance(t *testing.T) {
	t.Parallel()

	const expected = 4096

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mods", "close.jar"), make([]byte, expected+1023))
	writeFile(t, filepath.Join(root, "mods", "far.jar"), make([]byte, expected+1024))

	manifest := fmt.Sprintf(`{"external_files":[
		{"name":"close.jar","path":"mods/close.jar","url":"https://github.com/f/close.jar","size":%d},
		{"name":"far.jar","path":"mods/far.jar","url":"https://github.com/f/far.jar","size":%d},
		{"name":"new.jar","path":"mods/deep/new.jar","url":"https://cdn.example.com/new.jar","size":3}
	]}`, expected, expected)

	d := &fakeDownloader{files: map[string][]byte{
		"https://gh-proxy.org/" + archiveURL:                buildZip(t, map[string]string{"manifest.json": manifest}),
		"https://gh-proxy.org/https://github.com/f/far.jar": make([]byte, expected),
		"https://cdn.example.com/new.jar":                   []byte("new"),
	}}

	report, _, err := apply(t, d, root, "cn")
	require.NoError(t, err)

	require.Equal(t, []string{
		"https://gh-proxy.org/" + archiveURL,
		"https://gh-proxy.org/https://github.com/f/far.jar",
		"https://cdn.example.com/new.jar",
	}, d.requested())

	info, err := os.Stat(filepath.Join(root, "mods", "far.jar"))
	require.NoError(t, err)
	require.EqualValues(t, expected, info.Size())
	require.FileExists(t, filepath.Join(root, "mods", "deep", "new.jar"))

	require.Equal(t, 1, report.Count(patch.OpSkipped))
	require.Equal(t, 2, report.Count(patch.OpOK))
}

func TestApplyFailedOpsDontAbort(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), filepath.Base(root)+"-outside.txt")
	writeFile(t, outside, []byte("x"))

	t.Cleanup(func() { _ = os.Remove(outside) })

	d := &fakeDownloader{files: map[string][]byte{
		archiveURL: buildZip(t, map[string]string{
			"manifest.json": fmt.Sprintf(`{"actions":[
				{"type":"delete","path":""},
				{"type":"delete","path":"../%s"}
			],"external_files":[
				{"name":"gone.jar","path":"mods/gone.jar","url":"https://cdn.example.com/gone.jar","size":1}
			]}`, filepath.Base(outside)),
		}),
	}}

	report, _, err := apply(t, d, root, "global")
	require.NoError(t, err)

	// The escaping path is clamped inside the root.
	require.FileExists(t, outside)

	require.Equal(t, 2, report.Count(patch.OpFailed))
	require.Equal(t, 1, report.Count(patch.OpSkipped))
	require.ErrorIs(t, report.Err(), patch.ErrInvalidPath)
	require.ErrorIs(t, report.Err(), download.ErrHTTPStatus)

	requireClean(t, root)
}

func TestApplyNoManifest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	d := &fakeDownloader{files: map[string][]byte{
		archiveURL: buildZip(t, map[string]string{"readme.txt": "hello"}),
	}}

	report, rec, err := apply(t, d, root, "global")
	require.NoError(t, err)
	require.Empty(t, report.Ops)

	last, ok := rec.Last()
	require.True(t, ok)
	require.Equal(t, 100, last.Percent)

	requireClean(t, root)
}

func TestApplyMalformedManifest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	d := &fakeDownloader{files: map[string][]byte{
		archiveURL: buildZip(t, map[string]string{"manifest.json": "{not json"}),
	}}

	report, rec, err := apply(t, d, root, "global")
	require.NoError(t, err)
	require.Empty(t, report.Ops)

	logs := rec.Logs()
	require.Contains(t, logs[len(logs)-1], "Ignoring invalid patch manifest")
}

func TestApplyDownloadFailed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d := &fakeDownloader{files: map[string][]byte{}}

	_, _, err := apply(t, d, root, "global")
	require.ErrorIs(t, err, patch.ErrDownloadFailed)
	require.ErrorIs(t, err, download.ErrHTTPStatus)

	var applyErr *patch.ApplyError
	require.True(t, errors.As(err, &applyErr))
	require.Equal(t, "26.03", applyErr.Version)

	requireClean(t, root)
}

func TestApplyExtractFailed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d := &fakeDownloader{files: map[string][]byte{archiveURL: []byte("this is not an archive")}}

	_, _, err := apply(t, d, root, "global")
	require.ErrorIs(t, err, patch.ErrExtractFailed)

	requireClean(t, root)
}

func TestApplyArchiveInPlace(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mods", "old_patch.jar"), []byte("old"))

	archivePath := filepath.Join(root, "update_26.03.zip")
	payload := buildZip(t, map[string]string{
		"manifest.json":      `{"actions":[{"type":"delete_keyword","folder":"mods","keyword":"old"},{"type":"copy_folder","src":"mods","dest":"mods"}]}`,
		"mods/new_patch.jar": "new",
	})
	writeFile(t, archivePath, payload)

	client := download.New(download.Options{Attempts: 1})
	applier := patch.NewApplier(client, "")

	report, err := applier.Apply(context.Background(), patch.Request{
		Version:  "26.03",
		URL:      download.FileURL(archivePath),
		Source:   "cn",
		GameRoot: root,
	}, &progress.Recorder{})
	require.NoError(t, err)
	require.Equal(t, 2, report.Count(patch.OpOK))

	require.NoFileExists(t, filepath.Join(root, "mods", "old_patch.jar"))
	require.FileExists(t, filepath.Join(root, "mods", "new_patch.jar"))
	require.NoDirExists(t, filepath.Join(root, patch.ScratchDir))

	// The archive wasn't downloaded by Apply, so it's left alone.
	content, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	require.Equal(t, payload, content)
}

func TestApplyReportsEveryAction(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"a.jar", "b.jar", "c.jar", "d.jar"} {
		writeFile(t, filepath.Join(root, "mods", name), []byte(name))
	}

	d := &fakeDownloader{files: map[string][]byte{
		archiveURL: buildZip(t, map[string]string{
			"manifest.json": `{"actions":[
  {"type":"delete","path":"mods/a.jar"},
  {"type":"delete","path":"mods/b.jar"},
  {"type":"delete","path":"mods/c.jar"},
  {"type":"delete","path":"mods/d.jar"}
]}`,
		}),
	}}

	_, rec, err := apply(t, d, root, "global")
	require.NoError(t, err)

	steps := []progress.Event{}
	for _, ev := range rec.Events() {
		if strings.HasPrefix(ev.Status, "Processing") {
			steps = append(steps, ev)
		}
	}

	require.Len(t, steps, 4)

	for i, ev := range steps {
		require.Equal(t, (i+1)*25, ev.Percent)
		require.Contains(t, ev.Status, fmt.Sprintf("(%d/4)", i+1))
	}
}

func TestApplyUnknownAction(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mods", "old.jar"), []byte("old"))

	d := &fakeDownloader{files: map[string][]byte{
		archiveURL: buildZip(t, map[string]string{
			"manifest.json": `{"actions":[{"type":"rename","path":"mods/old.jar"},{"type":"delete","path":"mods/old.jar"}]}`,
		}),
	}}

	report, rec, err := apply(t, d, root, "global")
	require.NoError(t, err)
	require.Len(t, report.Ops, 2)
	require.Equal(t, "rename", report.Ops[0].Kind)
	require.Equal(t, patch.OpSkipped, report.Ops[0].Status)
	require.Equal(t, patch.OpOK, report.Ops[1].Status)
	require.Contains(t, rec.Logs(), "Skipping unknown action rename")
	require.NoFileExists(t, filepath.Join(root, "mods", "old.jar"))
}

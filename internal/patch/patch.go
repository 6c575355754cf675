// Package patch applies the patch archive of a single mod-pack version to the game root.
package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/archive"
	"github.com/tcymc/tcy-updater/internal/download"
	"github.com/tcymc/tcy-updater/internal/manifest"
	"github.com/tcymc/tcy-updater/internal/mirror"
	"github.com/tcymc/tcy-updater/internal/progress"
)

const (
	// ScratchDir is the directory, relative to the game root, the archive is unpacked into.
	ScratchDir = "temp_update_tcy"

	// FallbackArchiveName is used when the URL doesn't carry a usable archive name.
	FallbackArchiveName = "update_temp.zip"

	// SizeTolerance is the size difference below which an existing external file is kept.
	SizeTolerance = 1024
)

// Downloader fetches a URL into a local file.
type Downloader interface {
	File(ctx context.Context, rawURL string, target string, progressFunc download.ProgressFunc) (int64, error)
}

// Request describes the version to apply.
type Request struct {
	Version      string
	URL          string
	Source       string
	GameRoot     string
	MirrorPrefix string
}

// Applier applies patch archives.
type Applier struct {
	downloader Downloader
	gatedHost  string
}

// NewApplier returns an Applier downloading through the provided Downloader. Only URLs on
// gatedHost are rewritten through the mirror.
func NewApplier(downloader Downloader, gatedHost string) *Applier {
	if gatedHost == "" {
		gatedHost = mirror.DefaultGatedHost
	}

	return &Applier{
		downloader: downloader,
		gatedHost:  gatedHost,
	}
}

// Apply downloads, unpacks and applies one version's patch archive. Only a failure to download
// or unpack the archive is returned, as an *ApplyError. Every other problem is recorded in the
// report and logged.
func (a *Applier) Apply(ctx context.Context, req Request, reporter progress.Reporter) (*Report, error) {
	if reporter == nil {
		reporter = progress.Nop{}
	}

	gameRoot, err := filepath.Abs(req.GameRoot)
	if err != nil {
		return nil, &ApplyError{Version: req.Version, Reason: ErrDownloadFailed, Err: err}
	}

	// Resolve the download URL.
	archiveURL := mirror.ForSource(req.URL, req.Source, req.MirrorPrefix, a.gatedHost)
	archivePath := filepath.Join(gameRoot, archiveName(archiveURL))
	scratch := filepath.Join(gameRoot, ScratchDir)

	// An archive already sitting where it would be downloaded to is used in place and kept.
	inPlace := isSameFile(archiveURL, archivePath)

	// Always clean up the scratch directory and the downloaded archive.
	defer func() {
		_ = os.RemoveAll(scratch)

		if !inPlace {
			_ = os.Remove(archivePath)
		}
	}()

	if inPlace {
		reporter.Log(ctx, "Using local patch archive "+filepath.Base(archivePath))
		slog.InfoContext(ctx, "Using local patch archive", "version", req.Version, "path", archivePath)
		reporter.Progress(ctx, progress.Event{Percent: 100, Speed: progress.NoSpeed, Status: "Fetching patch archive..."})
	} else {
		// Download the archive.
		reporter.Log(ctx, "Downloading patch archive "+filepath.Base(archivePath))
		slog.InfoContext(ctx, "Downloading patch archive", "version", req.Version, "url", archiveURL)

		transfer := progress.NewTransfer(reporter, func(int) string { return "Fetching patch archive..." })

		_, err = a.downloader.File(ctx, archiveURL, archivePath, transfer.Callback(ctx))
		if err != nil {
			return nil, &ApplyError{Version: req.Version, Reason: ErrDownloadFailed, Err: err}
		}
	}

	// Unpack it into a clean scratch directory.
	err = os.RemoveAll(scratch)
	if err != nil {
		return nil, &ApplyError{Version: req.Version, Reason: ErrExtractFailed, Err: err}
	}

	err = archive.Extract(ctx, archivePath, scratch)
	if err != nil {
		return nil, &ApplyError{Version: req.Version, Reason: ErrExtractFailed, Err: err}
	}

	// Load the manifest, a broken one is an empty patch.
	patchManifest, err := manifest.LoadPatchManifest(filepath.Join(scratch, manifest.PatchManifestName))
	if err != nil {
		slog.WarnContext(ctx, "Ignoring patch manifest", "version", req.Version, "err", err)
		reporter.Log(ctx, "Ignoring invalid patch manifest: "+err.Error())
	}

	run := &run{
		applier:  a,
		req:      req,
		root:     gameRoot,
		scratch:  scratch,
		reporter: reporter,
		report:   &Report{Version: req.Version},
		total:    len(patchManifest.Actions) + len(patchManifest.ExternalFiles),
	}

	for _, action := range patchManifest.Actions {
		run.action(ctx, action)
	}

	for _, file := range patchManifest.ExternalFiles {
		run.externalFile(ctx, file)
	}

	if run.total == 0 {
		reporter.Progress(ctx, progress.Event{Percent: 100, Speed: progress.NoSpeed, Status: "Nothing to apply"})
	}

	slog.InfoContext(ctx, "Applied patch", "version", req.Version, "ok", run.report.Count(OpOK), "skipped", run.report.Count(OpSkipped), "failed", run.report.Count(OpFailed))

	return run.report, nil
}

// archiveName derives the local archive name from the URL path.
func archiveName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return FallbackArchiveName
	}

	name := path.Base(u.Path)
	if archive.FormatFromName(name) == archive.FormatUnknown {
		return FallbackArchiveName
	}

	return name
}

// isSameFile reports whether rawURL is a file:// URL pointing at target.
func isSameFile(rawURL string, target string) bool {
	src, ok := download.LocalPath(rawURL)
	if !ok {
		return false
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}

	targetInfo, err := os.Stat(target)
	if err != nil {
		return false
	}

	return os.SameFile(srcInfo, targetInfo)
}

// run holds the progress of a single Apply call.
type run struct {
	applier  *Applier
	req      Request
	root     string
	scratch  string
	reporter progress.Reporter
	report   *Report

	total int
	done  int
}

func (r *run) step(ctx context.Context, name string) {
	r.done++

	r.reporter.Progress(ctx, progress.Event{
		Percent: r.done * 100 / r.total,
		Speed:   progress.NoSpeed,
		Status:  fmt.Sprintf("Processing (%d/%d): %s", r.done, r.total, name),
	})
}

func (r *run) record(ctx context.Context, op OpResult) {
	r.report.add(op)

	switch op.Status {
	case OpFailed:
		slog.WarnContext(ctx, "Patch operation failed", "version", r.req.Version, "kind", op.Kind, "target", op.Target, "err", op.Err)
		r.reporter.Log(ctx, fmt.Sprintf("Failed %s %s: %v", op.Kind, op.Target, op.Err))
	case OpSkipped:
		slog.DebugContext(ctx, "Patch operation skipped", "version", r.req.Version, "kind", op.Kind, "target", op.Target)
	case OpOK:
		slog.DebugContext(ctx, "Patch operation done", "version", r.req.Version, "kind", op.Kind, "target", op.Target)
	}
}

func (r *run) action(ctx context.Context, action api.PatchAction) {
	_, ok := api.PatchActionTypes[action.Type]
	if !ok {
		r.step(ctx, "Unknown action")
		slog.WarnContext(ctx, "Skipping unknown patch action", "version", r.req.Version, "type", action.Type.String())
		r.reporter.Log(ctx, "Skipping unknown action "+action.Type.String())
		r.record(ctx, OpResult{Kind: action.Type.String(), Status: OpSkipped})

		return
	}

	switch action.Type {
	case api.PatchActionCopyFolder:
		r.step(ctx, "Merging configuration")
		r.copyFolder(ctx, action)
	case api.PatchActionDeleteKeyword:
		r.step(ctx, "Removing old files")
		r.deleteKeyword(ctx, action)
	case api.PatchActionDelete:
		r.step(ctx, "Removing old files")
		r.deletePath(ctx, action)
	}
}

func (r *run) deleteKeyword(ctx context.Context, action api.PatchAction) {
	kind := string(api.PatchActionDeleteKeyword)

	if action.Keyword == "" {
		r.record(ctx, OpResult{Kind: kind, Target: action.Folder, Status: OpSkipped})

		return
	}

	folder, err := resolve(r.root, action.Folder, true)
	if err != nil {
		r.record(ctx, OpResult{Kind: kind, Target: action.Folder, Status: OpFailed, Err: err})

		return
	}

	matches, err := matchKeyword(folder, action.Keyword)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.record(ctx, OpResult{Kind: kind, Target: action.Folder, Status: OpSkipped})

			return
		}

		r.record(ctx, OpResult{Kind: kind, Target: action.Folder, Status: OpFailed, Err: err})

		return
	}

	if len(matches) == 0 {
		r.record(ctx, OpResult{Kind: kind, Target: action.Folder, Status: OpSkipped})

		return
	}

	for _, name := range matches {
		target := path.Join(filepath.ToSlash(action.Folder), name)

		err := os.Remove(filepath.Join(folder, name))
		if err != nil {
			r.record(ctx, OpResult{Kind: kind, Target: target, Status: OpFailed, Err: err})

			continue
		}

		r.reporter.Log(ctx, "Removed "+name)
		r.record(ctx, OpResult{Kind: kind, Target: target, Status: OpOK})
	}
}

func (r *run) deletePath(ctx context.Context, action api.PatchAction) {
	kind := string(api.PatchActionDelete)

	target, err := resolve(r.root, action.Path, false)
	if err != nil {
		r.record(ctx, OpResult{Kind: kind, Target: action.Path, Status: OpFailed, Err: err})

		return
	}

	err = os.Remove(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.record(ctx, OpResult{Kind: kind, Target: action.Path, Status: OpSkipped})

			return
		}

		r.record(ctx, OpResult{Kind: kind, Target: action.Path, Status: OpFailed, Err: err})

		return
	}

	r.record(ctx, OpResult{Kind: kind, Target: action.Path, Status: OpOK})
}

func (r *run) copyFolder(ctx context.Context, action api.PatchAction) {
	kind := string(api.PatchActionCopyFolder)

	src, err := resolve(r.scratch, action.Src, true)
	if err != nil {
		r.record(ctx, OpResult{Kind: kind, Target: action.Dest, Status: OpFailed, Err: err})

		return
	}

	dest, err := resolve(r.root, action.Dest, true)
	if err != nil {
		r.record(ctx, OpResult{Kind: kind, Target: action.Dest, Status: OpFailed, Err: err})

		return
	}

	// A missing source is a no-op.
	_, err = os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		r.record(ctx, OpResult{Kind: kind, Target: action.Dest, Status: OpSkipped})

		return
	}

	err = mergeTree(ctx, src, dest)
	if err != nil {
		r.record(ctx, OpResult{Kind: kind, Target: action.Dest, Status: OpFailed, Err: err})

		return
	}

	r.reporter.Log(ctx, fmt.Sprintf("Merged %s -> %s", action.Src, action.Dest))
	r.record(ctx, OpResult{Kind: kind, Target: action.Dest, Status: OpOK})
}

func (r *run) externalFile(ctx context.Context, file api.ExternalFile) {
	r.done++

	target, err := resolve(r.root, file.Path, false)
	if err != nil {
		r.record(ctx, OpResult{Kind: OpKindExternalFile, Target: file.Path, Status: OpFailed, Err: err})

		return
	}

	// Keep files already present with about the expected size.
	info, err := os.Stat(target)
	if err == nil && info.Mode().IsRegular() && withinTolerance(info.Size(), file.Size) {
		r.reporter.Progress(ctx, progress.Event{
			Percent: r.done * 100 / r.total,
			Speed:   progress.NoSpeed,
			Status:  "Skipping existing: " + file.Name,
		})

		r.record(ctx, OpResult{Kind: OpKindExternalFile, Target: file.Path, Status: OpSkipped})

		return
	}

	fileURL := mirror.ForSource(file.URL, r.req.Source, r.req.MirrorPrefix, r.applier.gatedHost)

	err = os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		r.record(ctx, OpResult{Kind: OpKindExternalFile, Target: file.Path, Status: OpFailed, Err: err})

		return
	}

	r.reporter.Log(ctx, "Fetching "+file.Name)

	// The bar follows the file's own progress.
	done, total := r.done, r.total
	transfer := progress.NewTransfer(r.reporter, func(percent int) string {
		return fmt.Sprintf("Downloading file (%d/%d): %s (%d%%)", done, total, file.Name, percent)
	})

	_, err = r.applier.downloader.File(ctx, fileURL, target, transfer.Callback(ctx))
	if err != nil {
		r.record(ctx, OpResult{Kind: OpKindExternalFile, Target: file.Path, Status: OpFailed, Err: err})

		return
	}

	r.record(ctx, OpResult{Kind: OpKindExternalFile, Target: file.Path, Status: OpOK})
}

func withinTolerance(size int64, expected int64) bool {
	diff := size - expected
	if diff < 0 {
		diff = -diff
	}

	return diff < SizeTolerance
}

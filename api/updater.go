package api

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// UpdaterStatus defines a struct to hold information about the updater and the local installation.
type UpdaterStatus struct {
	RunningVersion string `json:"running_version" yaml:"running_version"`
	CurrentVersion string `json:"current_version" yaml:"current_version"`
	GameRoot       string `json:"game_root"       yaml:"game_root"`
	GameDirFound   bool   `json:"game_dir_found"  yaml:"game_dir_found"`

	SkippedVersions []string `json:"skipped_versions" yaml:"skipped_versions"`
	MirrorPrefix    string   `json:"mirror_prefix"    yaml:"mirror_prefix"`
}

// UpdatesApply is the request body used to start an update sequence.
type UpdatesApply struct {
	Versions []string `json:"versions" yaml:"versions"`
	Source   string   `json:"source"   yaml:"source"`

	// Versions offered by the last check but not selected are added to the skip list.
	Deferred []string `json:"deferred,omitempty" yaml:"deferred,omitempty"`
}

// Validate performs basic sanity checks against an apply request.
func (u *UpdatesApply) Validate() error {
	if len(u.Versions) == 0 {
		return errors.New("no version selected")
	}

	if strings.TrimSpace(u.Source) == "" {
		return errors.New("a download source is required")
	}

	for _, v := range u.Deferred {
		if slices.Contains(u.Versions, v) {
			return errors.New("version '" + v + "' can't be both selected and deferred")
		}
	}

	return nil
}

// UpdatesSkip is the request body used to defer a version.
type UpdatesSkip struct {
	Version string `json:"version" yaml:"version"`
}

// UpdatesState holds information about the current or last update sequence.
type UpdatesState struct {
	Running bool `json:"running" yaml:"running"`

	Percent int    `json:"percent" yaml:"percent"`
	Speed   string `json:"speed"   yaml:"speed"`
	Status  string `json:"status"  yaml:"status"`

	LastRun    time.Time       `json:"last_run"              yaml:"last_run"`
	LastResult *SequenceResult `json:"last_result,omitempty" yaml:"last_result,omitempty"`
	LastError  string          `json:"last_error,omitempty"  yaml:"last_error,omitempty"`
}

// FileNode represents a file or folder in the installation tree.
type FileNode struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`

	// Only set for files.
	Size string `json:"size,omitempty" yaml:"size,omitempty"`
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	// Only set for folders.
	Children []FileNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// SelfUpdateStatus holds the result of an updater build check.
type SelfUpdateStatus struct {
	RunningVersion string `json:"running_version" yaml:"running_version"`
	Available      bool   `json:"available"       yaml:"available"`

	Latest *SelfDescriptor `json:"latest,omitempty" yaml:"latest,omitempty"`
}

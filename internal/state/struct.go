package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// InitialVersion is the version marker of a fresh installation.
const InitialVersion = "26.02.06.15.24"

// DefaultMirrorPrefix is the mirror prefix of a fresh installation.
const DefaultMirrorPrefix = "https://gh-proxy.org/"

const (
	keyStateVersion    = "state_version"
	keyCurrentVersion  = "current_version"
	keySkippedVersions = "skipped_versions"
	keyMirrorPrefix    = "mirror_prefix"

	keyBgType       = "bg_type"
	keyCustomBgData = "custom_bg_data"
)

// DisplayDefaults holds the default values of the settings only used by the graphical shell.
var DisplayDefaults = map[string]any{
	"bg_type":        "default",
	"custom_bg_data": "",
	"visual_effect":  "glass",
	"mask_opacity":   40,
	"blur_radius":    0,
	"text_color":     "#333333",
	"accent_color":   "#f59e0b",
	"bg_mode":        "cover",
	"font_family":    "'Segoe UI', system-ui, sans-serif",
	"window_size":    "950x600",
}

// State represents the on-disk persistent state (launcher_settings.json).
type State struct {
	path    string
	mu      sync.Mutex
	created bool

	StateVersion int

	CurrentVersion  string
	SkippedVersions []string
	MirrorPrefix    string

	// Display holds every other key verbatim.
	Display map[string]any
}

// MarshalJSON flattens the state into a single JSON object.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toMap())
}

// UnmarshalJSON reads a flattened JSON object.
func (s *State) UnmarshalJSON(data []byte) error {
	values := map[string]any{}

	err := json.Unmarshal(data, &values)
	if err != nil {
		return err
	}

	return s.fromMap(values)
}

func (s *State) toMap() map[string]any {
	values := maps.Clone(s.Display)
	if values == nil {
		values = map[string]any{}
	}

	skipped := s.SkippedVersions
	if skipped == nil {
		skipped = []string{}
	}

	values[keyStateVersion] = s.StateVersion
	values[keyCurrentVersion] = s.CurrentVersion
	values[keySkippedVersions] = skipped
	values[keyMirrorPrefix] = s.MirrorPrefix

	return values
}

func (s *State) fromMap(values map[string]any) error {
	if s.Display == nil {
		s.Display = map[string]any{}
	}

	for k, v := range values {
		switch k {
		case keyStateVersion:
			n, ok := v.(float64)
			if !ok {
				return fmt.Errorf("invalid %s value %v", k, v)
			}

			s.StateVersion = int(n)

		case keyCurrentVersion:
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("invalid %s value %v", k, v)
			}

			s.CurrentVersion = str

		case keyMirrorPrefix:
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("invalid %s value %v", k, v)
			}

			s.MirrorPrefix = str

		case keySkippedVersions:
			list, ok := v.([]any)
			if !ok {
				return fmt.Errorf("invalid %s value %v", k, v)
			}

			s.SkippedVersions = []string{}

			for _, item := range list {
				str, ok := item.(string)
				if !ok {
					return fmt.Errorf("invalid %s entry %v", k, item)
				}

				s.SkippedVersions = append(s.SkippedVersions, str)
			}

		default:
			s.Display[k] = v
		}
	}

	return nil
}

// IsSkipped returns true if the version is in the skip list.
func (s *State) IsSkipped(version string) bool {
	return slices.Contains(s.SkippedVersions, version)
}

// AddSkipped adds a version to the skip list. It returns false if it was already present.
func (s *State) AddSkipped(version string) bool {
	if version == "" || s.IsSkipped(version) {
		return false
	}

	s.SkippedVersions = append(s.SkippedVersions, version)

	return true
}

// RemoveSkipped removes the provided versions from the skip list. It returns true if anything was removed.
func (s *State) RemoveSkipped(versions ...string) bool {
	before := len(s.SkippedVersions)

	s.SkippedVersions = slices.DeleteFunc(s.SkippedVersions, func(v string) bool {
		return slices.Contains(versions, v)
	})

	return len(s.SkippedVersions) != before
}

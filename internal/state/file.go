package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

var currentStateVersion = 1

// LoadOrCreate parses the on-disk state file and returns a State struct.
// If no file exists, a new one with default values is created. A file which
// can't be parsed is ignored and default values are used instead.
func LoadOrCreate(path string) (*State, error) {
	s := &State{
		path: path,
	}

	s.initialize()

	body, err := os.ReadFile(path)
	if err == nil {
		err = s.decode(body)
		if err != nil {
			slog.Warn("Ignoring unreadable settings file, using defaults", "path", path, "err", err)

			s.initialize()
		}

		return s, nil
	}

	if os.IsNotExist(err) {
		// State file doesn't exist, create it and return it.
		s.created = true

		err = s.Save()
		if err != nil {
			return nil, err
		}

		return s, nil
	}

	return nil, err
}

// decode merges a saved file over the default values, applying any needed upgrade.
func (s *State) decode(body []byte) error {
	values := map[string]any{}

	err := json.Unmarshal(body, &values)
	if err != nil {
		return err
	}

	version := 0

	raw, ok := values[keyStateVersion].(float64)
	if ok {
		version = int(raw)
	}

	if version > currentStateVersion {
		return fmt.Errorf("settings file version %d is newer than supported version %d", version, currentStateVersion)
	}

	for i, upgrade := range upgrades[version:] {
		values, err = upgrade(values)
		if err != nil {
			return fmt.Errorf("failed to upgrade settings to version %d: %w", version+i+1, err)
		}
	}

	values[keyStateVersion] = float64(currentStateVersion)

	return s.fromMap(values)
}

// Save writes out the current state into its on-disk storage.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save()
}

func (s *State) save() error {
	values := s.toMap()

	// Don't keep a custom background around when it isn't in use.
	if values[keyBgType] != "custom" {
		values[keyCustomBgData] = ""
	}

	body, err := json.MarshalIndent(values, "", "    ")
	if err != nil {
		return err
	}

	// Write to a temporary file first so a crash can't leave a truncated file behind.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.Write(body)
	if err != nil {
		_ = tmp.Close()

		return err
	}

	err = tmp.Close()
	if err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

// View runs fn with the state locked, without saving it.
func (s *State) View(fn func(s *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s)
}

// Update runs fn with the state locked and saves it if fn reports a change.
// Everything fn changes lands in a single write.
func (s *State) Update(fn func(s *State) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fn(s) {
		return nil
	}

	return s.save()
}

// Settings returns the flattened settings document, as shown to the graphical shell.
func (s *State) Settings() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.toMap()
}

// Merge updates the state with a partial settings document and saves it.
func (s *State) Merge(settings map[string]any) error {
	if settings == nil {
		return errors.New("no settings provided")
	}

	// Go through JSON so values have the same types as when loaded from disk.
	body, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	values := map[string]any{}

	err = json.Unmarshal(body, &values)
	if err != nil {
		return err
	}

	// The schema version isn't something a client gets to change.
	delete(values, keyStateVersion)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Work on a copy so a bad value doesn't leave the state half updated.
	updated := State{
		StateVersion:    s.StateVersion,
		CurrentVersion:  s.CurrentVersion,
		SkippedVersions: slices.Clone(s.SkippedVersions),
		MirrorPrefix:    s.MirrorPrefix,
		Display:         maps.Clone(s.Display),
	}

	err = updated.fromMap(values)
	if err != nil {
		return err
	}

	s.CurrentVersion = updated.CurrentVersion
	s.SkippedVersions = updated.SkippedVersions
	s.MirrorPrefix = updated.MirrorPrefix
	s.Display = updated.Display

	return s.save()
}

// Created returns true if the state file didn't exist before LoadOrCreate.
func (s *State) Created() bool {
	return s.created
}

// Path returns the location of the state file.
func (s *State) Path() string {
	return s.path
}

// initialize sets default values for a new state file.
func (s *State) initialize() {
	s.StateVersion = currentStateVersion
	s.CurrentVersion = InitialVersion
	s.SkippedVersions = []string{}
	s.MirrorPrefix = DefaultMirrorPrefix
	s.Display = maps.Clone(DisplayDefaults)
}

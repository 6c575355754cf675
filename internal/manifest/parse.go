// Package manifest parses the published history and patch manifests, and computes the
// queue of versions to offer to the user.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tcymc/tcy-updater/api"
)

// ErrManifestParse is returned (wrapped) when a document can't be parsed.
var ErrManifestParse = errors.New("unable to parse manifest")

// PatchManifestName is the name of the optional manifest at the root of a patch archive.
const PatchManifestName = "manifest.json"

// ParseHistory parses a latest.json document.
func ParseHistory(r io.Reader) (*api.History, error) {
	history := api.History{}

	err := json.NewDecoder(r).Decode(&history)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrManifestParse, err)
	}

	// Drop entries without a version, they can't be ordered.
	entries := make([]api.ManifestEntry, 0, len(history.History))
	for _, entry := range history.History {
		if strings.TrimSpace(entry.Version) == "" {
			continue
		}

		entries = append(entries, entry)
	}

	history.History = entries

	return &history, nil
}

// ParseSelfDescriptor parses an Updater-latest.json document.
func ParseSelfDescriptor(r io.Reader) (*api.SelfDescriptor, error) {
	desc := api.SelfDescriptor{}

	err := json.NewDecoder(r).Decode(&desc)
	if err != nil {
		return nil, fmt.Errorf("%w: self descriptor: %w", ErrManifestParse, err)
	}

	if desc.Version == "" {
		desc.Version = "0.0.0"
	}

	return &desc, nil
}

// ParsePatchManifest parses a patch manifest.
//
// A malformed manifest is never fatal: an empty manifest is always returned,
// along with an error wrapping ErrManifestParse that callers should log.
func ParsePatchManifest(r io.Reader) (*api.PatchManifest, error) {
	m := api.PatchManifest{}

	err := json.NewDecoder(r).Decode(&m)
	if err != nil {
		return &api.PatchManifest{}, fmt.Errorf("%w: %w", ErrManifestParse, err)
	}

	return &m, nil
}

// LoadPatchManifest reads the manifest from a file. A missing file results in an empty manifest.
func LoadPatchManifest(path string) (*api.PatchManifest, error) {
	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &api.PatchManifest{}, nil
		}

		return &api.PatchManifest{}, fmt.Errorf("%w: %w", ErrManifestParse, err)
	}

	defer f.Close()

	return ParsePatchManifest(f)
}

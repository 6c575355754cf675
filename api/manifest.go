package api

// History represents the content of the published latest.json file.
type History struct {
	History []ManifestEntry `json:"history" yaml:"history"`
}

// ManifestEntry represents a single published version in the history.
type ManifestEntry struct {
	Version      string            `json:"version"       yaml:"version"`
	Description  string            `json:"description"   yaml:"description"`
	DownloadURLs map[string]string `json:"download_urls" yaml:"download_urls"`
}

// URL returns the download URL for the given source tag, if any.
func (e *ManifestEntry) URL(source string) (string, bool) {
	url, ok := e.DownloadURLs[source]
	if !ok || url == "" {
		return "", false
	}

	return url, true
}

// SelfDescriptor represents the content of the published Updater-latest.json file.
type SelfDescriptor struct {
	Version     string `json:"version" yaml:"version"`
	Description string `json:"desc"    yaml:"desc"`
	URL         string `json:"url"     yaml:"url"`
}

// UpdateQueueItem is a version offered to (or selected by) the user.
type UpdateQueueItem struct {
	Version string        `json:"version" yaml:"version"`
	Entry   ManifestEntry `json:"entry"   yaml:"entry"`
}

// SequenceResult holds the outcome of applying a queue of versions.
type SequenceResult struct {
	Applied  []string `json:"applied"             yaml:"applied"`
	Skipped  []string `json:"skipped,omitempty"   yaml:"skipped,omitempty"`
	FailedAt string   `json:"failed_at,omitempty" yaml:"failed_at,omitempty"`

	// Error describes why FailedAt couldn't be applied.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed returns true if the sequence stopped on a version.
func (r *SequenceResult) Failed() bool {
	return r.FailedAt != ""
}

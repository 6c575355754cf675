package manifest_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/manifest"
	"github.com/tcymc/tcy-updater/internal/versions"
)

func entries(vers ...string) []api.ManifestEntry {
	ret := make([]api.ManifestEntry, 0, len(vers))
	for _, v := range vers {
		ret = append(ret, api.ManifestEntry{
			Version:      v,
			Description:  "Version " + v,
			DownloadURLs: map[string]string{"cn": "https://github.com/tcymc/pack/" + v + ".zip"},
		})
	}

	return ret
}

func TestComputeQueue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		local    string
		skipped  []string
		history  []api.ManifestEntry
		expected []string
	}{
		{
			name:     "Newer versions",
			local:    "1",
			history:  entries("1", "2", "3"),
			expected: []string{"2", "3"},
		},
		{
			name:     "Deferred older version resurfaces",
			local:    "3",
			skipped:  []string{"2"},
			history:  entries("1", "2", "3"),
			expected: []string{"2"},
		},
		{
			name:     "Unsorted history",
			local:    "26.01.01.00.00",
			history:  entries("26.03.01.00.00", "25.12.31.00.00", "26.02.06.15.24"),
			expected: []string{"26.02.06.15.24", "26.03.01.00.00"},
		},
		{
			name:     "Newer and skipped combined",
			local:    "3",
			skipped:  []string{"1", "5"},
			history:  entries("5", "4", "1", "2"),
			expected: []string{"1", "4", "5"},
		},
		{
			name:     "Duplicate entries",
			local:    "1",
			skipped:  []string{"2"},
			history:  entries("2", "2", "3"),
			expected: []string{"2", "3"},
		},
		{
			name:     "Up to date",
			local:    "3",
			history:  entries("1", "2", "3"),
			expected: []string{},
		},
		{
			name:     "Empty history",
			local:    "3",
			skipped:  []string{"2"},
			expected: []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			queue := manifest.ComputeQueue(tc.local, tc.skipped, tc.history)
			got := manifest.Versions(queue)
			require.Equal(t, tc.expected, got)

			// Strictly ascending.
			require.True(t, slices.IsSortedFunc(got, versions.Lexical.Compare))
			for i := 1; i < len(got); i++ {
				require.True(t, versions.IsNewer(got[i], got[i-1]))
			}

			// Every item is either newer or skipped.
			for _, item := range queue {
				require.True(t, versions.IsNewer(item.Version, tc.local) || slices.Contains(tc.skipped, item.Version))
				require.Equal(t, item.Version, item.Entry.Version)
			}

			// Idempotent.
			require.Equal(t, queue, manifest.ComputeQueue(tc.local, tc.skipped, tc.history))
		})
	}
}

func TestComputeQueueSemantic(t *testing.T) {
	t.Parallel()

	resolver := manifest.Resolver{Ordering: versions.Semantic}

	queue := resolver.ComputeQueue("9", nil, entries("8", "9", "10", "11"))
	require.Equal(t, []string{"10", "11"}, manifest.Versions(queue))

	// The lexical default misses "10" and "11".
	require.Empty(t, manifest.ComputeQueue("9", nil, entries("8", "9", "10", "11")))
}

func TestSelect(t *testing.T) {
	t.Parallel()

	queue := manifest.ComputeQueue("1", nil, entries("2", "3", "4"))

	selected := manifest.Select(queue, []string{"4", "2", "7"})
	require.Equal(t, []string{"2", "4"}, manifest.Versions(selected))

	require.Empty(t, manifest.Select(queue, nil))
}

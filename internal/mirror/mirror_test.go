package mirror_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tcymc/tcy-updater/internal/mirror"
)

func TestRewrite(t *testing.T) {
	t.Parallel()

	const prefix = "https://gh-proxy.org/"

	cases := []struct {
		name     string
		url      string
		prefix   string
		expected string
	}{
		{
			name:     "Gated host",
			url:      "https://github.com/tcymc/pack/releases/download/v1/update.zip",
			prefix:   prefix,
			expected: "https://gh-proxy.org/https://github.com/tcymc/pack/releases/download/v1/update.zip",
		},
		{
			name:     "www variant",
			url:      "https://www.github.com/tcymc/pack/archive.zip",
			prefix:   prefix,
			expected: "https://gh-proxy.org/https://www.github.com/tcymc/pack/archive.zip",
		},
		{
			name:     "Other host",
			url:      "https://tcymc.space/update/update.zip",
			prefix:   prefix,
			expected: "https://tcymc.space/update/update.zip",
		},
		{
			name:     "Gated host only in path",
			url:      "https://tcymc.space/github.com/update.zip",
			prefix:   prefix,
			expected: "https://tcymc.space/github.com/update.zip",
		},
		{
			name:     "Empty prefix",
			url:      "https://github.com/tcymc/pack/update.zip",
			prefix:   "",
			expected: "https://github.com/tcymc/pack/update.zip",
		},
		{
			name:     "Already prefixed",
			url:      "https://gh-proxy.org/https://github.com/tcymc/pack/update.zip",
			prefix:   prefix,
			expected: "https://gh-proxy.org/https://github.com/tcymc/pack/update.zip",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := mirror.Rewrite(tc.url, tc.prefix, mirror.DefaultGatedHost)
			require.Equal(t, tc.expected, got)

			// Applying the rule twice must not change the result.
			require.Equal(t, got, mirror.Rewrite(got, tc.prefix, mirror.DefaultGatedHost))
		})
	}
}

func TestForSource(t *testing.T) {
	t.Parallel()

	url := "https://github.com/tcymc/pack/update.zip"

	require.Equal(t, "https://gh-proxy.org/"+url, mirror.ForSource(url, "cn", mirror.DefaultPrefix, ""))
	require.Equal(t, url, mirror.ForSource(url, "global", mirror.DefaultPrefix, ""))
}

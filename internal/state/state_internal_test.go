package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Make sure that we have correctly bumped the schema version.
func TestSchemaVersion(t *testing.T) {
	t.Parallel()

	require.Equal(t, len(upgrades), currentStateVersion)
}

func TestUpgradeSkippedVersions(t *testing.T) {
	t.Parallel()

	values, err := upgrades[0](map[string]any{
		"skipped_versions": []any{"2", " 1 ", "", 3.0, nil, "2"},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"1", "2", "3"}, values["skipped_versions"])

	values, err = upgrades[0](map[string]any{})
	require.NoError(t, err)
	require.Equal(t, []any{}, values["skipped_versions"])

	_, err = upgrades[0](map[string]any{"skipped_versions": "2"})
	require.Error(t, err)
}

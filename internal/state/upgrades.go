package state

import (
	"fmt"
	"slices"
	"strings"
)

// UpgradeFuncs is a list of functions to apply in order to upgrade the version of a given state.
// Each function consumes the raw settings document and returns the upgraded one.
type UpgradeFuncs []func(map[string]any) (map[string]any, error)

// upgrades is a list of upgrade functions to process old states.
var upgrades = UpgradeFuncs{
	// V1: Files written by the first launcher may contain duplicated, empty or numeric skipped versions.
	func(values map[string]any) (map[string]any, error) {
		raw, ok := values[keySkippedVersions]
		if !ok || raw == nil {
			values[keySkippedVersions] = []any{}

			return values, nil
		}

		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected %s value %v", keySkippedVersions, raw)
		}

		skipped := []string{}

		for _, item := range list {
			var v string

			switch val := item.(type) {
			case string:
				v = strings.TrimSpace(val)
			case float64:
				v = fmt.Sprint(val)
			default:
				continue
			}

			if v == "" || slices.Contains(skipped, v) {
				continue
			}

			skipped = append(skipped, v)
		}

		slices.Sort(skipped)

		upgraded := make([]any, 0, len(skipped))
		for _, v := range skipped {
			upgraded = append(upgraded, v)
		}

		values[keySkippedVersions] = upgraded

		return values, nil
	},
}

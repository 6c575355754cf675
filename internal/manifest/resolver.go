package manifest

import (
	"slices"

	"github.com/tcymc/tcy-updater/api"
	"github.com/tcymc/tcy-updater/internal/versions"
)

// Resolver computes the list of versions to offer for a given local state.
type Resolver struct {
	Ordering versions.Ordering
}

// ComputeQueue returns every history entry which is either newer than the local version or
// was previously skipped, sorted in ascending version order. The first occurrence of a
// version wins if the history lists it more than once.
func (r Resolver) ComputeQueue(local string, skipped []string, history []api.ManifestEntry) []api.UpdateQueueItem {
	ordering := r.Ordering
	if ordering == "" {
		ordering = versions.Lexical
	}

	queue := []api.UpdateQueueItem{}
	seen := map[string]struct{}{}

	for _, entry := range history {
		_, ok := seen[entry.Version]
		if ok {
			continue
		}

		if !ordering.IsNewer(entry.Version, local) && !slices.Contains(skipped, entry.Version) {
			continue
		}

		seen[entry.Version] = struct{}{}
		queue = append(queue, api.UpdateQueueItem{Version: entry.Version, Entry: entry})
	}

	slices.SortStableFunc(queue, func(a api.UpdateQueueItem, b api.UpdateQueueItem) int {
		return ordering.Compare(a.Version, b.Version)
	})

	return queue
}

// ComputeQueue is a shortcut for a Resolver using lexical ordering.
func ComputeQueue(local string, skipped []string, history []api.ManifestEntry) []api.UpdateQueueItem {
	return Resolver{Ordering: versions.Lexical}.ComputeQueue(local, skipped, history)
}

// Versions returns the versions of a queue, in queue order.
func Versions(queue []api.UpdateQueueItem) []string {
	ret := make([]string, 0, len(queue))
	for _, item := range queue {
		ret = append(ret, item.Version)
	}

	return ret
}

// Select returns the queue items matching the provided versions, preserving queue order.
func Select(queue []api.UpdateQueueItem, selected []string) []api.UpdateQueueItem {
	ret := []api.UpdateQueueItem{}

	for _, item := range queue {
		if slices.Contains(selected, item.Version) {
			ret = append(ret, item)
		}
	}

	return ret
}

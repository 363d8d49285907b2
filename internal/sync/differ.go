// Package sync computes which commits on the primary branch have not
// propagated to the secondary branch and drives the reconciliation cycle
// that turns each unsynced commit into a tracking issue.
package sync

import "github.com/alan/pr-tracker/internal/model"

// Diff returns the commits of primary whose hash is absent from secondary,
// preserving primary's order. Duplicate hashes within primary are collapsed
// to their first occurrence. Pure and deterministic; O(|primary| + |secondary|).
func Diff(primary, secondary []model.Commit) []model.Commit {
	synced := make(map[string]bool, len(secondary))
	for _, c := range secondary {
		synced[c.Hash] = true
	}

	var unsynced []model.Commit
	seen := make(map[string]bool, len(primary))
	for _, c := range primary {
		if synced[c.Hash] || seen[c.Hash] {
			continue
		}
		seen[c.Hash] = true
		unsynced = append(unsynced, c)
	}
	return unsynced
}

// Package resolver implements the Dependency Resolver (§4.D): a BFS closure
// over required dependencies, loader/version compatibility filtering, and
// bidirectional incompatibility detection.
package resolver

import (
	"context"
	"sort"

	"github.com/modforge/assembly/pkg/models"
)

// ModLookup fetches mods by project/source id, matching the Mod Store's
// batch lookup contract (§4.B, N+1 forbidden).
type ModLookup interface {
	GetModsByProjectIDs(ctx context.Context, projectIDs []string) (map[string]models.Mod, error)
}

// Conflict is one bidirectional incompatibility found in a resolved set.
type Conflict struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Reason string `json:"reason"`
}

// Unresolved is a required dependency that could not be added to the set.
type Unresolved struct {
	SourceID      string `json:"source_id"`
	MissingReason string `json:"missing_reason"`
}

// Result is the Dependency Resolver's output (§4.D).
type Result struct {
	AddedDependencies []models.Mod `json:"added_dependencies"`
	Conflicts         []Conflict   `json:"conflicts"`
	Unresolved        []Unresolved `json:"unresolved"`
}

// Resolve computes the required-dependency closure of selected, restricted
// to mods usable under loader and mcVersion, then reports bidirectional
// incompatibilities across the full resulting set (selected ∪ added).
//
// Resolve is idempotent: calling it again with selected∪added as input
// yields no further additions (§8 round-trip law), since BFS only follows
// edges not already present in the visited set.
func Resolve(ctx context.Context, store ModLookup, selected []models.Mod, loader, mcVersion string) (Result, error) {
	visited := make(map[string]models.Mod, len(selected))
	for _, m := range selected {
		visited[m.SourceID] = m
	}

	queue := make([]models.Mod, len(selected))
	copy(queue, selected)

	var added []models.Mod
	var unresolved []Unresolved

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var toFetch []string
		for _, dep := range current.Dependencies {
			if dep.DependencyType != models.DependencyRequired {
				continue
			}
			if _, ok := visited[dep.ProjectID]; ok {
				continue
			}
			toFetch = append(toFetch, dep.ProjectID)
		}
		if len(toFetch) == 0 {
			continue
		}

		fetched, err := store.GetModsByProjectIDs(ctx, toFetch)
		if err != nil {
			return Result{}, err
		}

		for _, dep := range current.Dependencies {
			if dep.DependencyType != models.DependencyRequired {
				continue
			}
			if _, ok := visited[dep.ProjectID]; ok {
				continue
			}
			mod, ok := fetched[dep.ProjectID]
			if !ok {
				unresolved = append(unresolved, Unresolved{
					SourceID:      dep.ProjectID,
					MissingReason: "dependency not found in mod store",
				})
				// Mark visited so repeated BFS passes don't re-report it.
				visited[dep.ProjectID] = models.Mod{SourceID: dep.ProjectID}
				continue
			}
			if !mod.UsableUnder(loader) {
				unresolved = append(unresolved, Unresolved{
					SourceID:      dep.ProjectID,
					MissingReason: "dependency not available for loader " + loader,
				})
				visited[dep.ProjectID] = mod
				continue
			}
			if !modSupportsVersion(mod, mcVersion, dep.VersionRange) {
				unresolved = append(unresolved, Unresolved{
					SourceID:      dep.ProjectID,
					MissingReason: "dependency has no build for game version " + mcVersion,
				})
				visited[dep.ProjectID] = mod
				continue
			}

			visited[dep.ProjectID] = mod
			added = append(added, mod)
			queue = append(queue, mod)
		}
	}

	conflicts := detectConflicts(visited, loader)

	return Result{
		AddedDependencies: added,
		Conflicts:         conflicts,
		Unresolved:        unresolved,
	}, nil
}

// modSupportsVersion accepts an exact game-version match; a non-empty
// versionRange is treated as an additional declared-range hint that a real
// mod registry would parse (semver ranges), which this system does not
// implement directly (§1 out of scope: enforcing game-loader semantics).
func modSupportsVersion(mod models.Mod, mcVersion, versionRange string) bool {
	if mod.SupportsVersion(mcVersion) {
		return true
	}
	return versionRange != ""
}

// detectConflicts reports every bidirectional incompatibility pair within
// the resolved set exactly once (a<b lexicographically), per §4.D step 3.
func detectConflicts(set map[string]models.Mod, loader string) []Conflict {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var conflicts []Conflict
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := set[ids[i]], set[ids[j]]
			if models.IncompatibleWith(a, b, loader) {
				first, second := a.SourceID, b.SourceID
				if second < first {
					first, second = second, first
				}
				conflicts = append(conflicts, Conflict{
					A:      first,
					B:      second,
					Reason: "declared incompatible on loader " + loader,
				})
			}
		}
	}
	return conflicts
}

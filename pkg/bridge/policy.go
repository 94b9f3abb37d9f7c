// Package bridge implements the Loader-Bridge Policy (§4.J): declarative
// rules for cross-loader compatibility, applied after dependency closure.
// The selection table is data (config.BridgeDefaults), not code.
package bridge

import (
	"strings"

	"github.com/modforge/assembly/pkg/models"
)

// Rules is the data-driven policy table (mirrors config.BridgeDefaults so
// this package has no import dependency on pkg/config).
type Rules struct {
	// ForbiddenOnForgeLike lists mod slugs that must never appear on a
	// forge/neoforge target (e.g. "fabric-api"); isForbidden compares them
	// case-insensitively against the mod's slug only, not its capabilities.
	ForbiddenOnForgeLike []string
	// BridgeSet is the set of bridge mod slugs appended when a Forge-family
	// mod is present in a Fabric-compat pack.
	BridgeSet []string
	// LoaderEquivalents maps a slug to its per-loader equivalent, e.g.
	// {"sodium": {"forge": "embeddium", "neoforge": "embeddium"}}.
	LoaderEquivalents map[string]map[string]string
}

// Outcome is the bridge policy's effect on a selected set.
type Outcome struct {
	// Removed holds slugs stripped because they are forbidden on the
	// target loader (e.g. Fabric API on Forge/NeoForge, §8 invariant).
	Removed []string
	// BridgeAdded holds bridge-mod slugs appended because fabric_compat_mode
	// bridges a Forge-family mod into a Fabric pack.
	BridgeAdded []string
	// Substituted maps an original slug to its loader-equivalent replacement.
	Substituted map[string]string
}

// forgeFamily reports whether loader is forge or neoforge.
func forgeFamily(loader string) bool {
	return loader == string(models.LoaderForge) || loader == string(models.LoaderNeoForge)
}

// Apply enforces the bridge policy over mods selected for the given target
// loader. It never adds or removes dependencies itself — additions flow
// back through the Dependency Resolver (§4.D) by the caller.
func Apply(mods []models.Mod, loader string, fabricCompatMode bool, rules Rules) ([]models.Mod, Outcome) {
	var outcome Outcome
	outcome.Substituted = make(map[string]string)

	filtered := make([]models.Mod, 0, len(mods))
	hasForgeFamilyMod := false

	for _, m := range mods {
		if !m.UsableUnder(loader) {
			if equiv, ok := loaderEquivalent(m.Slug, loader, rules); ok && equiv != strings.ToLower(m.Slug) {
				outcome.Substituted[m.Slug] = equiv
				filtered = append(filtered, equivalentMod(m, equiv, loader))
				continue
			}
		}
		if forgeFamily(loader) && isForbidden(m, rules.ForbiddenOnForgeLike) {
			outcome.Removed = append(outcome.Removed, m.Slug)
			continue
		}
		if loader == string(models.LoaderFabric) {
			if isForgeFamilyOnly(m) && !fabricCompatMode {
				// §8 invariant: if fabric_compat_mode=false, no Forge/NeoForge
				// exclusive mod appears in a Fabric pack.
				outcome.Removed = append(outcome.Removed, m.Slug)
				continue
			}
			if isForgeFamilyOnly(m) && fabricCompatMode {
				hasForgeFamilyMod = true
			}
		}
		filtered = append(filtered, m)
	}

	if loader == string(models.LoaderFabric) && fabricCompatMode && hasForgeFamilyMod {
		present := make(map[string]bool, len(filtered))
		for _, m := range filtered {
			present[strings.ToLower(m.Slug)] = true
		}
		for _, bridgeSlug := range rules.BridgeSet {
			if !present[strings.ToLower(bridgeSlug)] {
				outcome.BridgeAdded = append(outcome.BridgeAdded, bridgeSlug)
			}
		}
	}

	return filtered, outcome
}

func isForbidden(m models.Mod, forbidden []string) bool {
	slug := strings.ToLower(m.Slug)
	for _, f := range forbidden {
		if slug == strings.ToLower(f) {
			return true
		}
	}
	return false
}

// isForgeFamilyOnly reports whether m declares only forge/neoforge support
// (no fabric, no universal) — i.e. it is Forge-exclusive.
func isForgeFamilyOnly(m models.Mod) bool {
	hasForge := false
	for _, l := range m.Loaders {
		if l == string(models.LoaderFabric) || l == string(models.LoaderUniversal) {
			return false
		}
		if l == string(models.LoaderForge) || l == string(models.LoaderNeoForge) {
			hasForge = true
		}
	}
	return hasForge
}

func loaderEquivalent(slug, targetLoader string, rules Rules) (string, bool) {
	perLoader, ok := rules.LoaderEquivalents[strings.ToLower(slug)]
	if !ok {
		return "", false
	}
	equiv, ok := perLoader[targetLoader]
	return equiv, ok
}

// equivalentMod builds the target-specific replacement for m (e.g. Sodium
// swapped for its Embeddium equivalent when targeting Forge), §4.J "known
// loader equivalents". The replacement carries the original's metadata
// (description, tags, capabilities, downloads, dependencies) under the
// equivalent slug, since it occupies the same role in the board, and is
// scoped to the one loader it was substituted for.
func equivalentMod(m models.Mod, equivSlug, loader string) models.Mod {
	out := m
	out.SourceID = equivSlug
	out.Slug = equivSlug
	out.Loaders = []string{loader}
	return out
}

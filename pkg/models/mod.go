// Package models defines the shared domain types that flow between the
// assembly and crash-analysis pipelines, the Mod Store, and the HTTP API.
package models

// DependencyType classifies an edge in Mod.Dependencies.
type DependencyType string

const (
	DependencyRequired     DependencyType = "required"
	DependencyOptional     DependencyType = "optional"
	DependencyEmbedded     DependencyType = "embedded"
	DependencyIncompatible DependencyType = "incompatible"
)

// Loader is a mod-execution runtime. "universal" mods run under any loader.
type Loader string

const (
	LoaderFabric    Loader = "fabric"
	LoaderForge     Loader = "forge"
	LoaderNeoForge  Loader = "neoforge"
	LoaderQuilt     Loader = "quilt"
	LoaderUniversal Loader = "universal"
)

// Dependency is one entry of Mod.Dependencies.
type Dependency struct {
	ProjectID      string         `json:"project_id"`
	DependencyType DependencyType `json:"dependency_type"`
	VersionRange   string         `json:"version_range,omitempty"`
}

// Mod is a single addressable mod in the registry mirror held by the Mod Store.
//
// Invariants: every entry of Capabilities matches capabilityPattern;
// Embedding, when non-empty, is L2-unit; a mod is usable under loader L
// iff L is in Loaders or Loaders contains "universal".
type Mod struct {
	SourceID   string `json:"source_id"`
	Slug       string `json:"slug"`

	Name        string `json:"name"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url,omitempty"`

	Loaders      []string `json:"loaders"`
	GameVersions []string `json:"game_versions"`

	Capabilities      []string `json:"capabilities"`
	ModrinthCategories []string `json:"modrinth_categories,omitempty"`
	Tags              []string `json:"tags,omitempty"`

	Dependencies      []Dependency          `json:"dependencies,omitempty"`
	Incompatibilities map[string][]string   `json:"incompatibilities,omitempty"` // loader -> source_ids

	Downloads int64 `json:"downloads"`
	Followers int64 `json:"followers"`

	Embedding []float32 `json:"-"`
}

// UsableUnder reports whether the mod can be placed on the given loader.
func (m Mod) UsableUnder(loader string) bool {
	for _, l := range m.Loaders {
		if l == loader || l == string(LoaderUniversal) {
			return true
		}
	}
	return false
}

// SupportsVersion reports whether the mod declares compatibility with mcVersion.
func (m Mod) SupportsVersion(mcVersion string) bool {
	for _, v := range m.GameVersions {
		if v == mcVersion {
			return true
		}
	}
	return false
}

// HasCapability reports whether the mod declares the exact capability tag.
func (m Mod) HasCapability(cap string) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// HasAnyCapability reports whether the mod declares any of the given tags.
func (m Mod) HasAnyCapability(caps []string) bool {
	for _, c := range caps {
		if m.HasCapability(c) {
			return true
		}
	}
	return false
}

// IncompatibleWith reports whether a and b are mutually declared incompatible
// on the given loader, checked bidirectionally per §4.D step 3.
func IncompatibleWith(a, b Mod, loader string) bool {
	for _, id := range a.Incompatibilities[loader] {
		if id == b.SourceID {
			return true
		}
	}
	for _, id := range b.Incompatibilities[loader] {
		if id == a.SourceID {
			return true
		}
	}
	return false
}

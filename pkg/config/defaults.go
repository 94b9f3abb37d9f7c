package config

import "time"

// Defaults holds system-wide defaults applied when a request or component
// doesn't specify its own values, mirroring the teacher's
// pkg/config/defaults.go structure.
type Defaults struct {
	LLMProvider string `yaml:"llm_provider,omitempty"`

	// MinDownloadThreshold is the Hybrid Retrieval post-filter floor (§4.C).
	MinDownloadThreshold int64 `yaml:"min_download_threshold,omitempty"`

	// RRFConstant is the k in score = w * 1/(k + rank) (§4.C); spec fixes it at 60.
	RRFConstant int `yaml:"rrf_constant,omitempty"`

	// DedupTTL is how long an identical normalized crash log is cached per
	// user before the Crash Pipeline re-runs analysis (§4.L.1).
	DedupTTL time.Duration `yaml:"dedup_ttl,omitempty"`

	// RequestBudgetAssembly / RequestBudgetCrash bound a whole pipeline run (§5).
	RequestBudgetAssembly time.Duration `yaml:"request_budget_assembly,omitempty"`
	RequestBudgetCrash    time.Duration `yaml:"request_budget_crash,omitempty"`

	// FanoutLimit bounds concurrent sub-tasks within one request (§5, default 8).
	FanoutLimit int `yaml:"fanout_limit,omitempty"`

	// ExternalServiceLimit bounds concurrent calls to one external service
	// across the whole server (§5, default 64).
	ExternalServiceLimit int `yaml:"external_service_limit,omitempty"`

	// UseV3ArchitectureDefault seeds the USE_V3_DEFAULT env toggle for
	// requests that omit use_v3_architecture explicitly.
	UseV3ArchitectureDefault bool `yaml:"use_v3_architecture_default,omitempty"`

	Bridge      BridgeDefaults      `yaml:"bridge,omitempty"`
	Categorizer CategorizerDefaults `yaml:"categorizer,omitempty"`
}

// BridgeDefaults is the data-not-code loader-equivalence and bridge table
// consumed by pkg/bridge (§4.J).
type BridgeDefaults struct {
	ForbiddenOnForgeLike []string                      `yaml:"forbidden_on_forge_like,omitempty"`
	BridgeSet            []string                      `yaml:"bridge_set,omitempty"`
	LoaderEquivalents    map[string]map[string]string  `yaml:"loader_equivalents,omitempty"` // slug -> loader -> equivalent slug
}

// CategorizerDefaults carries the fixed category set used by the simple-flow
// Categorizer (§4.I).
type CategorizerDefaults struct {
	Categories []string `yaml:"categories,omitempty"`
}

// DefaultDefaults returns the built-in system defaults applied when
// modforge.yaml omits a `defaults:` block entirely.
func DefaultDefaults() *Defaults {
	return &Defaults{
		MinDownloadThreshold:  5000,
		RRFConstant:           60,
		DedupTTL:              time.Hour,
		RequestBudgetAssembly: 180 * time.Second,
		RequestBudgetCrash:    120 * time.Second,
		FanoutLimit:           8,
		ExternalServiceLimit:  64,
		Bridge: BridgeDefaults{
			ForbiddenOnForgeLike: []string{"fabric-api"},
			BridgeSet:            []string{"connector", "forgified-fabric-api"},
			LoaderEquivalents: map[string]map[string]string{
				"sodium":    {"forge": "embeddium", "neoforge": "embeddium"},
				"lithium":   {"forge": "canary", "neoforge": "canary"},
				"iris":      {"forge": "oculus", "neoforge": "oculus"},
				"embeddium": {"fabric": "sodium", "quilt": "sodium"},
				"canary":    {"fabric": "lithium", "quilt": "lithium"},
				"oculus":    {"fabric": "iris", "quilt": "iris"},
			},
		},
		Categorizer: CategorizerDefaults{
			Categories: []string{
				"Performance", "Graphics", "Utility", "World",
				"Gameplay", "Content", "Libraries", "Other",
			},
		},
	}
}

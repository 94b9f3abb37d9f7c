package models

// RequestType classifies an assembly request, decided by the Query Planner.
type RequestType string

const (
	RequestSimpleAdd   RequestType = "simple_add"
	RequestPerformance RequestType = "performance"
	RequestThemedPack  RequestType = "themed_pack"
)

// QueryKind is the retrieval mode for one SearchQuery.
type QueryKind string

const (
	QueryKeyword  QueryKind = "keyword"
	QuerySemantic QueryKind = "semantic"
)

// SearchQuery is a single weighted retrieval query emitted by the Query Planner.
type SearchQuery struct {
	Kind   QueryKind `json:"kind"`
	Text   string    `json:"text"`
	Weight float64   `json:"weight"`
}

// SearchPlan is the Query Planner's output (§3, §4.F).
type SearchPlan struct {
	RequestType          RequestType   `json:"request_type"`
	UseArchitecturePlanner bool        `json:"use_architecture_planner"`
	SearchQueries        []SearchQuery `json:"search_queries"`
	CapabilitiesFocus     []string     `json:"capabilities_focus"`
	BaselineMods          []string     `json:"baseline_mods"`
}

// PlannedCategory is one category in a PlannedArchitecture.
type PlannedCategory struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	RequiredCapabilities  []string `json:"required_capabilities"`
	PreferredCapabilities []string `json:"preferred_capabilities"`
	TargetMods            int      `json:"target_mods"`
}

// PlannedArchitecture is the Architecture Planner's "plan" call output (§4.G.1).
type PlannedArchitecture struct {
	Categories        []PlannedCategory `json:"categories"`
	PackArchetype     string            `json:"pack_archetype"`
	EstimatedTotalMods int              `json:"estimated_total_mods"`
}

// SelectionRole classifies why a mod was selected.
type SelectionRole string

const (
	RolePrimary    SelectionRole = "primary"
	RoleLibrary    SelectionRole = "library"
	RoleDependency SelectionRole = "dependency"
	RoleBridge     SelectionRole = "bridge"
)

// SelectedMod is one Final Selector output entry (§3, §4.H).
type SelectedMod struct {
	SourceID      string        `json:"source_id"`
	CategoryIndex *int          `json:"category_index,omitempty"`
	Reason        string        `json:"reason"`
	Role          SelectionRole `json:"role"`
}

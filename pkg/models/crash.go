package models

import "time"

// ErrorKind classifies the root cause an Analyzer attributes a crash to (§4.L.4).
type ErrorKind string

const (
	ErrorModConflict      ErrorKind = "mod_conflict"
	ErrorMissingDependency ErrorKind = "missing_dependency"
	ErrorOutdatedMod      ErrorKind = "outdated_mod"
	ErrorMixinError       ErrorKind = "mixin_error"
	ErrorClassNotFound    ErrorKind = "class_not_found"
	ErrorFabricOnForge    ErrorKind = "fabric_on_forge"
	ErrorMemory           ErrorKind = "memory"
	ErrorUnknown          ErrorKind = "unknown"
)

// Priority orders operations and warnings by urgency.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// OperationKind is the action an Operation performs on a BoardState.
type OperationKind string

const (
	OpRemoveMod       OperationKind = "remove_mod"
	OpDisableMod      OperationKind = "disable_mod"
	OpUpdateMod       OperationKind = "update_mod"
	OpAddMod          OperationKind = "add_mod"
	OpClearLoaderCache OperationKind = "clear_loader_cache"
)

// Operation is a single repair action produced by the Fix Planner (§3, §4.L.5).
type Operation struct {
	Kind     OperationKind `json:"kind"`
	Target   string        `json:"target,omitempty"`   // BoardMod.unique_id or source_id
	ToVersion string       `json:"to_version,omitempty"`
	SourceID string        `json:"source_id,omitempty"` // for add_mod
	Version  string        `json:"version,omitempty"`   // for add_mod
	Reason   string        `json:"reason"`
	Priority Priority      `json:"priority"`
}

// ProblematicMod is one entry of an Analyzer diagnosis.
type ProblematicMod struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// SuggestedFix is a raw, unvalidated fix emitted by the Analyzer, before
// the Fix Planner checks it against the external mod registry.
type SuggestedFix struct {
	Action     OperationKind `json:"action"`
	TargetMod  string        `json:"target_mod"`
	Reason     string        `json:"reason"`
	Priority   Priority      `json:"priority"`
}

// Diagnosis is the Analyzer's full LLM output (§4.L.4).
type Diagnosis struct {
	RootCause       string           `json:"root_cause"`
	ErrorKind       ErrorKind        `json:"error_kind"`
	ProblematicMods []ProblematicMod `json:"problematic_mods"`
	Confidence      float64          `json:"confidence"`
	SuggestedFixes  []SuggestedFix   `json:"suggested_fixes"`
}

// SanitizedCrash is the Sanitizer's structured extraction (§4.L.2).
type SanitizedCrash struct {
	MCVersion      string   `json:"mc_version"`
	ModLoader      string   `json:"mod_loader"`
	ErrorKind      ErrorKind `json:"error_kind"`
	StackTrace     string   `json:"stack_trace"`
	ModListInLog   []string `json:"mod_list_in_log"`
	NormalizedText string   `json:"-"` // used for dedup MD5, not serialized
}

// CrashSession is the append-only record a crash-analysis request produces (§3).
type CrashSession struct {
	ID                 string      `json:"id"`
	UserID             string      `json:"user_id"`
	CrashLogSanitized  string      `json:"crash_log_sanitized"`
	BoardStateSnapshot BoardState  `json:"board_state_snapshot"`
	RootCause          string      `json:"root_cause"`
	ErrorKind          ErrorKind   `json:"error_kind"`
	Confidence         float64     `json:"confidence"`
	Suggestions        []Operation `json:"suggestions"`
	Warnings           []string    `json:"warnings,omitempty"`
	PatchedBoardState  BoardState  `json:"patched_board_state"`
	TokenUsage         int         `json:"token_usage"`
	CreatedAt          time.Time   `json:"created_at"`
}

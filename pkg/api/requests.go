package api

import "github.com/modforge/assembly/pkg/models"

// BuildBoardRequest is the HTTP request body for POST /api/ai/build-board (§6).
type BuildBoardRequest struct {
	Prompt            string   `json:"prompt"`
	MCVersion         string   `json:"mc_version"`
	ModLoader         string   `json:"mod_loader"`
	MaxMods           int      `json:"max_mods"`
	CurrentMods       []string `json:"current_mods,omitempty"`
	ProjectID         string   `json:"project_id,omitempty"`
	FabricCompatMode  bool     `json:"fabric_compat_mode,omitempty"`
	UseV3Architecture bool     `json:"use_v3_architecture,omitempty"`
}

// CrashAnalyzeRequest is the HTTP request body for POST
// /api/ai/crash-doctor/analyze (§6).
type CrashAnalyzeRequest struct {
	CrashLog   string            `json:"crash_log"`
	BoardState models.BoardState `json:"board_state"`
	GameLog    string            `json:"game_log,omitempty"`
	MCVersion  string            `json:"mc_version"`
	ModLoader  string            `json:"mod_loader"`
}

// AutoSortModRequest is one entry of POST /api/ai/auto-sort's `mods` array (§6).
type AutoSortModRequest struct {
	Name        string `json:"name"`
	SourceID    string `json:"source_id"`
	Description string `json:"description,omitempty"`
}

// AutoSortRequestBody is the HTTP request body for POST /api/ai/auto-sort (§6).
type AutoSortRequestBody struct {
	Mods          []AutoSortModRequest `json:"mods"`
	MaxCategories int                  `json:"max_categories,omitempty"`
	Creativity    float64              `json:"creativity,omitempty"`
}

// ModTagsRequest is the HTTP request body for POST /api/get-mod-tags (§6).
type ModTagsRequest struct {
	SourceID string `json:"source_id"`
}

// FeedbackRequest is the HTTP request body for POST /api/feedback (§6).
type FeedbackRequest struct {
	BuildID  string `json:"build_id"`
	Accepted bool   `json:"accepted"`
	Comment  string `json:"comment,omitempty"`
}

// LegacySearchRequestBody is the HTTP request body for the unauthenticated
// POST /api/legacy/search (§12).
type LegacySearchRequestBody struct {
	Query     string `json:"query"`
	ModLoader string `json:"mod_loader"`
	MCVersion string `json:"mc_version"`
	MaxMods   int    `json:"max_mods,omitempty"`
}

// CategorizationFeedbackRequest is the HTTP request body for POST
// /api/feedback/categorization (§6).
type CategorizationFeedbackRequest struct {
	BuildID       string            `json:"build_id"`
	ModToCategory map[string]string `json:"mod_to_category"`
	Accepted      bool              `json:"accepted"`
	Comment       string            `json:"comment,omitempty"`
}

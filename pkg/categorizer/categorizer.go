// Package categorizer implements the simple-flow Categorizer (§4.I): a
// single LLM call that maps each selected mod into one of a fixed set of
// board categories, with a deterministic capability/tag heuristic as both
// the LLM's grounding context and the fallback for any mod the model omits.
package categorizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
)

// Category is one of the fixed simple-flow board categories (§4.I).
type Category string

const (
	CategoryPerformance Category = "Performance"
	CategoryGraphics    Category = "Graphics"
	CategoryUtility     Category = "Utility"
	CategoryWorld       Category = "World"
	CategoryGameplay    Category = "Gameplay"
	CategoryContent     Category = "Content"
	CategoryLibraries   Category = "Libraries"
	CategoryOther       Category = "Other"
)

// Categories lists the fixed set in board-presentation order.
var Categories = []Category{
	CategoryPerformance, CategoryGraphics, CategoryUtility, CategoryWorld,
	CategoryGameplay, CategoryContent, CategoryLibraries, CategoryOther,
}

// Categorizer runs the single LLM categorization call.
type Categorizer struct {
	gateway *llmgw.Gateway
}

// New builds a Categorizer over an LLM Gateway.
func New(gateway *llmgw.Gateway) *Categorizer {
	return &Categorizer{gateway: gateway}
}

type categorizeResponse struct {
	Assignments map[string]string `json:"assignments"` // source_id -> category name
}

// Categorize maps every mod in mods (in the given, stable order) to a fixed
// category. The LLM call is seeded with a heuristic guess per mod so its
// output is deterministic given the same input ordering (§4.I); any mod the
// model's response omits or mis-names falls back to the heuristic.
func (c *Categorizer) Categorize(ctx context.Context, mods []models.Mod) (map[string]Category, llmgw.TokenUsage, float64, error) {
	heuristics := make(map[string]Category, len(mods))
	for _, m := range mods {
		heuristics[m.SourceID] = heuristicCategory(m)
	}

	var resp categorizeResponse
	usage, cost, err := c.gateway.Call(ctx, categorizeSystemPrompt, categorizeUserPrompt(mods, heuristics), &resp, 0.0, 1024)
	if err != nil {
		return nil, usage, cost, fmt.Errorf("categorizer: llm categorize: %w", err)
	}

	out := make(map[string]Category, len(mods))
	for _, m := range mods {
		cat, ok := parseCategory(resp.Assignments[m.SourceID])
		if !ok {
			cat = heuristics[m.SourceID]
		}
		out[m.SourceID] = cat
	}
	return out, usage, cost, nil
}

func parseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// heuristicCategory classifies by capability/tag prefix (§4.I), checked in
// a fixed priority order (Performance, Graphics, Libraries, Utility, World,
// Content, Gameplay; this is not the Categories presentation order) so a
// mod matching multiple signals lands in the earlier (higher-priority) one.
func heuristicCategory(m models.Mod) Category {
	switch {
	case hasAny(m.Capabilities, "performance", "performance."):
		return CategoryPerformance
	case hasAny(m.Capabilities, "graphics", "graphics."):
		return CategoryGraphics
	case hasAny(m.Capabilities, "dependency.library", "api.exposed"):
		return CategoryLibraries
	case hasAny(m.Capabilities, "utility", "utility."):
		return CategoryUtility
	case hasAny(m.Capabilities, "world", "world.", "worldgen", "worldgen."):
		return CategoryWorld
	case hasAny(m.Capabilities, "content", "content."):
		return CategoryContent
	case hasAny(m.Capabilities, "gameplay", "gameplay."):
		return CategoryGameplay
	default:
		return CategoryOther
	}
}

// Heuristic categorizes mods by capability/tag prefix alone, with no LLM
// call (used by the legacy lexical-only search path, §12, which must never
// trigger a paid call).
func Heuristic(mods []models.Mod) map[string]Category {
	out := make(map[string]Category, len(mods))
	for _, m := range mods {
		out[m.SourceID] = heuristicCategory(m)
	}
	return out
}

func hasAny(caps []string, exact, prefix string) bool {
	for _, c := range caps {
		if c == exact || strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

const categorizeSystemPrompt = `You are the Categorizer for a Minecraft modpack assembly engine (simple flow,
no architecture plan). Assign each mod to exactly one of these fixed categories: Performance,
Graphics, Utility, World, Gameplay, Content, Libraries, Other. Emit strict JSON with field
assignments: an object mapping source_id to category name. A heuristic guess is provided for each
mod; prefer it unless the mod's description clearly indicates otherwise.`

func categorizeUserPrompt(mods []models.Mod, heuristics map[string]Category) string {
	ids := make([]string, 0, len(mods))
	byID := make(map[string]models.Mod, len(mods))
	for _, m := range mods {
		ids = append(ids, m.SourceID)
		byID[m.SourceID] = m
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, id := range ids {
		m := byID[id]
		fmt.Fprintf(&sb, "- %s (%s): capabilities=%v heuristic=%s\n", m.SourceID, m.Name, m.Capabilities, heuristics[id])
	}
	return sb.String()
}

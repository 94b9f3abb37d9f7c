// Package planner implements the Query Planner (§4.F) and Architecture
// Planner (§4.G) — the two LLM-backed stages that turn a raw request into a
// SearchPlan and, for themed packs, a category architecture.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
)

// Request is one assembly request's planning inputs.
type Request struct {
	RawPrompt   string
	MCVersion   string
	ModLoader   string
	CurrentMods []string // slugs or source ids already on the board
	MaxMods     int
}

// minSearchQueries/maxSearchQueries bound the plan's query mix (§4.F "3-6").
const (
	minSearchQueries = 3
	maxSearchQueries = 6
)

// themedPackMinMaxMods is the max_mods threshold that, combined with topical
// content in the prompt, classifies a request as themed_pack (§4.F).
const themedPackMinMaxMods = 20

// QueryPlanner issues the single LLM call that produces a SearchPlan.
type QueryPlanner struct {
	gateway *llmgw.Gateway
}

// NewQueryPlanner builds a QueryPlanner over an LLM Gateway.
func NewQueryPlanner(gateway *llmgw.Gateway) *QueryPlanner {
	return &QueryPlanner{gateway: gateway}
}

// Plan issues the Query Planner's single LLM call and validates its output
// against the policy in §4.F, correcting request_type/use_architecture_planner
// deterministically rather than trusting the model's self-classification —
// the LLM proposes search_queries and capability focus; this package decides
// the routing.
func (p *QueryPlanner) Plan(ctx context.Context, req Request) (models.SearchPlan, llmgw.TokenUsage, float64, error) {
	var plan models.SearchPlan
	usage, cost, err := p.gateway.Call(ctx, querySystemPrompt, queryUserPrompt(req), &plan, 0.2, 1024)
	if err != nil {
		return models.SearchPlan{}, usage, cost, fmt.Errorf("planner: query plan: %w", err)
	}

	plan.RequestType = classifyRequestType(req, plan)
	plan.UseArchitecturePlanner = plan.RequestType == models.RequestThemedPack

	if len(plan.SearchQueries) < minSearchQueries {
		plan.SearchQueries = append(plan.SearchQueries, fallbackQueries(req)...)
	}
	if len(plan.SearchQueries) > maxSearchQueries {
		plan.SearchQueries = plan.SearchQueries[:maxSearchQueries]
	}
	return plan, usage, cost, nil
}

// classifyRequestType enforces §4.F's deterministic policy: names-specific-
// mods-or-small-ask => simple_add; optimization-flavored with no theme =>
// performance; otherwise, or a large themed ask, => themed_pack.
func classifyRequestType(req Request, plan models.SearchPlan) models.RequestType {
	prompt := strings.ToLower(req.RawPrompt)

	if namesSpecificMods(prompt, plan) || (req.MaxMods > 0 && req.MaxMods <= 15) {
		return models.RequestSimpleAdd
	}
	if mentionsPerformance(prompt) && !hasTopicalContent(prompt) {
		return models.RequestPerformance
	}
	if req.MaxMods >= themedPackMinMaxMods && hasTopicalContent(prompt) {
		return models.RequestThemedPack
	}
	if hasTopicalContent(prompt) {
		return models.RequestThemedPack
	}
	return models.RequestThemedPack
}

// namesSpecificMods reports whether a short (one- or two-word) keyword
// query from the plan appears verbatim in the lowercased prompt.
func namesSpecificMods(prompt string, plan models.SearchPlan) bool {
	for _, q := range plan.SearchQueries {
		if q.Kind == models.QueryKeyword && len(strings.Fields(q.Text)) <= 2 && strings.Contains(prompt, strings.ToLower(q.Text)) {
			return true
		}
	}
	return false
}

var performanceTerms = []string{"performance", "fps", "optimiz", "memory", "lag", "stutter", "frame rate", "frame-rate"}

func mentionsPerformance(prompt string) bool {
	for _, t := range performanceTerms {
		if strings.Contains(prompt, t) {
			return true
		}
	}
	return false
}

var topicalTerms = []string{
	"medieval", "tech", "magic", "fantasy", "sci-fi", "scifi", "horror",
	"survival", "adventure", "rpg", "exploration", "automation", "space",
	"steampunk", "dungeon", "vanilla+", "kitchen sink",
}

func hasTopicalContent(prompt string) bool {
	for _, t := range topicalTerms {
		if strings.Contains(prompt, t) {
			return true
		}
	}
	return false
}

// fallbackQueries fills out the SearchPlan's query mix when the LLM under-
// produces, so Hybrid Retrieval always receives 3-6 queries (§4.F).
func fallbackQueries(req Request) []models.SearchQuery {
	return []models.SearchQuery{
		{Kind: models.QuerySemantic, Text: req.RawPrompt, Weight: 1.0},
		{Kind: models.QueryKeyword, Text: req.RawPrompt, Weight: 0.6},
	}
}

const querySystemPrompt = `You are the Query Planner for a Minecraft modpack assembly engine.
Given a user's request, target Minecraft version, mod loader, and current mod list, emit a
SearchPlan as strict JSON with fields: search_queries (array of {kind: "semantic"|"keyword",
text, weight}), capabilities_focus (array of capability dot-paths), baseline_mods (array of
source ids referenced by the prompt or already on the board). Emit 3 to 6 search queries mixing
both kinds. Do not set request_type or use_architecture_planner; the caller decides those.`

func queryUserPrompt(req Request) string {
	return fmt.Sprintf(
		"Prompt: %s\nTarget Minecraft version: %s\nTarget mod loader: %s\nCurrent mods: %s",
		req.RawPrompt, req.MCVersion, req.ModLoader, strings.Join(req.CurrentMods, ", "),
	)
}

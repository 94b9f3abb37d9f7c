package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
)

// referenceThreshold is the prevalence fraction a mod must clear across
// reference modpacks to enter the baseline-mod list (§4.G.1 "≥70%").
const referenceThreshold = 0.70

// categorySplitThreshold/categoryMergeThreshold bound category size during
// Refine (§4.G.2).
const (
	categorySplitThreshold = 15
	categoryMergeThreshold = 4
	libraryGroupThreshold  = 20
	jaccardMergeThreshold  = 0.4
)

// libraryCapabilities flags a mod as library-class for Refine's grouping rule.
var libraryCapabilities = []string{"dependency.library", "api.exposed"}

// ArchitecturePlanner runs the themed-flow Plan and Refine LLM calls (§4.G).
type ArchitecturePlanner struct {
	gateway *llmgw.Gateway
}

// NewArchitecturePlanner builds an ArchitecturePlanner over an LLM Gateway.
func NewArchitecturePlanner(gateway *llmgw.Gateway) *ArchitecturePlanner {
	return &ArchitecturePlanner{gateway: gateway}
}

// PlanInput carries the Plan call's grounding context (§4.G.1).
type PlanInput struct {
	Prompt             string
	MaxMods            int
	ReferenceModpacks  []models.Modpack // top-K=10 similar packs, via ModpackVectorSearch
	CapabilityCooccur  map[string]map[string]int
}

// planResponse is the raw LLM output shape before baseline-mod extraction,
// which this package computes deterministically rather than trusting the model.
type planResponse struct {
	Categories         []models.PlannedCategory `json:"categories"`
	PackArchetype      string                   `json:"pack_archetype"`
	EstimatedTotalMods int                      `json:"estimated_total_mods"`
}

// Plan issues the architecture Plan call and derives the baseline-mod list
// from reference-pack prevalence (§4.G.1).
func (p *ArchitecturePlanner) Plan(ctx context.Context, input PlanInput) (models.PlannedArchitecture, []string, llmgw.TokenUsage, float64, error) {
	var resp planResponse
	usage, cost, err := p.gateway.Call(ctx, archPlanSystemPrompt, archPlanUserPrompt(input), &resp, 0.3, 2048)
	if err != nil {
		return models.PlannedArchitecture{}, nil, usage, cost, fmt.Errorf("planner: architecture plan: %w", err)
	}

	arch := models.PlannedArchitecture{
		Categories:         resp.Categories,
		PackArchetype:      resp.PackArchetype,
		EstimatedTotalMods: resp.EstimatedTotalMods,
	}
	for i, c := range arch.Categories {
		if len(c.RequiredCapabilities) == 0 {
			arch.Categories[i].RequiredCapabilities = []string{"gameplay.general"}
		}
	}

	baseline := baselineModsFromReferences(input.ReferenceModpacks)
	return arch, baseline, usage, cost, nil
}

// baselineModsFromReferences unions the mods appearing in at least
// referenceThreshold of the given packs' category providers (§4.G.1).
func baselineModsFromReferences(packs []models.Modpack) []string {
	if len(packs) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, pack := range packs {
		seen := make(map[string]bool)
		for _, cat := range pack.Architecture.Categories {
			for _, ids := range cat.Providers {
				for _, id := range ids {
					if !seen[id] {
						seen[id] = true
						counts[id]++
					}
				}
			}
		}
	}

	threshold := referenceThreshold * float64(len(packs))
	var baseline []string
	for id, n := range counts {
		if float64(n) >= threshold {
			baseline = append(baseline, id)
		}
	}
	sort.Strings(baseline)
	return baseline
}

// RefineInput carries the actual post-selection, post-resolution state the
// Refine call and its deterministic rule pass need (§4.G.2).
type RefineInput struct {
	Initial  models.PlannedArchitecture
	Selected []models.SelectedMod
	ModsByID map[string]models.Mod
}

type refineResponse struct {
	Categories []models.PlannedCategory `json:"categories"`
}

// Refine issues the architecture Refine call, then deterministically enforces
// the split/merge/library-grouping rules §4.G.2 specifies exactly, since
// those are precise numeric invariants better guaranteed in code than left to
// the model's compliance.
func (p *ArchitecturePlanner) Refine(ctx context.Context, input RefineInput) (models.PlannedArchitecture, llmgw.TokenUsage, float64, error) {
	var resp refineResponse
	usage, cost, err := p.gateway.Call(ctx, archRefineSystemPrompt, archRefineUserPrompt(input), &resp, 0.2, 2048)
	if err != nil {
		return models.PlannedArchitecture{}, usage, cost, fmt.Errorf("planner: architecture refine: %w", err)
	}

	categories := resp.Categories
	if len(categories) == 0 {
		categories = input.Initial.Categories
	}

	membership := categorizeSelections(categories, input.Selected, input.ModsByID)
	categories = splitOversized(categories, membership, input.ModsByID)
	categories = mergeUndersized(categories, membership, input.ModsByID)
	categories = groupLibraries(categories, membership, input.ModsByID)

	return models.PlannedArchitecture{
		Categories:         categories,
		PackArchetype:      input.Initial.PackArchetype,
		EstimatedTotalMods: len(input.Selected),
	}, usage, cost, nil
}

// categorizeSelections assigns each selected mod to the category it best
// fits, applying §4.G.2's classification priority: performance(90) >
// graphics(90) > library(80, or 90 with no performance/graphics signal) >
// gameplay(75), ties broken by remaining target-fill.
func categorizeSelections(categories []models.PlannedCategory, selected []models.SelectedMod, modsByID map[string]models.Mod) map[int][]string {
	membership := make(map[int][]string, len(categories))
	filled := make([]int, len(categories))

	for _, sel := range selected {
		mod, ok := modsByID[sel.SourceID]
		if !ok {
			continue
		}
		idx := bestCategory(mod, categories, filled, sel.CategoryIndex)
		if idx < 0 {
			continue
		}
		membership[idx] = append(membership[idx], sel.SourceID)
		filled[idx]++
	}
	return membership
}

func bestCategory(mod models.Mod, categories []models.PlannedCategory, filled []int, hint *int) int {
	if hint != nil && *hint >= 0 && *hint < len(categories) {
		return *hint
	}

	type score struct {
		idx      int
		priority int
		remaining int
	}
	var candidates []score
	for i, c := range categories {
		if !mod.HasAnyCapability(c.RequiredCapabilities) && !mod.HasAnyCapability(c.PreferredCapabilities) {
			continue
		}
		candidates = append(candidates, score{
			idx:       i,
			priority:  classificationPriority(mod),
			remaining: c.TargetMods - filled[i],
		})
	}
	if len(candidates) == 0 {
		return -1
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority > candidates[j].priority
		}
		return candidates[i].remaining > candidates[j].remaining
	})
	return candidates[0].idx
}

func classificationPriority(mod models.Mod) int {
	isPerf := mod.HasCapability("performance") || hasPrefix(mod.Capabilities, "performance.")
	isGraphics := mod.HasCapability("graphics") || hasPrefix(mod.Capabilities, "graphics.")
	isLibrary := isLibraryMod(mod)

	switch {
	case isPerf, isGraphics:
		return 90
	case isLibrary && !isPerf && !isGraphics:
		return 90
	case isLibrary:
		return 80
	default:
		return 75
	}
}

func isLibraryMod(mod models.Mod) bool {
	for _, c := range libraryCapabilities {
		if mod.HasCapability(c) {
			return true
		}
	}
	return false
}

func hasPrefix(caps []string, prefix string) bool {
	for _, c := range caps {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// splitOversized splits any category with >15 gameplay mods into 2-3
// sub-categories on capability affinity (§4.G.2).
func splitOversized(categories []models.PlannedCategory, membership map[int][]string, modsByID map[string]models.Mod) []models.PlannedCategory {
	out := make([]models.PlannedCategory, 0, len(categories))
	for i, c := range categories {
		members := membership[i]
		if len(members) <= categorySplitThreshold || isLibraryCategory(c) {
			out = append(out, c)
			continue
		}

		groups := splitByCapabilityAffinity(members, modsByID, 3)
		for gi, group := range groups {
			sub := c
			sub.Name = fmt.Sprintf("%s (%d/%d)", c.Name, gi+1, len(groups))
			sub.TargetMods = len(group.ids)
			// Tag each sub-category with its distinctive capability so a
			// later merge pass doesn't immediately Jaccard-collapse the
			// split back together (all sub-categories otherwise inherit
			// the same required/preferred sets from c).
			if group.key != "" && group.key != "misc" {
				sub.PreferredCapabilities = append(append([]string{}, c.PreferredCapabilities...), group.key)
			}
			out = append(out, sub)
		}
	}
	return out
}

type capabilityGroup struct {
	key string
	ids []string
}

// splitByCapabilityAffinity buckets source ids by their most distinctive
// shared capability, capped at maxGroups buckets.
func splitByCapabilityAffinity(sourceIDs []string, modsByID map[string]models.Mod, maxGroups int) []capabilityGroup {
	buckets := make(map[string][]string)
	for _, id := range sourceIDs {
		mod := modsByID[id]
		key := "misc"
		if len(mod.Capabilities) > 0 {
			key = mod.Capabilities[0]
		}
		buckets[key] = append(buckets[key], id)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) <= maxGroups {
		groups := make([]capabilityGroup, 0, len(keys))
		for _, k := range keys {
			groups = append(groups, capabilityGroup{key: k, ids: buckets[k]})
		}
		return groups
	}

	// Collapse overflow buckets into maxGroups buckets round-robin to stay
	// within the cap without dropping any mod; the merged bucket keeps the
	// key of its first contributor.
	groups := make([]capabilityGroup, maxGroups)
	for i, k := range keys {
		gi := i % maxGroups
		if groups[gi].key == "" {
			groups[gi].key = k
		}
		groups[gi].ids = append(groups[gi].ids, buckets[k]...)
	}
	return groups
}

// mergeUndersized merges any category with <4 mods into its nearest sibling
// by capability Jaccard similarity ≥0.4 (§4.G.2).
func mergeUndersized(categories []models.PlannedCategory, membership map[int][]string, modsByID map[string]models.Mod) []models.PlannedCategory {
	merged := make([]bool, len(categories))
	capSets := make([]map[string]struct{}, len(categories))
	for i, c := range categories {
		capSets[i] = toSet(append(append([]string{}, c.RequiredCapabilities...), c.PreferredCapabilities...))
	}

	for i, c := range categories {
		if merged[i] || len(membership[i]) >= categoryMergeThreshold {
			continue
		}
		bestJ, bestScore := -1, 0.0
		for j := range categories {
			if i == j || merged[j] {
				continue
			}
			sim := jaccard(capSets[i], capSets[j])
			if sim > bestScore {
				bestScore, bestJ = sim, j
			}
		}
		if bestJ >= 0 && bestScore >= jaccardMergeThreshold {
			categories[bestJ].TargetMods += c.TargetMods
			merged[i] = true
		}
	}

	out := make([]models.PlannedCategory, 0, len(categories))
	for i, c := range categories {
		if !merged[i] {
			out = append(out, c)
		}
	}
	return out
}

// groupLibraries pulls library-capability categories out as their own group,
// splitting into APIs/Core/Compatibility sub-groups once ≥20 libraries are
// selected (§4.G.2).
func groupLibraries(categories []models.PlannedCategory, membership map[int][]string, modsByID map[string]models.Mod) []models.PlannedCategory {
	var libraryCount int
	for i, c := range categories {
		if isLibraryCategory(c) {
			libraryCount += len(membership[i])
		}
	}
	if libraryCount < libraryGroupThreshold {
		return categories
	}

	out := make([]models.PlannedCategory, 0, len(categories)+2)
	var libraryIDs []string
	for i, c := range categories {
		if isLibraryCategory(c) {
			libraryIDs = append(libraryIDs, membership[i]...)
			continue
		}
		out = append(out, c)
	}

	subGroups := map[string][]string{"APIs": nil, "Core": nil, "Compatibility": nil}
	for _, id := range libraryIDs {
		mod := modsByID[id]
		switch {
		case mod.HasCapability("api.exposed"):
			subGroups["APIs"] = append(subGroups["APIs"], id)
		case hasPrefix(mod.Capabilities, "compat."):
			subGroups["Compatibility"] = append(subGroups["Compatibility"], id)
		default:
			subGroups["Core"] = append(subGroups["Core"], id)
		}
	}
	for _, name := range []string{"APIs", "Core", "Compatibility"} {
		ids := subGroups[name]
		if len(ids) == 0 {
			continue
		}
		out = append(out, models.PlannedCategory{
			Name:                 "Libraries: " + name,
			RequiredCapabilities: []string{"dependency.library"},
			TargetMods:           len(ids),
		})
	}
	return out
}

func isLibraryCategory(c models.PlannedCategory) bool {
	for _, cap := range c.RequiredCapabilities {
		if cap == "dependency.library" || cap == "api.exposed" {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

const archPlanSystemPrompt = `You are the Architecture Planner for a Minecraft modpack assembly engine.
Given a user's themed-pack prompt, a target mod count, similar reference modpacks, and a
capability co-occurrence table, emit a PlannedArchitecture as strict JSON with fields:
categories (array of {name, description, required_capabilities, preferred_capabilities,
target_mods}), pack_archetype, estimated_total_mods. Emit 5 to 15 categories whose target_mods
sum approximately to the requested mod count; every category needs at least one required
capability.`

func archPlanUserPrompt(input PlanInput) string {
	var refs strings.Builder
	for _, pack := range input.ReferenceModpacks {
		fmt.Fprintf(&refs, "- %s (%s)\n", pack.Title, pack.Description)
	}
	return fmt.Sprintf(
		"Prompt: %s\nTarget mod count: %d\nReference modpacks:\n%s",
		input.Prompt, input.MaxMods, refs.String(),
	)
}

const archRefineSystemPrompt = `You are refining a PlannedArchitecture after mod selection and dependency
resolution. Given the initial plan and the actual selected mods, emit a refined categories array
as strict JSON with field categories (same shape as the input). The caller enforces the precise
split/merge/library-grouping rules afterward, so focus on renaming and describing categories
sensibly for what was actually selected.`

func archRefineUserPrompt(input RefineInput) string {
	var sb strings.Builder
	for _, cat := range input.Initial.Categories {
		fmt.Fprintf(&sb, "- %s: required=%v preferred=%v target=%d\n",
			cat.Name, cat.RequiredCapabilities, cat.PreferredCapabilities, cat.TargetMods)
	}
	return fmt.Sprintf("Initial plan:\n%sSelected mod count: %d", sb.String(), len(input.Selected))
}

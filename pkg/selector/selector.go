// Package selector implements the Final Selector (§4.H): a local,
// no-LLM pre-filter that scores and caps retrieval candidates per planned
// category, followed by an LLM call that commits to an exact SelectedMod
// list.
package selector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
)

// preFilterTopPerCategory and poolCap bound the local pre-filter (§4.H.1).
const (
	preFilterTopPerCategory = 6
	poolCap                 = 50
)

// requiredWeight/preferredWeight/downloadsCap tune the pre-filter score
// formula `5·|caps∩required| + 2·|caps∩preferred| + min(log10(downloads+1), 3)`.
const (
	requiredWeight = 5.0
	preferredWeight = 2.0
	downloadsCap    = 3.0
)

// Selector runs both Final Selector stages.
type Selector struct {
	gateway *llmgw.Gateway
}

// New builds a Selector over an LLM Gateway.
func New(gateway *llmgw.Gateway) *Selector {
	return &Selector{gateway: gateway}
}

// Scored is one pre-filter survivor with the category it was scored against.
type Scored struct {
	Mod           models.Mod
	CategoryIndex int
	Score         float64
}

// PreFilter scores every candidate against every planned category, keeps the
// top preFilterTopPerCategory per category, and unions into a pool capped at
// poolCap (§4.H.1).
func PreFilter(candidates []models.Mod, architecture models.PlannedArchitecture) []Scored {
	if len(architecture.Categories) == 0 {
		return nil
	}

	var perCategory [][]Scored
	for ci, cat := range architecture.Categories {
		var scored []Scored
		for _, m := range candidates {
			s := categoryScore(m, cat)
			if s <= 0 {
				continue
			}
			scored = append(scored, Scored{Mod: m, CategoryIndex: ci, Score: s})
		}
		sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
		if len(scored) > preFilterTopPerCategory {
			scored = scored[:preFilterTopPerCategory]
		}
		perCategory = append(perCategory, scored)
	}

	seen := make(map[string]bool)
	var pool []Scored
	for _, cat := range perCategory {
		for _, s := range cat {
			if seen[s.Mod.SourceID] {
				continue
			}
			seen[s.Mod.SourceID] = true
			pool = append(pool, s)
			if len(pool) >= poolCap {
				return pool
			}
		}
	}
	return pool
}

func categoryScore(m models.Mod, cat models.PlannedCategory) float64 {
	required := intersectionCount(m.Capabilities, cat.RequiredCapabilities)
	preferred := intersectionCount(m.Capabilities, cat.PreferredCapabilities)
	return requiredWeight*float64(required) + preferredWeight*float64(preferred) + downloadsScore(m.Downloads)
}

func downloadsScore(downloads int64) float64 {
	v := math.Log10(float64(downloads) + 1)
	if v > downloadsCap {
		return downloadsCap
	}
	return v
}

func intersectionCount(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, x := range b {
		set[x] = struct{}{}
	}
	n := 0
	for _, x := range a {
		if _, ok := set[x]; ok {
			n++
		}
	}
	return n
}

type selectResponse struct {
	Selections []models.SelectedMod `json:"selections"`
}

// Select issues the LLM selection call (§4.H.2) over the pre-filtered pool
// (themed flow) or the raw top candidates (simple flow, architecture is the
// zero value), then enforces the post-conditions deterministically: no
// duplicates, category_index validity, exact output count, and required-
// capability category coverage where the pool permits.
func (s *Selector) Select(ctx context.Context, architecture models.PlannedArchitecture, pool []models.Mod, maxMods int) ([]models.SelectedMod, llmgw.TokenUsage, float64, error) {
	want := maxMods
	if want > len(pool) {
		want = len(pool)
	}
	if want <= 0 {
		return nil, llmgw.TokenUsage{}, 0, nil
	}

	var resp selectResponse
	usage, cost, err := s.gateway.Call(ctx, selectSystemPrompt, selectUserPrompt(architecture, pool, want), &resp, 0.2, 2048)
	if err != nil {
		return nil, usage, cost, fmt.Errorf("selector: llm selection: %w", err)
	}

	selections := enforcePostConditions(resp.Selections, architecture, pool, want)
	return selections, usage, cost, nil
}

// enforcePostConditions drops duplicate/invalid entries, truncates or tops
// up to exactly `want` entries from pool order, and — where the pool still
// permits it — guarantees every required-capability category has at least
// one selection (§4.H.2).
func enforcePostConditions(selections []models.SelectedMod, architecture models.PlannedArchitecture, pool []models.Mod, want int) []models.SelectedMod {
	poolByID := make(map[string]models.Mod, len(pool))
	for _, m := range pool {
		poolByID[m.SourceID] = m
	}

	numCategories := len(architecture.Categories)
	seen := make(map[string]bool)
	var out []models.SelectedMod
	for _, sel := range selections {
		if seen[sel.SourceID] {
			continue
		}
		if _, ok := poolByID[sel.SourceID]; !ok {
			continue
		}
		if sel.CategoryIndex != nil && (*sel.CategoryIndex < 0 || *sel.CategoryIndex >= numCategories) {
			sel.CategoryIndex = nil
		}
		seen[sel.SourceID] = true
		out = append(out, sel)
	}

	if len(out) > want {
		out = out[:want]
	}
	out = ensureRequiredCategoryCoverage(out, seen, architecture, pool, want)

	if len(out) > want {
		out = out[:want]
	} else {
		for _, m := range pool {
			if len(out) >= want {
				break
			}
			if seen[m.SourceID] {
				continue
			}
			seen[m.SourceID] = true
			out = append(out, models.SelectedMod{SourceID: m.SourceID, Role: models.RolePrimary, Reason: "pool top-up to reach target count"})
		}
	}
	return out
}

// ensureRequiredCategoryCoverage adds one pool mod per uncovered required-
// capability category, when the pool has an eligible candidate (§4.H.2).
func ensureRequiredCategoryCoverage(out []models.SelectedMod, seen map[string]bool, architecture models.PlannedArchitecture, pool []models.Mod, want int) []models.SelectedMod {
	covered := make(map[int]bool)
	for _, sel := range out {
		if sel.CategoryIndex != nil {
			covered[*sel.CategoryIndex] = true
		}
	}

	for ci, cat := range architecture.Categories {
		if len(out) >= want {
			break
		}
		if len(cat.RequiredCapabilities) == 0 || covered[ci] {
			continue
		}
		for _, m := range pool {
			if seen[m.SourceID] {
				continue
			}
			if !m.HasAnyCapability(cat.RequiredCapabilities) {
				continue
			}
			idx := ci
			out = append(out, models.SelectedMod{SourceID: m.SourceID, CategoryIndex: &idx, Role: models.RolePrimary, Reason: "required-capability category coverage"})
			seen[m.SourceID] = true
			covered[ci] = true
			break
		}
	}
	return out
}

const selectSystemPrompt = `You are the Final Selector for a Minecraft modpack assembly engine. Given
a (possibly empty) PlannedArchitecture and a pool of candidate mods, choose exactly the requested
number of mods. Emit strict JSON with field selections (array of {source_id, category_index
(nullable int matching a plan category, or null if no plan), reason, role: "primary"|"library"|
"dependency"|"bridge"}). Never repeat a source_id. Every category in the plan with a required
capability must receive at least one selection, if the pool contains an eligible candidate.`

func selectUserPrompt(architecture models.PlannedArchitecture, pool []models.Mod, want int) string {
	var sb strings.Builder
	if len(architecture.Categories) > 0 {
		fmt.Fprintf(&sb, "Plan archetype: %s\n", architecture.PackArchetype)
		for i, c := range architecture.Categories {
			fmt.Fprintf(&sb, "Category %d: %s required=%v preferred=%v target=%d\n",
				i, c.Name, c.RequiredCapabilities, c.PreferredCapabilities, c.TargetMods)
		}
	} else {
		sb.WriteString("No architecture plan: simple flow, select top candidates directly.\n")
	}
	fmt.Fprintf(&sb, "Select exactly %d mods from this pool:\n", want)
	for _, m := range pool {
		fmt.Fprintf(&sb, "- %s (%s): capabilities=%v downloads=%d\n", m.SourceID, m.Name, m.Capabilities, m.Downloads)
	}
	return sb.String()
}

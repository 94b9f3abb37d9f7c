package crash

import (
	"context"
	"fmt"
	"strings"

	"github.com/modforge/assembly/pkg/models"
	"github.com/modforge/assembly/pkg/modregistry"
)

// FixPlanner validates each Analyzer-suggested fix against the external mod
// registry and promotes validated suggestions to board Operations (§4.L
// step 5). A suggestion that cannot be validated becomes a warning instead
// of blocking the rest of the plan (§7 "best effort" policy).
type FixPlanner struct {
	registry modregistry.Client
}

// NewFixPlanner builds a FixPlanner over a mod-registry client.
func NewFixPlanner(registry modregistry.Client) *FixPlanner {
	return &FixPlanner{registry: registry}
}

// Plan resolves each suggestion's target mod against the board, validates
// it via the registry, and returns the promoted operations plus warnings
// for anything that failed validation.
func (p *FixPlanner) Plan(ctx context.Context, board models.BoardState, loader, mcVersion string, suggestions []models.SuggestedFix) ([]models.Operation, []string) {
	var operations []models.Operation
	var warnings []string

	for _, s := range suggestions {
		targetID, resolved := resolveTargetMod(board, s.TargetMod)
		if !resolved {
			targetID = s.TargetMod
		}

		ok, warning := p.validate(ctx, targetID, s.Action, loader, mcVersion)
		if !ok {
			warnings = append(warnings, warning)
			continue
		}

		operations = append(operations, models.Operation{
			Kind:     s.Action,
			Target:   targetID,
			SourceID: targetID,
			Reason:   s.Reason,
			Priority: s.Priority,
		})
	}

	return operations, warnings
}

// validate checks mod existence for every action, and version compatibility
// additionally for actions that introduce or change a version (add_mod,
// update_mod). A registry-unavailable error degrades to a warning rather
// than failing the whole plan (§7).
func (p *FixPlanner) validate(ctx context.Context, targetID string, action models.OperationKind, loader, mcVersion string) (bool, string) {
	if action == models.OpClearLoaderCache {
		return true, ""
	}

	exists, err := p.registry.ModExists(ctx, targetID)
	if err != nil {
		return false, fmt.Sprintf("fix for %q not validated: %v", targetID, err)
	}
	if !exists {
		return false, fmt.Sprintf("fix for %q skipped: mod not found in registry", targetID)
	}

	if action == models.OpAddMod || action == models.OpUpdateMod {
		compatible, err := p.registry.HasCompatibleVersion(ctx, targetID, loader, mcVersion)
		if err != nil {
			return false, fmt.Sprintf("fix for %q not validated: %v", targetID, err)
		}
		if !compatible {
			return false, fmt.Sprintf("fix for %q skipped: no compatible version for %s %s", targetID, loader, mcVersion)
		}
	}

	return true, ""
}

// resolveTargetMod matches a free-text mod name against the board's mods by
// slug or title, case-insensitively, returning the board's source_id.
func resolveTargetMod(board models.BoardState, name string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, m := range board.Mods {
		if strings.ToLower(m.Slug) == needle || strings.ToLower(m.Title) == needle {
			return m.SourceID, true
		}
	}
	for _, m := range board.Mods {
		if strings.Contains(strings.ToLower(m.Title), needle) || strings.Contains(needle, strings.ToLower(m.Slug)) {
			return m.SourceID, true
		}
	}
	return "", false
}

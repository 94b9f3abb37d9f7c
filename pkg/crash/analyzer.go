package crash

import (
	"context"
	"fmt"
	"strings"

	"github.com/modforge/assembly/pkg/llmgw"
	"github.com/modforge/assembly/pkg/models"
)

// Analyzer issues the single LLM diagnosis call (§4.L step 4).
type Analyzer struct {
	gateway *llmgw.Gateway
}

// NewAnalyzer builds an Analyzer over an LLM Gateway.
func NewAnalyzer(gateway *llmgw.Gateway) *Analyzer {
	return &Analyzer{gateway: gateway}
}

// Analyze asks the model for a root cause, its classification, implicated
// mods, confidence, and candidate fixes.
func (a *Analyzer) Analyze(ctx context.Context, sanitized models.SanitizedCrash, overlapRatio float64) (models.Diagnosis, llmgw.TokenUsage, float64, error) {
	var diag models.Diagnosis
	usage, cost, err := a.gateway.Call(ctx, analyzerSystemPrompt, analyzerUserPrompt(sanitized, overlapRatio), &diag, 0.1, 2048)
	if err != nil {
		return models.Diagnosis{}, usage, cost, fmt.Errorf("crash: analyzer: %w", err)
	}
	if !validErrorKind(diag.ErrorKind) {
		diag.ErrorKind = models.ErrorUnknown
	}
	return diag, usage, cost, nil
}

func validErrorKind(k models.ErrorKind) bool {
	switch k {
	case models.ErrorModConflict, models.ErrorMissingDependency, models.ErrorOutdatedMod,
		models.ErrorMixinError, models.ErrorClassNotFound, models.ErrorFabricOnForge,
		models.ErrorMemory, models.ErrorUnknown:
		return true
	default:
		return false
	}
}

const analyzerSystemPrompt = `You are the crash Analyzer for a Minecraft modpack assembly engine. Given a
sanitized crash log and stack trace, diagnose the root cause. Emit strict JSON with fields:
root_cause (string), error_kind (one of mod_conflict, missing_dependency, outdated_mod,
mixin_error, class_not_found, fabric_on_forge, memory, unknown), problematic_mods (array of
{name, reason}), confidence (0-1 float), suggested_fixes (array of {action: remove_mod|
disable_mod|update_mod|add_mod|clear_loader_cache, target_mod, reason, priority: critical|high|
normal|low}).`

func analyzerUserPrompt(sanitized models.SanitizedCrash, overlapRatio float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Minecraft version: %s\nLoader: %s\nDetected error kind (heuristic): %s\n",
		sanitized.MCVersion, sanitized.ModLoader, sanitized.ErrorKind)
	fmt.Fprintf(&sb, "Mod-list/board overlap ratio: %.2f\n", overlapRatio)
	fmt.Fprintf(&sb, "Mods detected in log: %v\n\n", sanitized.ModListInLog)
	sb.WriteString("Stack trace:\n")
	sb.WriteString(sanitized.StackTrace)
	return sb.String()
}

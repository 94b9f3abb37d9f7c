package crash

import "github.com/modforge/assembly/pkg/models"

// staleLogThreshold is the minimum fraction of the log's detected mod list
// that must overlap the current board before the log is trusted outright
// (§4.L step 3).
const staleLogThreshold = 0.30

// WarningStaleLog is appended when the crash log's mod list and the current
// board disagree enough that the log may predate recent board edits.
const WarningStaleLog = "stale_log"

// ValidateAgainstBoard computes the overlap ratio between the sanitized
// log's detected mod list and the board's current mods. A ratio below
// staleLogThreshold produces a warning but never blocks the pipeline.
func ValidateAgainstBoard(modListInLog []string, board models.BoardState) (overlapRatio float64, warnings []string) {
	if len(modListInLog) == 0 {
		return 0, nil
	}

	boardIDs := make(map[string]bool, len(board.Mods))
	for _, m := range board.Mods {
		boardIDs[m.SourceID] = true
		boardIDs[m.Slug] = true
	}

	matched := 0
	for _, id := range modListInLog {
		if boardIDs[id] {
			matched++
		}
	}
	overlapRatio = float64(matched) / float64(len(modListInLog))

	if overlapRatio < staleLogThreshold {
		warnings = append(warnings, WarningStaleLog)
	}
	return overlapRatio, warnings
}

package crash

import "github.com/modforge/assembly/pkg/models"

// PatchBoard applies remove_mod, disable_mod, and update_mod operations to
// a deep copy of board, never mutating the caller's snapshot (§4.L step 6).
// add_mod operations are intent only: the patcher does not fetch binaries,
// so they pass through unapplied and the caller surfaces them to the client
// as pending additions.
func PatchBoard(board models.BoardState, operations []models.Operation) models.BoardState {
	patched := board.Clone()

	for _, op := range operations {
		switch op.Kind {
		case models.OpRemoveMod:
			patched.Mods = removeMod(patched.Mods, op.Target)
		case models.OpDisableMod:
			patched.Mods = disableMod(patched.Mods, op.Target)
		case models.OpUpdateMod:
			patched.Mods = updateModVersion(patched.Mods, op.Target, op.ToVersion)
		case models.OpAddMod, models.OpClearLoaderCache:
			// intent-only: no board mutation.
		}
	}

	return patched
}

func matchesTarget(m models.BoardMod, target string) bool {
	return m.UniqueID == target || m.SourceID == target
}

func removeMod(mods []models.BoardMod, target string) []models.BoardMod {
	out := mods[:0:0]
	for _, m := range mods {
		if matchesTarget(m, target) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func disableMod(mods []models.BoardMod, target string) []models.BoardMod {
	for i, m := range mods {
		if matchesTarget(m, target) {
			mods[i].IsDisabled = true
		}
	}
	return mods
}

func updateModVersion(mods []models.BoardMod, target, toVersion string) []models.BoardMod {
	if toVersion == "" {
		return mods
	}
	for i, m := range mods {
		if matchesTarget(m, target) {
			mods[i].Version = toVersion
		}
	}
	return mods
}

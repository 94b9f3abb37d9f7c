package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text and array GIN indexes backing the Mod
// Store's keyword search and capability filters (§4.B, §4.C).
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_mods_search_gin
		 ON mods USING gin(to_tsvector('english', name || ' ' || summary || ' ' || description))`,
		`CREATE INDEX IF NOT EXISTS idx_mods_capabilities_gin ON mods USING gin(capabilities)`,
		`CREATE INDEX IF NOT EXISTS idx_mods_loaders_gin ON mods USING gin(loaders)`,
		`CREATE INDEX IF NOT EXISTS idx_modpacks_search_gin
		 ON modpacks USING gin(to_tsvector('english', title || ' ' || description))`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create GIN index: %w", err)
		}
	}
	return nil
}

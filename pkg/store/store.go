// Package store implements the Mod Store (§4.B): batch mod lookup, hybrid
// vector/keyword search over PostgreSQL, and the narrow set of writes the
// rest of the system is allowed to perform (user counters, crash sessions,
// board builds, sort-session feedback).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/modforge/assembly/pkg/embedder"
	"github.com/modforge/assembly/pkg/models"
)

// Store issues hand-written SQL against the schema in
// pkg/database/migrations (no ORM, see DESIGN.md).
type Store struct {
	db *sql.DB
}

// New wraps an open *sql.DB.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Filters narrows a search to loader/version/download/capability
// constraints (§4.B).
type Filters struct {
	Loader              string
	GameVersion          string
	MinDownloads         int64
	AnyOfCapabilities    []string
}

const defaultMinDownloadThreshold = 5000

func (f Filters) minDownloads() int64 {
	if f.MinDownloads > 0 {
		return f.MinDownloads
	}
	return defaultMinDownloadThreshold
}

// GetMod fetches a single mod by source id.
func (s *Store) GetMod(ctx context.Context, sourceID string) (models.Mod, error) {
	mods, err := s.GetModsByProjectIDs(ctx, []string{sourceID})
	if err != nil {
		return models.Mod{}, err
	}
	mod, ok := mods[sourceID]
	if !ok {
		return models.Mod{}, sql.ErrNoRows
	}
	return mod, nil
}

// GetModsByProjectIDs batch-fetches mods by source id in a single round
// trip (§4.B "N+1 forbidden").
func (s *Store) GetModsByProjectIDs(ctx context.Context, sourceIDs []string) (map[string]models.Mod, error) {
	if len(sourceIDs) == 0 {
		return map[string]models.Mod{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, slug, name, summary, description, icon_url,
		       loaders, game_versions, capabilities, modrinth_categories, tags,
		       downloads, followers, embedding
		FROM mods WHERE source_id = ANY($1)`, pq.Array(sourceIDs))
	if err != nil {
		return nil, fmt.Errorf("store: batch get mods: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Mod, len(sourceIDs))
	for rows.Next() {
		mod, err := scanMod(rows)
		if err != nil {
			return nil, err
		}
		out[mod.SourceID] = mod
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachDependencies(ctx, out); err != nil {
		return nil, err
	}
	if err := s.attachIncompatibilities(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMod(row rowScanner) (models.Mod, error) {
	var m models.Mod
	var loaders, gameVersions, capabilities, modrinthCategories, tags pq.StringArray
	var embedding pq.Float64Array

	if err := row.Scan(
		&m.SourceID, &m.Slug, &m.Name, &m.Summary, &m.Description, &m.IconURL,
		&loaders, &gameVersions, &capabilities, &modrinthCategories, &tags,
		&m.Downloads, &m.Followers, &embedding,
	); err != nil {
		return models.Mod{}, fmt.Errorf("store: scan mod: %w", err)
	}

	m.Loaders = []string(loaders)
	m.GameVersions = []string(gameVersions)
	m.Capabilities = []string(capabilities)
	m.ModrinthCategories = []string(modrinthCategories)
	m.Tags = []string(tags)
	m.Embedding = make([]float32, len(embedding))
	for i, v := range embedding {
		m.Embedding[i] = float32(v)
	}
	return m, nil
}

func (s *Store) attachDependencies(ctx context.Context, mods map[string]models.Mod) error {
	if len(mods) == 0 {
		return nil
	}
	ids := make([]string, 0, len(mods))
	for id := range mods {
		ids = append(ids, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT mod_source_id, project_id, dependency_type, version_range
		FROM mod_dependencies WHERE mod_source_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("store: batch get dependencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var modID string
		var dep models.Dependency
		var depType string
		if err := rows.Scan(&modID, &dep.ProjectID, &depType, &dep.VersionRange); err != nil {
			return fmt.Errorf("store: scan dependency: %w", err)
		}
		dep.DependencyType = models.DependencyType(depType)
		m := mods[modID]
		m.Dependencies = append(m.Dependencies, dep)
		mods[modID] = m
	}
	return rows.Err()
}

func (s *Store) attachIncompatibilities(ctx context.Context, mods map[string]models.Mod) error {
	if len(mods) == 0 {
		return nil
	}
	ids := make([]string, 0, len(mods))
	for id := range mods {
		ids = append(ids, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT mod_source_id, loader, incompatible_source_id
		FROM mod_incompatibilities WHERE mod_source_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("store: batch get incompatibilities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var modID, loader, incompatibleID string
		if err := rows.Scan(&modID, &loader, &incompatibleID); err != nil {
			return fmt.Errorf("store: scan incompatibility: %w", err)
		}
		m := mods[modID]
		if m.Incompatibilities == nil {
			m.Incompatibilities = make(map[string][]string)
		}
		m.Incompatibilities[loader] = append(m.Incompatibilities[loader], incompatibleID)
		mods[modID] = m
	}
	return rows.Err()
}

// Candidate is one search hit with its raw per-query rank, used by the
// Hybrid Retrieval stage to compute RRF (§4.C).
type Candidate struct {
	Mod  models.Mod
	Rank int // 1-based rank within this single query's result list
}

// VectorSearch returns the top-k mods by cosine similarity to qEmbedding,
// restricted by filters. Approximate nearest-neighbor is acceptable (§4.B);
// this implementation scores every capability-filtered candidate in Go
// since no vector extension exists anywhere in the example pack.
func (s *Store) VectorSearch(ctx context.Context, qEmbedding []float32, filters Filters, k int) ([]Candidate, error) {
	candidates, err := s.filteredCandidates(ctx, filters, 2000)
	if err != nil {
		return nil, err
	}

	type scored = struct {
		mod   models.Mod
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, m := range candidates {
		ranked = append(ranked, scored{mod: m, score: embedder.CosineSimilarity(qEmbedding, m.Embedding)})
	}
	sortByScoreDesc(ranked)

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]Candidate, k)
	for i := 0; i < k; i++ {
		out[i] = Candidate{Mod: ranked[i].mod, Rank: i + 1}
	}
	return out, nil
}

func sortByScoreDesc(ranked []struct {
	mod   models.Mod
	score float64
}) {
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score > ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
}

// KeywordSearch performs tokenized Postgres full-text search over
// name/summary/description, restricted by filters (§4.B, §4.C).
func (s *Store) KeywordSearch(ctx context.Context, terms string, filters Filters, k int) ([]Candidate, error) {
	args := []any{terms}
	whereClause, whereArgs := filterClauses(filters, len(args))
	args = append(args, whereArgs...)

	query := `
		SELECT source_id, slug, name, summary, description, icon_url,
		       loaders, game_versions, capabilities, modrinth_categories, tags,
		       downloads, followers, embedding,
		       ts_rank(to_tsvector('english', name || ' ' || summary || ' ' || description),
		               plainto_tsquery('english', $1)) AS rank
		FROM mods`
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: keyword search: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	rank := 0
	for rows.Next() {
		var m models.Mod
		var loaders, gameVersions, capabilities, modrinthCategories, tags pq.StringArray
		var embedding pq.Float64Array
		var tsRank float64
		if err := rows.Scan(
			&m.SourceID, &m.Slug, &m.Name, &m.Summary, &m.Description, &m.IconURL,
			&loaders, &gameVersions, &capabilities, &modrinthCategories, &tags,
			&m.Downloads, &m.Followers, &embedding, &tsRank,
		); err != nil {
			return nil, fmt.Errorf("store: scan keyword search row: %w", err)
		}
		m.Loaders = []string(loaders)
		m.GameVersions = []string(gameVersions)
		m.Capabilities = []string(capabilities)
		m.ModrinthCategories = []string(modrinthCategories)
		m.Tags = []string(tags)
		m.Embedding = make([]float32, len(embedding))
		for i, v := range embedding {
			m.Embedding[i] = float32(v)
		}
		rank++
		out = append(out, Candidate{Mod: m, Rank: rank})
	}
	return out, rows.Err()
}

// filteredCandidates returns up to limit mods matching filters, without
// ranking — used as VectorSearch's in-Go-scored candidate pool.
func (s *Store) filteredCandidates(ctx context.Context, filters Filters, limit int) ([]models.Mod, error) {
	whereClause, args := filterClauses(filters, 0)

	query := `
		SELECT source_id, slug, name, summary, description, icon_url,
		       loaders, game_versions, capabilities, modrinth_categories, tags,
		       downloads, followers, embedding
		FROM mods`
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: filtered candidates: %w", err)
	}
	defer rows.Close()

	var out []models.Mod
	for rows.Next() {
		m, err := scanMod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// filterClauses builds the loader/version/downloads/capability WHERE
// clause for Filters, numbering placeholders starting at argOffset+1 so
// callers can prepend their own positional args (e.g. KeywordSearch's
// full-text query term at $1).
func filterClauses(filters Filters, argOffset int) (string, []any) {
	var clauses []string
	var args []any
	next := func() int { return argOffset + len(args) }

	if filters.Loader != "" {
		args = append(args, filters.Loader)
		loaderIdx := next()
		args = append(args, string(models.LoaderUniversal))
		universalIdx := next()
		clauses = append(clauses, fmt.Sprintf("(loaders && ARRAY[$%d, $%d])", loaderIdx, universalIdx))
	}
	if filters.GameVersion != "" {
		args = append(args, filters.GameVersion)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(game_versions)", next()))
	}
	args = append(args, filters.minDownloads())
	clauses = append(clauses, fmt.Sprintf("downloads >= $%d", next()))
	if len(filters.AnyOfCapabilities) > 0 {
		args = append(args, pq.Array(filters.AnyOfCapabilities))
		clauses = append(clauses, fmt.Sprintf("capabilities && $%d", next()))
	}

	return strings.Join(clauses, " AND "), args
}

// ModpackCandidate is one reference-modpack search hit.
type ModpackCandidate struct {
	Modpack models.Modpack
	Rank    int
}

// ModpackVectorSearch returns the top-k reference modpacks by cosine
// similarity, used by the Architecture Planner's reference lookup (§4.G.1).
func (s *Store) ModpackVectorSearch(ctx context.Context, qEmbedding []float32, k int) ([]ModpackCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, title, description, mc_versions, loaders, architecture,
		       downloads, followers, embedding
		FROM modpacks`)
	if err != nil {
		return nil, fmt.Errorf("store: modpack vector search: %w", err)
	}
	defer rows.Close()

	type scored struct {
		pack  models.Modpack
		score float64
	}
	var all []scored
	for rows.Next() {
		var p models.Modpack
		var mcVersions, loaders pq.StringArray
		var embedding pq.Float64Array
		var architectureJSON []byte
		if err := rows.Scan(&p.SourceID, &p.Title, &p.Description, &mcVersions, &loaders,
			&architectureJSON, &p.Downloads, &p.Followers, &embedding); err != nil {
			return nil, fmt.Errorf("store: scan modpack: %w", err)
		}
		p.MCVersions = []string(mcVersions)
		p.Loaders = []string(loaders)
		if len(architectureJSON) > 0 {
			_ = json.Unmarshal(architectureJSON, &p.Architecture)
		}
		p.Embedding = make([]float32, len(embedding))
		for i, v := range embedding {
			p.Embedding[i] = float32(v)
		}
		all = append(all, scored{pack: p, score: embedder.CosineSimilarity(qEmbedding, p.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].score > all[j-1].score; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if k > len(all) {
		k = len(all)
	}
	out := make([]ModpackCandidate, k)
	for i := 0; i < k; i++ {
		out[i] = ModpackCandidate{Modpack: all[i].pack, Rank: i + 1}
	}
	return out, nil
}

// GetUser fetches the Quota Gate's view of a user (§4.M), satisfying
// quota.Store.
func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	var lastRequestDate sql.NullTime
	var customLimitsJSON []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT id, subscription_tier, daily_requests_used, monthly_requests_used,
		       ai_tokens_used, last_request_date, custom_limits
		FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &u.SubscriptionTier, &u.Counters.DailyRequestsUsed, &u.Counters.MonthlyRequestsUsed,
		&u.Counters.AITokensUsed, &lastRequestDate, &customLimitsJSON)
	if err != nil {
		return models.User{}, fmt.Errorf("store: get user: %w", err)
	}
	if lastRequestDate.Valid {
		u.LastRequestDate = lastRequestDate.Time
	}
	if len(customLimitsJSON) > 0 {
		var cl models.CustomLimits
		if err := json.Unmarshal(customLimitsJSON, &cl); err == nil {
			u.CustomLimits = &cl
		}
	}
	return u, nil
}

// UpdateCounters performs the conditional (compare-and-swap by date)
// reset-then-increment the Quota Gate needs (§4.M step 2, §5 "no lost
// resets across midnight"). The CASE expressions recompute the rollover
// inside the same statement the increment happens in, so two concurrent
// requests racing across midnight both see a consistent reset.
func (s *Store) UpdateCounters(ctx context.Context, userID string, now time.Time, tokensUsed int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			daily_requests_used = CASE
				WHEN last_request_date IS DISTINCT FROM $2::date THEN 1
				ELSE daily_requests_used + 1
			END,
			monthly_requests_used = CASE
				WHEN date_trunc('month', last_request_date) IS DISTINCT FROM date_trunc('month', $2::date) THEN 1
				ELSE monthly_requests_used + 1
			END,
			ai_tokens_used = CASE
				WHEN date_trunc('month', last_request_date) IS DISTINCT FROM date_trunc('month', $2::date) THEN $3
				ELSE ai_tokens_used + $3
			END,
			last_request_date = $2::date,
			updated_at = now()
		WHERE id = $1`, userID, now, tokensUsed)
	if err != nil {
		return fmt.Errorf("store: update counters: %w", err)
	}
	return nil
}

// RecordCrashSession appends an immutable crash-analysis record (§4.L.7).
func (s *Store) RecordCrashSession(ctx context.Context, session models.CrashSession) error {
	boardSnapshot, err := json.Marshal(session.BoardStateSnapshot)
	if err != nil {
		return fmt.Errorf("store: marshal board snapshot: %w", err)
	}
	patched, err := json.Marshal(session.PatchedBoardState)
	if err != nil {
		return fmt.Errorf("store: marshal patched board: %w", err)
	}
	suggestions, err := json.Marshal(session.Suggestions)
	if err != nil {
		return fmt.Errorf("store: marshal suggestions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO crash_sessions (id, user_id, crash_log_sanitized, board_state_snapshot,
			root_cause, error_kind, confidence, suggestions, warnings, patched_board_state,
			token_usage, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		session.ID, session.UserID, session.CrashLogSanitized, boardSnapshot,
		session.RootCause, string(session.ErrorKind), session.Confidence, suggestions,
		pq.Array(session.Warnings), patched, session.TokenUsage, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: record crash session: %w", err)
	}
	return nil
}

// RecordBoardBuild appends a board-build record for /api/feedback lookups.
func (s *Store) RecordBoardBuild(ctx context.Context, buildID, projectID, userID string, board models.BoardState, summary, explanation string) error {
	boardJSON, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("store: marshal board state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO board_builds (id, project_id, user_id, board_state, summary, explanation, created_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())`, buildID, projectID, userID, boardJSON, summary, explanation)
	if err != nil {
		return fmt.Errorf("store: record board build: %w", err)
	}
	return nil
}

// RecordSortFeedback records auto-sort categorization feedback, idempotent
// by (build_id, user_id) per §6 /api/feedback/categorization.
func (s *Store) RecordSortFeedback(ctx context.Context, id, buildID, userID string, modToCategory map[string]string, accepted bool, comment string) error {
	mapping, err := json.Marshal(modToCategory)
	if err != nil {
		return fmt.Errorf("store: marshal mod_to_category: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sort_session_feedback (id, build_id, user_id, mod_to_category, accepted, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())
		ON CONFLICT (build_id, user_id) DO UPDATE SET
			mod_to_category = EXCLUDED.mod_to_category,
			accepted = EXCLUDED.accepted,
			comment = EXCLUDED.comment`,
		id, buildID, userID, mapping, accepted, comment)
	if err != nil {
		return fmt.Errorf("store: record sort feedback: %w", err)
	}
	return nil
}

// RecordBuildFeedback records build-quality feedback, idempotent by
// (build_id, user_id) per §6 /api/feedback.
func (s *Store) RecordBuildFeedback(ctx context.Context, id, buildID, userID string, accepted bool, comment string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_build_feedback (id, build_id, user_id, accepted, comment, created_at)
		VALUES ($1,$2,$3,$4,$5, now())
		ON CONFLICT (build_id, user_id) DO UPDATE SET
			accepted = EXCLUDED.accepted,
			comment = EXCLUDED.comment`,
		id, buildID, userID, accepted, comment)
	if err != nil {
		return fmt.Errorf("store: record build feedback: %w", err)
	}
	return nil
}

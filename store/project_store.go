package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// maxUpsertRetries bounds the optimistic retry loop when concurrent upserts
// race on the same scenario id.
const maxUpsertRetries = 3

// ProjectStore handles persistence of projects and the fan-out read that
// assembles a project with all of its discovery artifacts.
type ProjectStore struct {
	db          *sql.DB
	gaps        *GapStore
	conflicts   *ConflictStore
	ambiguities *AmbiguityStore
	questions   *QuestionStore
	documents   *DocumentStore
}

// NewProjectStore creates a new project store.
func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{
		db:          db,
		gaps:        NewGapStore(db),
		conflicts:   NewConflictStore(db),
		ambiguities: NewAmbiguityStore(db),
		questions:   NewQuestionStore(db),
		documents:   NewDocumentStore(db),
	}
}

// UpsertProjectParams carries the full field set for an upsert. Upsert has
// overwrite semantics: every field here replaces the stored value.
type UpsertProjectParams struct {
	ScenarioID       string        `json:"scenario_id"`
	Name             string        `json:"name"`
	Confidence       float64       `json:"confidence"`
	GapsCount        int           `json:"gaps_count"`
	ConflictsCount   int           `json:"conflicts_count"`
	AmbiguitiesCount int           `json:"ambiguities_count"`
	DocumentsCount   int           `json:"documents_count"`
	Status           ProjectStatus `json:"status"`
}

// Validate rejects payloads that fail shape constraints before any write.
func (p UpsertProjectParams) Validate() error {
	if p.ScenarioID == "" {
		return errors.NewInvalidRequestf("scenario_id cannot be empty")
	}
	if p.Name == "" {
		return errors.NewInvalidRequestf("name cannot be empty")
	}
	if !p.Status.IsValid() {
		return errors.NewInvalidRequestf("invalid project status %q", p.Status)
	}
	if p.GapsCount < 0 || p.ConflictsCount < 0 || p.AmbiguitiesCount < 0 || p.DocumentsCount < 0 {
		return errors.NewInvalidRequestf("counts must be non-negative")
	}
	return nil
}

// UpsertByScenarioID inserts or fully overwrites the project keyed by the
// unique scenario id. Returns the project id and whether a new project was
// created. Two callers racing on an unseen scenario id cannot both create a
// project: the loser's INSERT fails the unique index and is retried as an
// update.
func (s *ProjectStore) UpsertByScenarioID(ctx context.Context, params UpsertProjectParams) (string, bool, error) {
	if err := params.Validate(); err != nil {
		return "", false, err
	}

	var lastErr error
	for attempt := 0; attempt < maxUpsertRetries; attempt++ {
		id, created, err := s.tryUpsert(ctx, params)
		if err == nil {
			return id, created, nil
		}
		if !isUniqueViolation(err) && !isBusy(err) {
			return "", false, err
		}
		// Another writer got there between our read and write: either our
		// INSERT hit the unique index, or the lock upgrade failed with
		// SQLITE_BUSY. The next attempt re-reads and takes the update path.
		lastErr = err
	}
	return "", false, errors.Wrapf(errors.ErrConflict,
		"upsert raced on scenario %s: %v", params.ScenarioID, lastErr)
}

func (s *ProjectStore) tryUpsert(ctx context.Context, params UpsertProjectParams) (string, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, errors.Wrap(err, "begin upsert tx")
	}
	defer tx.Rollback()

	now := toMillis(time.Now())

	var existingID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM projects WHERE scenario_id = ?", params.ScenarioID,
	).Scan(&existingID)

	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE projects SET
				name = ?, confidence = ?,
				gaps_count = ?, conflicts_count = ?, ambiguities_count = ?, documents_count = ?,
				status = ?, last_updated = ?
			WHERE id = ?`,
			params.Name, params.Confidence,
			params.GapsCount, params.ConflictsCount, params.AmbiguitiesCount, params.DocumentsCount,
			params.Status, now, existingID,
		)
		if err != nil {
			return "", false, errors.Wrap(err, "update project")
		}
		if err := tx.Commit(); err != nil {
			return "", false, errors.Wrap(err, "commit upsert")
		}
		return existingID, false, nil

	case errors.Is(err, sql.ErrNoRows):
		id := uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO projects (
				id, name, scenario_id, confidence,
				gaps_count, conflicts_count, ambiguities_count, documents_count,
				last_updated, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, params.Name, params.ScenarioID, params.Confidence,
			params.GapsCount, params.ConflictsCount, params.AmbiguitiesCount, params.DocumentsCount,
			now, params.Status,
		)
		if err != nil {
			return "", false, err
		}
		if err := tx.Commit(); err != nil {
			return "", false, errors.Wrap(err, "commit upsert")
		}
		return id, true, nil

	default:
		return "", false, errors.Wrap(err, "look up project by scenario id")
	}
}

// UpdateStatus sets the project status and advances last_updated.
func (s *ProjectStore) UpdateStatus(ctx context.Context, projectID string, status ProjectStatus) error {
	if !status.IsValid() {
		return errors.NewInvalidRequestf("invalid project status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE projects SET status = ?, last_updated = ? WHERE id = ?",
		status, toMillis(time.Now()), projectID,
	)
	if err != nil {
		return errors.Wrap(err, "update project status")
	}
	return requireRowAffected(result, "project", projectID)
}

// UpdateConfidence sets the confidence score and advances last_updated.
func (s *ProjectStore) UpdateConfidence(ctx context.Context, projectID string, confidence float64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE projects SET confidence = ?, last_updated = ? WHERE id = ?",
		confidence, toMillis(time.Now()), projectID,
	)
	if err != nil {
		return errors.Wrap(err, "update project confidence")
	}
	return requireRowAffected(result, "project", projectID)
}

// CountPatch is a partial update of the denormalized child counters. Nil
// fields are left untouched. The store trusts the supplied values; it does
// not verify them against live child rows (use RecountChildren for repair).
type CountPatch struct {
	Gaps        *int `json:"gaps_count,omitempty"`
	Conflicts   *int `json:"conflicts_count,omitempty"`
	Ambiguities *int `json:"ambiguities_count,omitempty"`
	Documents   *int `json:"documents_count,omitempty"`
}

// UpdateCounts patches only the supplied counters. last_updated advances even
// when the patch is empty.
func (s *ProjectStore) UpdateCounts(ctx context.Context, projectID string, patch CountPatch) error {
	set := "last_updated = ?"
	args := []interface{}{toMillis(time.Now())}

	if patch.Gaps != nil {
		if *patch.Gaps < 0 {
			return errors.NewInvalidRequestf("gaps_count must be non-negative")
		}
		set += ", gaps_count = ?"
		args = append(args, *patch.Gaps)
	}
	if patch.Conflicts != nil {
		if *patch.Conflicts < 0 {
			return errors.NewInvalidRequestf("conflicts_count must be non-negative")
		}
		set += ", conflicts_count = ?"
		args = append(args, *patch.Conflicts)
	}
	if patch.Ambiguities != nil {
		if *patch.Ambiguities < 0 {
			return errors.NewInvalidRequestf("ambiguities_count must be non-negative")
		}
		set += ", ambiguities_count = ?"
		args = append(args, *patch.Ambiguities)
	}
	if patch.Documents != nil {
		if *patch.Documents < 0 {
			return errors.NewInvalidRequestf("documents_count must be non-negative")
		}
		set += ", documents_count = ?"
		args = append(args, *patch.Documents)
	}

	args = append(args, projectID)
	result, err := s.db.ExecContext(ctx, "UPDATE projects SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return errors.Wrap(err, "update project counts")
	}
	return requireRowAffected(result, "project", projectID)
}

// RecountChildren recomputes the denormalized counters from the live child
// rows and patches the project. This is the repair path for drifted counters;
// the steady state remains caller-driven UpdateCounts.
func (s *ProjectStore) RecountChildren(ctx context.Context, projectID string) (*Project, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET
			gaps_count        = (SELECT COUNT(*) FROM gaps WHERE project_id = projects.id),
			conflicts_count   = (SELECT COUNT(*) FROM conflicts WHERE project_id = projects.id),
			ambiguities_count = (SELECT COUNT(*) FROM ambiguities WHERE project_id = projects.id),
			documents_count   = (SELECT COUNT(*) FROM documents WHERE project_id = projects.id),
			last_updated = ?
		WHERE id = ?`,
		toMillis(time.Now()), projectID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "recount project children")
	}
	if err := requireRowAffected(result, "project", projectID); err != nil {
		return nil, err
	}
	return s.Get(ctx, projectID)
}

// Get retrieves a project by id. Returns (nil, nil) when the project does
// not exist; reads soft-miss rather than error.
func (s *ProjectStore) Get(ctx context.Context, projectID string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, scenario_id, confidence,
			gaps_count, conflicts_count, ambiguities_count, documents_count,
			last_updated, status
		FROM projects WHERE id = ?`, projectID)
	return scanProject(row)
}

// GetByScenarioID retrieves a project by its external correlation key.
// Returns (nil, nil) on miss.
func (s *ProjectStore) GetByScenarioID(ctx context.Context, scenarioID string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, scenario_id, confidence,
			gaps_count, conflicts_count, ambiguities_count, documents_count,
			last_updated, status
		FROM projects WHERE scenario_id = ?`, scenarioID)
	return scanProject(row)
}

// ProjectDetails is a project merged with the full set of its discovery
// artifacts. Events and deliverables are read through their own stores.
type ProjectDetails struct {
	Project
	Gaps        []*Gap       `json:"gaps"`
	Conflicts   []*Conflict  `json:"conflicts"`
	Ambiguities []*Ambiguity `json:"ambiguities"`
	Questions   []*Question  `json:"questions"`
	Documents   []*Document  `json:"documents"`
}

// GetDetails performs the fan-out read for a project. Returns (nil, nil)
// when the project does not exist.
func (s *ProjectStore) GetDetails(ctx context.Context, projectID string) (*ProjectDetails, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	details := &ProjectDetails{Project: *project}

	if details.Gaps, err = s.gaps.ListByProject(ctx, projectID, nil); err != nil {
		return nil, err
	}
	if details.Conflicts, err = s.conflicts.ListByProject(ctx, projectID, nil); err != nil {
		return nil, err
	}
	if details.Ambiguities, err = s.ambiguities.ListByProject(ctx, projectID, nil); err != nil {
		return nil, err
	}
	if details.Questions, err = s.questions.ListByProject(ctx, projectID, nil); err != nil {
		return nil, err
	}
	if details.Documents, err = s.documents.ListByProject(ctx, projectID, nil); err != nil {
		return nil, err
	}

	return details, nil
}

// List returns projects ordered by last_updated descending. When a status
// filter is supplied the scan uses the status index instead; callers must
// not rely on recency ordering in that case.
func (s *ProjectStore) List(ctx context.Context, status *ProjectStatus) ([]*Project, error) {
	query := `
		SELECT id, name, scenario_id, confidence,
			gaps_count, conflicts_count, ambiguities_count, documents_count,
			last_updated, status
		FROM projects`
	var args []interface{}
	if status != nil {
		if !status.IsValid() {
			return nil, errors.NewInvalidRequestf("invalid project status %q", *status)
		}
		query += " WHERE status = ?"
		args = append(args, *status)
	} else {
		query += " ORDER BY last_updated DESC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProjectRows(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var lastUpdated int64
	err := row.Scan(
		&p.ID, &p.Name, &p.ScenarioID, &p.Confidence,
		&p.GapsCount, &p.ConflictsCount, &p.AmbiguitiesCount, &p.DocumentsCount,
		&lastUpdated, &p.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan project")
	}
	p.LastUpdated = fromMillis(lastUpdated)
	return &p, nil
}

func scanProjectRows(rows *sql.Rows) (*Project, error) {
	var p Project
	var lastUpdated int64
	err := rows.Scan(
		&p.ID, &p.Name, &p.ScenarioID, &p.Confidence,
		&p.GapsCount, &p.ConflictsCount, &p.AmbiguitiesCount, &p.DocumentsCount,
		&lastUpdated, &p.Status,
	)
	if err != nil {
		return nil, errors.Wrap(err, "scan project")
	}
	p.LastUpdated = fromMillis(lastUpdated)
	return &p, nil
}

// requireRowAffected converts a zero-row UPDATE or DELETE into a not-found
// error. Patching a missing id fails loudly instead of silently no-opping.
func requireRowAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.NewNotFoundf("%s %s", kind, id)
	}
	return nil
}

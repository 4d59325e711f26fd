package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// ConflictStore handles persistence of conflicts.
type ConflictStore struct {
	db *sql.DB
}

// NewConflictStore creates a new conflict store.
func NewConflictStore(db *sql.DB) *ConflictStore {
	return &ConflictStore{db: db}
}

// ConflictInput is the payload for one conflict.
type ConflictInput struct {
	Category              string         `json:"category"`
	Description           string         `json:"description"`
	Impact                Impact         `json:"impact"`
	Priority              Priority       `json:"priority"`
	Status                ConflictStatus `json:"status"`
	IdentifiedDate        time.Time      `json:"identified_date"`
	ConflictingStatements []string       `json:"conflicting_statements"`
	Sources               []string       `json:"sources"`
	Resolution            string         `json:"resolution,omitempty"`
}

// Validate rejects malformed payloads before any write.
func (in ConflictInput) Validate() error {
	if in.Description == "" {
		return errors.NewInvalidRequestf("conflict description cannot be empty")
	}
	if !in.Impact.IsValid() {
		return errors.NewInvalidRequestf("invalid conflict impact %q", in.Impact)
	}
	if !in.Priority.IsValid() {
		return errors.NewInvalidRequestf("invalid conflict priority %q", in.Priority)
	}
	if !in.Status.IsValid() {
		return errors.NewInvalidRequestf("invalid conflict status %q", in.Status)
	}
	return nil
}

// Create inserts a single conflict and returns its id.
func (s *ConflictStore) Create(ctx context.Context, projectID string, input ConflictInput) (string, error) {
	ids, err := s.SyncAll(ctx, projectID, []ConflictInput{input})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// SyncAll inserts every item as a new conflict of the project, in input
// order. Additive: existing conflicts are left untouched.
func (s *ConflictStore) SyncAll(ctx context.Context, projectID string, items []ConflictInput) ([]string, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin conflict sync tx")
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(items))
	for _, item := range items {
		statementsJSON, err := json.Marshal(orEmpty(item.ConflictingStatements))
		if err != nil {
			return nil, errors.Wrap(err, "marshal conflicting statements")
		}
		sourcesJSON, err := json.Marshal(orEmpty(item.Sources))
		if err != nil {
			return nil, errors.Wrap(err, "marshal sources")
		}

		id := uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conflicts (
				id, project_id, category, description, impact, priority,
				status, identified_date, conflicting_statements, sources, resolution
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, item.Category, item.Description, item.Impact, item.Priority,
			item.Status, toMillis(item.IdentifiedDate),
			string(statementsJSON), string(sourcesJSON), nullableString(item.Resolution),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, errors.NewNotFoundf("project %s", projectID)
			}
			return nil, errors.Wrap(err, "insert conflict")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit conflict sync")
	}
	return ids, nil
}

// UpdateStatus patches the status unconditionally.
func (s *ConflictStore) UpdateStatus(ctx context.Context, conflictID string, status ConflictStatus) error {
	if !status.IsValid() {
		return errors.NewInvalidRequestf("invalid conflict status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE conflicts SET status = ? WHERE id = ?", status, conflictID)
	if err != nil {
		return errors.Wrap(err, "update conflict status")
	}
	return requireRowAffected(result, "conflict", conflictID)
}

// Resolve sets the resolution text and forces status to resolved in a single
// write, so readers never observe one without the other.
func (s *ConflictStore) Resolve(ctx context.Context, conflictID, resolution string) error {
	if resolution == "" {
		return errors.NewInvalidRequestf("resolution cannot be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE conflicts SET resolution = ?, status = ? WHERE id = ?",
		resolution, ConflictStatusResolved, conflictID)
	if err != nil {
		return errors.Wrap(err, "resolve conflict")
	}
	return requireRowAffected(result, "conflict", conflictID)
}

// GetByID retrieves a conflict by id. Returns (nil, nil) on miss.
func (s *ConflictStore) GetByID(ctx context.Context, conflictID string) (*Conflict, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, category, description, impact, priority,
			status, identified_date, conflicting_statements, sources, resolution
		FROM conflicts WHERE id = ?`, conflictID)

	c, err := scanConflict(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListByProject returns the project's conflicts, optionally filtered by status.
func (s *ConflictStore) ListByProject(ctx context.Context, projectID string, status *ConflictStatus) ([]*Conflict, error) {
	query := `
		SELECT id, project_id, category, description, impact, priority,
			status, identified_date, conflicting_statements, sources, resolution
		FROM conflicts WHERE project_id = ?`
	args := []interface{}{projectID}
	if status != nil {
		if !status.IsValid() {
			return nil, errors.NewInvalidRequestf("invalid conflict status %q", *status)
		}
		query += " AND status = ?"
		args = append(args, *status)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list conflicts")
	}
	defer rows.Close()

	var conflicts []*Conflict
	for rows.Next() {
		c, err := scanConflict(rows.Scan)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func scanConflict(scan func(...interface{}) error) (*Conflict, error) {
	var c Conflict
	var identifiedDate int64
	var statementsJSON, sourcesJSON string
	var resolution sql.NullString

	err := scan(
		&c.ID, &c.ProjectID, &c.Category, &c.Description, &c.Impact, &c.Priority,
		&c.Status, &identifiedDate, &statementsJSON, &sourcesJSON, &resolution,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan conflict")
	}

	c.IdentifiedDate = fromMillis(identifiedDate)
	if err := json.Unmarshal([]byte(statementsJSON), &c.ConflictingStatements); err != nil {
		return nil, errors.Wrapf(err, "unmarshal conflicting statements for conflict %s", c.ID)
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &c.Sources); err != nil {
		return nil, errors.Wrapf(err, "unmarshal sources for conflict %s", c.ID)
	}
	if resolution.Valid {
		c.Resolution = resolution.String
	}
	return &c, nil
}

// orEmpty keeps nil slices serializing as [] rather than null.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

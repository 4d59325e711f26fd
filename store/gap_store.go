package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// GapStore handles persistence of gaps.
type GapStore struct {
	db *sql.DB
}

// NewGapStore creates a new gap store.
func NewGapStore(db *sql.DB) *GapStore {
	return &GapStore{db: db}
}

// GapInput is the payload for one gap in a sync batch.
type GapInput struct {
	Category          string    `json:"category"`
	Description       string    `json:"description"`
	Impact            Impact    `json:"impact"`
	Priority          Priority  `json:"priority"`
	Status            GapStatus `json:"status"`
	IdentifiedDate    time.Time `json:"identified_date"`
	SuggestedQuestion string    `json:"suggested_question,omitempty"`
}

// Validate rejects malformed payloads before any write.
func (in GapInput) Validate() error {
	if in.Description == "" {
		return errors.NewInvalidRequestf("gap description cannot be empty")
	}
	if !in.Impact.IsValid() {
		return errors.NewInvalidRequestf("invalid gap impact %q", in.Impact)
	}
	if !in.Priority.IsValid() {
		return errors.NewInvalidRequestf("invalid gap priority %q", in.Priority)
	}
	if !in.Status.IsValid() {
		return errors.NewInvalidRequestf("invalid gap status %q", in.Status)
	}
	return nil
}

// SyncAll inserts every item as a new gap of the project, in input order.
// Despite the name this is additive: existing gaps are left untouched.
// Returns the assigned ids in input order.
func (s *GapStore) SyncAll(ctx context.Context, projectID string, items []GapInput) ([]string, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin gap sync tx")
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(items))
	for _, item := range items {
		id := uuid.New().String()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gaps (
				id, project_id, category, description, impact, priority,
				status, identified_date, suggested_question
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, item.Category, item.Description, item.Impact, item.Priority,
			item.Status, toMillis(item.IdentifiedDate), nullableString(item.SuggestedQuestion),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, errors.NewNotFoundf("project %s", projectID)
			}
			return nil, errors.Wrap(err, "insert gap")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit gap sync")
	}
	return ids, nil
}

// UpdateStatus patches the status unconditionally; there is no transition
// table, any valid enum member is accepted.
func (s *GapStore) UpdateStatus(ctx context.Context, gapID string, status GapStatus) error {
	if !status.IsValid() {
		return errors.NewInvalidRequestf("invalid gap status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE gaps SET status = ? WHERE id = ?", status, gapID)
	if err != nil {
		return errors.Wrap(err, "update gap status")
	}
	return requireRowAffected(result, "gap", gapID)
}

// GetByID retrieves a gap by id. Returns (nil, nil) on miss.
func (s *GapStore) GetByID(ctx context.Context, gapID string) (*Gap, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, category, description, impact, priority,
			status, identified_date, suggested_question
		FROM gaps WHERE id = ?`, gapID)

	g, err := scanGap(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// ListByProject returns the project's gaps, optionally filtered by status.
func (s *GapStore) ListByProject(ctx context.Context, projectID string, status *GapStatus) ([]*Gap, error) {
	query := `
		SELECT id, project_id, category, description, impact, priority,
			status, identified_date, suggested_question
		FROM gaps WHERE project_id = ?`
	args := []interface{}{projectID}
	if status != nil {
		if !status.IsValid() {
			return nil, errors.NewInvalidRequestf("invalid gap status %q", *status)
		}
		query += " AND status = ?"
		args = append(args, *status)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list gaps")
	}
	defer rows.Close()

	var gaps []*Gap
	for rows.Next() {
		g, err := scanGap(rows.Scan)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}

func scanGap(scan func(...interface{}) error) (*Gap, error) {
	var g Gap
	var identifiedDate int64
	var suggestedQuestion sql.NullString

	err := scan(
		&g.ID, &g.ProjectID, &g.Category, &g.Description, &g.Impact, &g.Priority,
		&g.Status, &identifiedDate, &suggestedQuestion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan gap")
	}

	g.IdentifiedDate = fromMillis(identifiedDate)
	if suggestedQuestion.Valid {
		g.SuggestedQuestion = suggestedQuestion.String
	}
	return &g, nil
}

// nullableString maps "" to NULL for optional text columns.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

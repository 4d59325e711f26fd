package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// AmbiguityStore handles persistence of ambiguities.
type AmbiguityStore struct {
	db *sql.DB
}

// NewAmbiguityStore creates a new ambiguity store.
func NewAmbiguityStore(db *sql.DB) *AmbiguityStore {
	return &AmbiguityStore{db: db}
}

// AmbiguityInput is the payload for one ambiguity.
type AmbiguityInput struct {
	Category            string          `json:"category"`
	Description         string          `json:"description"`
	Impact              Impact          `json:"impact"`
	ClarificationNeeded string          `json:"clarification_needed"`
	Status              AmbiguityStatus `json:"status"`
	IdentifiedDate      time.Time       `json:"identified_date"`
	Context             string          `json:"context"`
}

// Validate rejects malformed payloads before any write.
func (in AmbiguityInput) Validate() error {
	if in.Description == "" {
		return errors.NewInvalidRequestf("ambiguity description cannot be empty")
	}
	if !in.Impact.IsValid() {
		return errors.NewInvalidRequestf("invalid ambiguity impact %q", in.Impact)
	}
	if !in.Status.IsValid() {
		return errors.NewInvalidRequestf("invalid ambiguity status %q", in.Status)
	}
	return nil
}

// SyncAll inserts every item as a new ambiguity of the project, in input
// order. Additive: existing ambiguities are left untouched.
func (s *AmbiguityStore) SyncAll(ctx context.Context, projectID string, items []AmbiguityInput) ([]string, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin ambiguity sync tx")
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(items))
	for _, item := range items {
		id := uuid.New().String()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ambiguities (
				id, project_id, category, description, impact,
				clarification_needed, status, identified_date, context
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, item.Category, item.Description, item.Impact,
			item.ClarificationNeeded, item.Status, toMillis(item.IdentifiedDate), item.Context,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, errors.NewNotFoundf("project %s", projectID)
			}
			return nil, errors.Wrap(err, "insert ambiguity")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit ambiguity sync")
	}
	return ids, nil
}

// UpdateStatus patches the status unconditionally.
func (s *AmbiguityStore) UpdateStatus(ctx context.Context, ambiguityID string, status AmbiguityStatus) error {
	if !status.IsValid() {
		return errors.NewInvalidRequestf("invalid ambiguity status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE ambiguities SET status = ? WHERE id = ?", status, ambiguityID)
	if err != nil {
		return errors.Wrap(err, "update ambiguity status")
	}
	return requireRowAffected(result, "ambiguity", ambiguityID)
}

// Clarify records the clarification text and marks the ambiguity clarified
// in a single write.
func (s *AmbiguityStore) Clarify(ctx context.Context, ambiguityID, clarification string) error {
	if clarification == "" {
		return errors.NewInvalidRequestf("clarification cannot be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE ambiguities SET clarification = ?, status = ? WHERE id = ?",
		clarification, AmbiguityStatusClarified, ambiguityID)
	if err != nil {
		return errors.Wrap(err, "clarify ambiguity")
	}
	return requireRowAffected(result, "ambiguity", ambiguityID)
}

// GetByID retrieves an ambiguity by id. Returns (nil, nil) on miss.
func (s *AmbiguityStore) GetByID(ctx context.Context, ambiguityID string) (*Ambiguity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, category, description, impact,
			clarification_needed, clarification, status, identified_date, context
		FROM ambiguities WHERE id = ?`, ambiguityID)

	a, err := scanAmbiguity(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// ListByProject returns the project's ambiguities, optionally filtered by status.
func (s *AmbiguityStore) ListByProject(ctx context.Context, projectID string, status *AmbiguityStatus) ([]*Ambiguity, error) {
	query := `
		SELECT id, project_id, category, description, impact,
			clarification_needed, clarification, status, identified_date, context
		FROM ambiguities WHERE project_id = ?`
	args := []interface{}{projectID}
	if status != nil {
		if !status.IsValid() {
			return nil, errors.NewInvalidRequestf("invalid ambiguity status %q", *status)
		}
		query += " AND status = ?"
		args = append(args, *status)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list ambiguities")
	}
	defer rows.Close()

	var ambiguities []*Ambiguity
	for rows.Next() {
		a, err := scanAmbiguity(rows.Scan)
		if err != nil {
			return nil, err
		}
		ambiguities = append(ambiguities, a)
	}
	return ambiguities, rows.Err()
}

func scanAmbiguity(scan func(...interface{}) error) (*Ambiguity, error) {
	var a Ambiguity
	var identifiedDate int64
	var clarification sql.NullString

	err := scan(
		&a.ID, &a.ProjectID, &a.Category, &a.Description, &a.Impact,
		&a.ClarificationNeeded, &clarification, &a.Status, &identifiedDate, &a.Context,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan ambiguity")
	}

	a.IdentifiedDate = fromMillis(identifiedDate)
	if clarification.Valid {
		a.Clarification = clarification.String
	}
	return &a, nil
}

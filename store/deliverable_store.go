package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// DeliverableStore handles persistence of generated deliverables.
type DeliverableStore struct {
	db *sql.DB
}

// NewDeliverableStore creates a new deliverable store.
func NewDeliverableStore(db *sql.DB) *DeliverableStore {
	return &DeliverableStore{db: db}
}

// DeliverableInput is the payload for one deliverable. A zero GeneratedDate
// defaults to now.
type DeliverableInput struct {
	Name          string            `json:"name"`
	Type          DeliverableType   `json:"type"`
	GeneratedDate time.Time         `json:"generated_date"`
	Status        DeliverableStatus `json:"status"`
	FileType      string            `json:"file_type"`
	DownloadURL   string            `json:"download_url,omitempty"`
}

// Validate rejects malformed payloads before any write.
func (in DeliverableInput) Validate() error {
	if in.Name == "" {
		return errors.NewInvalidRequestf("deliverable name cannot be empty")
	}
	if !in.Type.IsValid() {
		return errors.NewInvalidRequestf("invalid deliverable type %q", in.Type)
	}
	if !in.Status.IsValid() {
		return errors.NewInvalidRequestf("invalid deliverable status %q", in.Status)
	}
	if in.FileType == "" {
		return errors.NewInvalidRequestf("deliverable file type cannot be empty")
	}
	return nil
}

// Create inserts a single deliverable and returns its id.
func (s *DeliverableStore) Create(ctx context.Context, projectID string, input DeliverableInput) (string, error) {
	ids, err := s.SyncAll(ctx, projectID, []DeliverableInput{input})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// SyncAll inserts every item as a new deliverable of the project, in input
// order. Additive: existing deliverables are left untouched.
func (s *DeliverableStore) SyncAll(ctx context.Context, projectID string, items []DeliverableInput) ([]string, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin deliverable sync tx")
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(items))
	for _, item := range items {
		generatedDate := item.GeneratedDate
		if generatedDate.IsZero() {
			generatedDate = time.Now()
		}

		id := uuid.New().String()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deliverables (
				id, project_id, name, type, generated_date, status, file_type, download_url
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, item.Name, item.Type, toMillis(generatedDate),
			item.Status, item.FileType, nullableString(item.DownloadURL),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, errors.NewNotFoundf("project %s", projectID)
			}
			return nil, errors.Wrap(err, "insert deliverable")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit deliverable sync")
	}
	return ids, nil
}

// UpdateStatus patches the status unconditionally.
func (s *DeliverableStore) UpdateStatus(ctx context.Context, deliverableID string, status DeliverableStatus) error {
	if !status.IsValid() {
		return errors.NewInvalidRequestf("invalid deliverable status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE deliverables SET status = ? WHERE id = ?", status, deliverableID)
	if err != nil {
		return errors.Wrap(err, "update deliverable status")
	}
	return requireRowAffected(result, "deliverable", deliverableID)
}

// GetByID retrieves a deliverable by id. Returns (nil, nil) on miss.
func (s *DeliverableStore) GetByID(ctx context.Context, deliverableID string) (*Deliverable, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, type, generated_date, status, file_type, download_url
		FROM deliverables WHERE id = ?`, deliverableID)

	d, err := scanDeliverable(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// ListByProject returns the project's deliverables, optionally filtered by status.
func (s *DeliverableStore) ListByProject(ctx context.Context, projectID string, status *DeliverableStatus) ([]*Deliverable, error) {
	query := `
		SELECT id, project_id, name, type, generated_date, status, file_type, download_url
		FROM deliverables WHERE project_id = ?`
	args := []interface{}{projectID}
	if status != nil {
		if !status.IsValid() {
			return nil, errors.NewInvalidRequestf("invalid deliverable status %q", *status)
		}
		query += " AND status = ?"
		args = append(args, *status)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list deliverables")
	}
	defer rows.Close()

	var deliverables []*Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows.Scan)
		if err != nil {
			return nil, err
		}
		deliverables = append(deliverables, d)
	}
	return deliverables, rows.Err()
}

func scanDeliverable(scan func(...interface{}) error) (*Deliverable, error) {
	var d Deliverable
	var generatedDate int64
	var downloadURL sql.NullString

	err := scan(
		&d.ID, &d.ProjectID, &d.Name, &d.Type, &generatedDate,
		&d.Status, &d.FileType, &downloadURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan deliverable")
	}

	d.GeneratedDate = fromMillis(generatedDate)
	if downloadURL.Valid {
		d.DownloadURL = downloadURL.String
	}
	return &d, nil
}

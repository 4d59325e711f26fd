package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// DocumentStore handles persistence of documents.
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore creates a new document store.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// DocumentInput is the payload for one document.
type DocumentInput struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	UploadDate    time.Time       `json:"upload_date"`
	Size          int64           `json:"size"`
	Status        DocumentStatus  `json:"status"`
	SourceLink    string          `json:"source_link,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	ExternalID    string          `json:"external_id,omitempty"`
	ExternalURL   string          `json:"external_url,omitempty"`
	IntegrationID string          `json:"integration_id,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	Source        DocumentSource  `json:"source"`
}

// Validate rejects malformed payloads before any write.
func (in DocumentInput) Validate() error {
	if in.Name == "" {
		return errors.NewInvalidRequestf("document name cannot be empty")
	}
	if !in.Status.IsValid() {
		return errors.NewInvalidRequestf("invalid document status %q", in.Status)
	}
	if !in.Source.IsValid() {
		return errors.NewInvalidRequestf("invalid document source %q", in.Source)
	}
	if in.Size < 0 {
		return errors.NewInvalidRequestf("document size must be non-negative")
	}
	return nil
}

// Create inserts a single document and returns its id.
func (s *DocumentStore) Create(ctx context.Context, projectID string, input DocumentInput) (string, error) {
	ids, err := s.SyncAll(ctx, projectID, []DocumentInput{input})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// SyncAll inserts every item as a new document of the project, in input
// order. Additive: existing documents are left untouched.
func (s *DocumentStore) SyncAll(ctx context.Context, projectID string, items []DocumentInput) ([]string, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin document sync tx")
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(items))
	for _, item := range items {
		var metadata sql.NullString
		if len(item.Metadata) > 0 {
			metadata = sql.NullString{String: string(item.Metadata), Valid: true}
		}

		id := uuid.New().String()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (
				id, project_id, name, type, upload_date, size, status,
				source_link, metadata, external_id, external_url, integration_id,
				summary, source
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, item.Name, item.Type, toMillis(item.UploadDate), item.Size, item.Status,
			nullableString(item.SourceLink), metadata,
			nullableString(item.ExternalID), nullableString(item.ExternalURL), nullableString(item.IntegrationID),
			nullableString(item.Summary), item.Source,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, errors.NewNotFoundf("project %s", projectID)
			}
			return nil, errors.Wrap(err, "insert document")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit document sync")
	}
	return ids, nil
}

// UpdateStatus patches the processing status unconditionally.
func (s *DocumentStore) UpdateStatus(ctx context.Context, documentID string, status DocumentStatus) error {
	if !status.IsValid() {
		return errors.NewInvalidRequestf("invalid document status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ? WHERE id = ?", status, documentID)
	if err != nil {
		return errors.Wrap(err, "update document status")
	}
	return requireRowAffected(result, "document", documentID)
}

// UpdateSummary patches the AI-generated summary. Called by the document
// processing pipeline; touches nothing else.
func (s *DocumentStore) UpdateSummary(ctx context.Context, documentID, summary string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE documents SET summary = ? WHERE id = ?", summary, documentID)
	if err != nil {
		return errors.Wrap(err, "update document summary")
	}
	return requireRowAffected(result, "document", documentID)
}

// Delete hard-deletes a document. Documents have no dependents, so there is
// no cascade. Deleting a missing id is a not-found error.
func (s *DocumentStore) Delete(ctx context.Context, documentID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return errors.Wrap(err, "delete document")
	}
	return requireRowAffected(result, "document", documentID)
}

// GetByID retrieves a document by id. Returns (nil, nil) on miss.
func (s *DocumentStore) GetByID(ctx context.Context, documentID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, type, upload_date, size, status,
			source_link, metadata, external_id, external_url, integration_id,
			summary, source
		FROM documents WHERE id = ?`, documentID)

	d, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// ListByProject returns the project's documents, optionally filtered by status.
func (s *DocumentStore) ListByProject(ctx context.Context, projectID string, status *DocumentStatus) ([]*Document, error) {
	query := `
		SELECT id, project_id, name, type, upload_date, size, status,
			source_link, metadata, external_id, external_url, integration_id,
			summary, source
		FROM documents WHERE project_id = ?`
	args := []interface{}{projectID}
	if status != nil {
		if !status.IsValid() {
			return nil, errors.NewInvalidRequestf("invalid document status %q", *status)
		}
		query += " AND status = ?"
		args = append(args, *status)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list documents")
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

func scanDocument(scan func(...interface{}) error) (*Document, error) {
	var d Document
	var uploadDate int64
	var sourceLink, metadata, externalID, externalURL, integrationID, summary sql.NullString

	err := scan(
		&d.ID, &d.ProjectID, &d.Name, &d.Type, &uploadDate, &d.Size, &d.Status,
		&sourceLink, &metadata, &externalID, &externalURL, &integrationID,
		&summary, &d.Source,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan document")
	}

	d.UploadDate = fromMillis(uploadDate)
	if sourceLink.Valid {
		d.SourceLink = sourceLink.String
	}
	if metadata.Valid {
		d.Metadata = json.RawMessage(metadata.String)
	}
	if externalID.Valid {
		d.ExternalID = externalID.String
	}
	if externalURL.Valid {
		d.ExternalURL = externalURL.String
	}
	if integrationID.Valid {
		d.IntegrationID = integrationID.String
	}
	if summary.Valid {
		d.Summary = summary.String
	}
	return &d, nil
}

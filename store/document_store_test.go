package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeworks/discovery/errors"
	dtest "github.com/scopeworks/discovery/internal/testing"
	"github.com/scopeworks/discovery/internal/util"
)

func TestDocumentCreateAndGet(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-doc"))
	require.NoError(t, err)

	documents := NewDocumentStore(db)
	id, err := documents.Create(ctx, projectID, DocumentInput{
		Name:       "requirements.docx",
		Type:       "docx",
		UploadDate: time.Now(),
		Size:       48123,
		Status:     DocumentStatusPending,
		Source:     DocumentSourceIntegration,
		ExternalID: "gdrive-abc123",
		Metadata:   json.RawMessage(`{"pages": 12}`),
	})
	require.NoError(t, err)

	document, err := documents.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, document)
	assert.Equal(t, "requirements.docx", document.Name)
	assert.Equal(t, int64(48123), document.Size)
	assert.Equal(t, DocumentSourceIntegration, document.Source)
	assert.Equal(t, "gdrive-abc123", document.ExternalID)
	assert.JSONEq(t, `{"pages": 12}`, string(document.Metadata))
	assert.Empty(t, document.Summary)
}

func TestDocumentUpdateSummary(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-summary"))
	require.NoError(t, err)

	documents := NewDocumentStore(db)
	id, err := documents.Create(ctx, projectID, DocumentInput{
		Name: "brief.pdf", Type: "pdf", UploadDate: time.Now(),
		Status: DocumentStatusProcessing, Source: DocumentSourceUpload,
	})
	require.NoError(t, err)

	require.NoError(t, documents.UpdateSummary(ctx, id, "12-page brief covering rollout phases"))

	document, err := documents.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "12-page brief covering rollout phases", document.Summary)
	// Summary patch leaves the processing status alone.
	assert.Equal(t, DocumentStatusProcessing, document.Status)

	err = documents.UpdateSummary(ctx, "no-such-document", "x")
	assert.True(t, errors.IsNotFound(err))
}

func TestDocumentDelete(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-docdelete"))
	require.NoError(t, err)

	documents := NewDocumentStore(db)
	id, err := documents.Create(ctx, projectID, DocumentInput{
		Name: "obsolete.txt", Type: "txt", UploadDate: time.Now(),
		Status: DocumentStatusProcessed, Source: DocumentSourceLocal,
	})
	require.NoError(t, err)

	require.NoError(t, documents.Delete(ctx, id))

	document, err := documents.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, document)

	// Deleting again is a not-found error, not a silent no-op.
	err = documents.Delete(ctx, id)
	assert.True(t, errors.IsNotFound(err))
}

func TestDocumentStatusFilter(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-docfilter"))
	require.NoError(t, err)

	documents := NewDocumentStore(db)
	_, err = documents.SyncAll(ctx, projectID, []DocumentInput{
		{Name: "a.pdf", Type: "pdf", UploadDate: time.Now(), Status: DocumentStatusPending, Source: DocumentSourceUpload},
		{Name: "b.pdf", Type: "pdf", UploadDate: time.Now(), Status: DocumentStatusProcessed, Source: DocumentSourceUpload},
	})
	require.NoError(t, err)

	processed, err := documents.ListByProject(ctx, projectID, util.Ptr(DocumentStatusProcessed))
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, "b.pdf", processed[0].Name)
}

func TestDocumentValidation(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-docvalid"))
	require.NoError(t, err)

	documents := NewDocumentStore(db)

	_, err = documents.Create(ctx, projectID, DocumentInput{
		Type: "pdf", UploadDate: time.Now(), Status: DocumentStatusPending, Source: DocumentSourceUpload,
	})
	assert.True(t, errors.IsInvalidRequest(err))

	_, err = documents.Create(ctx, projectID, DocumentInput{
		Name: "x.pdf", Type: "pdf", UploadDate: time.Now(), Status: DocumentStatusPending,
		Source: DocumentSourceUpload, Size: -5,
	})
	assert.True(t, errors.IsInvalidRequest(err))
}

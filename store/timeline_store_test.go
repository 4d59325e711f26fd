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
)

func TestTimelineAppend_DefaultsTimestamp(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-timeline"))
	require.NoError(t, err)

	timeline := NewTimelineStore(db)
	before := time.Now().Add(-time.Second)

	id, err := timeline.Append(ctx, projectID, EventDocumentAdded, "Document added: brief.pdf", time.Time{}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	events, err := timeline.ListByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.After(before))
}

func TestTimelineListByProject_NewestFirstWithStableTies(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-order"))
	require.NoError(t, err)

	timeline := NewTimelineStore(db)
	base := time.UnixMilli(1_700_000_000_000).UTC()

	// Inserted at timestamps 3, 1, 1, 2; the two ties share timestamp 1.
	_, err = timeline.Append(ctx, projectID, EventGapIdentified, "t3", base.Add(3*time.Second), nil)
	require.NoError(t, err)
	_, err = timeline.Append(ctx, projectID, EventGapIdentified, "t1-first", base.Add(time.Second), nil)
	require.NoError(t, err)
	_, err = timeline.Append(ctx, projectID, EventGapIdentified, "t1-second", base.Add(time.Second), nil)
	require.NoError(t, err)
	_, err = timeline.Append(ctx, projectID, EventGapIdentified, "t2", base.Add(2*time.Second), nil)
	require.NoError(t, err)

	events, err := timeline.ListByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, events, 4)

	// Newest first; ties keep insertion order.
	assert.Equal(t, "t3", events[0].Description)
	assert.Equal(t, "t2", events[1].Description)
	assert.Equal(t, "t1-first", events[2].Description)
	assert.Equal(t, "t1-second", events[3].Description)
}

func TestTimelineAppend_UnknownProjectIsNotFound(t *testing.T) {
	db := dtest.CreateTestDB(t)
	timeline := NewTimelineStore(db)

	_, err := timeline.Append(context.Background(), "no-such-project",
		EventProjectCreated, "orphan event", time.Time{}, nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestTimelineAppend_RejectsUnknownEventType(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-badtype"))
	require.NoError(t, err)

	_, err = NewTimelineStore(db).Append(ctx, projectID, "made_up_event", "x", time.Time{}, nil)
	assert.True(t, errors.IsInvalidRequest(err))
}

func TestTimelineAppend_MetadataRoundTrip(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-meta"))
	require.NoError(t, err)

	timeline := NewTimelineStore(db)
	_, err = timeline.Append(ctx, projectID, EventConfidenceUpdated, "confidence changed",
		time.Time{}, json.RawMessage(`{"from": 0.4, "to": 0.7}`))
	require.NoError(t, err)

	events, err := timeline.ListByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"from": 0.4, "to": 0.7}`, string(events[0].Metadata))
}

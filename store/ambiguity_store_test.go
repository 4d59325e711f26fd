package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeworks/discovery/errors"
	dtest "github.com/scopeworks/discovery/internal/testing"
)

func TestAmbiguityClarify_AtomicTransition(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-clarify"))
	require.NoError(t, err)

	ambiguities := NewAmbiguityStore(db)
	ids, err := ambiguities.SyncAll(ctx, projectID, []AmbiguityInput{
		{Category: "scope", Description: "\"real-time\" is undefined",
			Impact: ImpactHigh, ClarificationNeeded: "define acceptable staleness",
			Status: AmbiguityStatusOpen, IdentifiedDate: time.Now(),
			Context: "seen in section 2.3 of the brief"},
	})
	require.NoError(t, err)

	require.NoError(t, ambiguities.Clarify(ctx, ids[0], "staleness under 5 seconds"))

	ambiguity, err := ambiguities.GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, ambiguity)
	assert.Equal(t, "staleness under 5 seconds", ambiguity.Clarification)
	assert.Equal(t, AmbiguityStatusClarified, ambiguity.Status)
}

func TestAmbiguityClarify_Errors(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ambiguities := NewAmbiguityStore(db)

	err := ambiguities.Clarify(context.Background(), "no-such-ambiguity", "clear now")
	assert.True(t, errors.IsNotFound(err))
}

func TestAmbiguityUpdateStatus_Permissive(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-ambstatus"))
	require.NoError(t, err)

	ambiguities := NewAmbiguityStore(db)
	ids, err := ambiguities.SyncAll(ctx, projectID, []AmbiguityInput{
		{Description: "vague NFRs", Impact: ImpactMedium, ClarificationNeeded: "enumerate them",
			Status: AmbiguityStatusOpen, IdentifiedDate: time.Now(), Context: "brief"},
	})
	require.NoError(t, err)

	// Moving backwards from resolved to open is allowed.
	require.NoError(t, ambiguities.UpdateStatus(ctx, ids[0], AmbiguityStatusResolved))
	require.NoError(t, ambiguities.UpdateStatus(ctx, ids[0], AmbiguityStatusOpen))

	err = ambiguities.UpdateStatus(ctx, ids[0], "mooted")
	assert.True(t, errors.IsInvalidRequest(err))
}

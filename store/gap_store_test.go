package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeworks/discovery/errors"
	dtest "github.com/scopeworks/discovery/internal/testing"
	"github.com/scopeworks/discovery/internal/util"
)

func TestGapSyncAll_AdditiveAndOrdered(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projects := NewProjectStore(db)
	projectID, _, err := projects.UpsertByScenarioID(ctx, baseParams("scenario-gaps"))
	require.NoError(t, err)

	gaps := NewGapStore(db)
	now := time.Now()

	first, err := gaps.SyncAll(ctx, projectID, []GapInput{
		{Description: "no capacity estimate", Impact: ImpactHigh, Priority: PriorityHigh, Status: GapStatusOpen, IdentifiedDate: now},
		{Description: "missing auth story", Impact: ImpactMedium, Priority: PriorityMedium, Status: GapStatusOpen, IdentifiedDate: now},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.NotEqual(t, first[0], first[1])

	// A second sync appends; it never replaces.
	second, err := gaps.SyncAll(ctx, projectID, []GapInput{
		{Description: "no DR runbook", Impact: ImpactLow, Priority: PriorityLow, Status: GapStatusOpen, IdentifiedDate: now},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)

	all, err := gaps.ListByProject(ctx, projectID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGapSyncAll_UnknownProjectIsNotFound(t *testing.T) {
	db := dtest.CreateTestDB(t)
	gaps := NewGapStore(db)

	_, err := gaps.SyncAll(context.Background(), "no-such-project", []GapInput{
		{Description: "orphan", Impact: ImpactLow, Priority: PriorityLow, Status: GapStatusOpen, IdentifiedDate: time.Now()},
	})
	assert.True(t, errors.IsNotFound(err))
}

func TestGapSyncAll_EmptyBatch(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-empty"))
	require.NoError(t, err)

	ids, err := NewGapStore(db).SyncAll(ctx, projectID, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGapUpdateStatus(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projectID, _, err := NewProjectStore(db).UpsertByScenarioID(ctx, baseParams("scenario-gapstatus"))
	require.NoError(t, err)

	gaps := NewGapStore(db)
	ids, err := gaps.SyncAll(ctx, projectID, []GapInput{
		{Description: "gap", Impact: ImpactHigh, Priority: PriorityHigh, Status: GapStatusOpen, IdentifiedDate: time.Now()},
	})
	require.NoError(t, err)

	// Permissive transitions: any valid member, in any order.
	require.NoError(t, gaps.UpdateStatus(ctx, ids[0], GapStatusResolved))
	require.NoError(t, gaps.UpdateStatus(ctx, ids[0], GapStatusInProgress))

	gap, err := gaps.GetByID(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, gap)
	assert.Equal(t, GapStatusInProgress, gap.Status)

	err = gaps.UpdateStatus(ctx, ids[0], "closed-wontfix")
	assert.True(t, errors.IsInvalidRequest(err))

	err = gaps.UpdateStatus(ctx, "no-such-gap", GapStatusOpen)
	assert.True(t, errors.IsNotFound(err))
}

func TestGapListByProject_ScopedAndFiltered(t *testing.T) {
	db := dtest.CreateTestDB(t)
	ctx := context.Background()

	projects := NewProjectStore(db)
	projectA, _, err := projects.UpsertByScenarioID(ctx, baseParams("scenario-gap-a"))
	require.NoError(t, err)
	projectB, _, err := projects.UpsertByScenarioID(ctx, baseParams("scenario-gap-b"))
	require.NoError(t, err)

	gaps := NewGapStore(db)
	now := time.Now()
	_, err = gaps.SyncAll(ctx, projectA, []GapInput{
		{Description: "a-open", Impact: ImpactHigh, Priority: PriorityHigh, Status: GapStatusOpen, IdentifiedDate: now},
		{Description: "a-resolved", Impact: ImpactLow, Priority: PriorityLow, Status: GapStatusResolved, IdentifiedDate: now},
	})
	require.NoError(t, err)
	_, err = gaps.SyncAll(ctx, projectB, []GapInput{
		{Description: "b-open", Impact: ImpactMedium, Priority: PriorityMedium, Status: GapStatusOpen, IdentifiedDate: now},
	})
	require.NoError(t, err)

	// Listing is scoped to the requested project.
	aGaps, err := gaps.ListByProject(ctx, projectA, nil)
	require.NoError(t, err)
	assert.Len(t, aGaps, 2)

	open, err := gaps.ListByProject(ctx, projectA, util.Ptr(GapStatusOpen))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "a-open", open[0].Description)
}

func TestGapGetByID_Miss(t *testing.T) {
	db := dtest.CreateTestDB(t)

	gap, err := NewGapStore(db).GetByID(context.Background(), "no-such-gap")
	require.NoError(t, err)
	assert.Nil(t, gap)
}

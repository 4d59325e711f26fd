package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeworks/discovery/errors"
)

// Driver failures must surface as wrapped internal errors, never as the
// not-found or conflict taxonomy the HTTP layer maps to 4xx.

func TestUpdateStatus_DriverErrorIsNotMappedToNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE projects SET status").
		WillReturnError(assert.AnError)

	store := NewProjectStore(db)
	err = store.UpdateStatus(context.Background(), "some-id", ProjectStatusActive)
	require.Error(t, err)
	assert.False(t, errors.IsNotFound(err))
	assert.False(t, errors.IsInvalidRequest(err))
	assert.True(t, errors.Is(err, assert.AnError))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_RowsAffectedErrorIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE gaps SET status").
		WillReturnResult(sqlmock.NewErrorResult(assert.AnError))

	store := NewGapStore(db)
	err = store.UpdateStatus(context.Background(), "some-gap", GapStatusOpen)
	require.Error(t, err)
	assert.False(t, errors.IsNotFound(err))
	assert.True(t, errors.Is(err, assert.AnError))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProject_BeginFailureSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(assert.AnError)

	cascade := NewCascade(db, nil)
	_, err = cascade.DeleteProject(context.Background(), "some-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, assert.AnError))

	require.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/scopeworks/discovery/errors"
)

// childTables lists every table holding rows owned by a project, in the
// order the cascade deletes them. The project row itself goes last so the
// foreign keys stay satisfied throughout the transaction.
var childTables = []string{
	"gaps",
	"conflicts",
	"ambiguities",
	"questions",
	"documents",
	"context_events",
	"deliverables",
}

// CascadeResult reports what a cascade deletion removed.
type CascadeResult struct {
	ProjectDeleted bool             `json:"project_deleted"`
	Deleted        map[string]int64 `json:"deleted"`
}

// Total returns the number of child rows removed.
func (r *CascadeResult) Total() int64 {
	var total int64
	for _, n := range r.Deleted {
		total += n
	}
	return total
}

// Cascade coordinates project deletion: the project and every dependent row
// across all child kinds disappear as one transaction. The operation is
// idempotent; re-invoking it for an already-deleted project removes nothing
// and reports no error, so a caller can safely retry after a failure.
type Cascade struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewCascade creates a new cascade deletion coordinator.
func NewCascade(db *sql.DB, logger *zap.SugaredLogger) *Cascade {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cascade{db: db, logger: logger}
}

// DeleteProject removes the project subtree. Children are deleted first,
// then the project row, all inside a single transaction. After commit the
// coordinator verifies no orphan survived.
func (c *Cascade) DeleteProject(ctx context.Context, projectID string) (*CascadeResult, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin cascade tx")
	}
	defer tx.Rollback()

	result := &CascadeResult{Deleted: make(map[string]int64, len(childTables))}

	for _, table := range childTables {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE project_id = ?", projectID)
		if err != nil {
			return nil, errors.Wrapf(err, "cascade delete from %s", table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, errors.Wrapf(err, "rows affected for %s", table)
		}
		result.Deleted[table] = n
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", projectID)
	if err != nil {
		return nil, errors.Wrap(err, "cascade delete project")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "rows affected for project")
	}
	result.ProjectDeleted = n > 0

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit cascade")
	}

	if err := c.verifyNoOrphans(ctx, projectID); err != nil {
		return result, err
	}

	c.logger.Infow("Project cascade deleted",
		"project_id", projectID,
		"project_deleted", result.ProjectDeleted,
		"children_deleted", result.Total(),
	)
	return result, nil
}

// verifyNoOrphans confirms the cascade left no child rows behind. A nonzero
// count means a writer slipped a child in after the commit; the caller
// re-invokes DeleteProject to finish the job.
func (c *Cascade) verifyNoOrphans(ctx context.Context, projectID string) error {
	for _, table := range childTables {
		var count int64
		err := c.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+table+" WHERE project_id = ?", projectID,
		).Scan(&count)
		if err != nil {
			return errors.Wrapf(err, "verify %s orphans", table)
		}
		if count > 0 {
			c.logger.Warnw("Cascade left orphans, retry DeleteProject",
				"project_id", projectID,
				"table", table,
				"orphans", count,
			)
			return errors.Wrapf(errors.ErrConflict,
				"%d orphaned rows in %s for project %s", count, table, projectID)
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// QuestionStore handles persistence of questions.
type QuestionStore struct {
	db *sql.DB
}

// NewQuestionStore creates a new question store.
func NewQuestionStore(db *sql.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

// QuestionInput is the payload for one question.
type QuestionInput struct {
	Question     string         `json:"question"`
	Category     string         `json:"category"`
	Priority     Priority       `json:"priority"`
	Status       QuestionStatus `json:"status"`
	AskedDate    time.Time      `json:"asked_date"`
	Answer       string         `json:"answer,omitempty"`
	AnsweredDate *time.Time     `json:"answered_date,omitempty"`
	WhyItMatters string         `json:"why_it_matters,omitempty"`
}

// Validate rejects malformed payloads before any write.
func (in QuestionInput) Validate() error {
	if in.Question == "" {
		return errors.NewInvalidRequestf("question text cannot be empty")
	}
	if !in.Priority.IsValid() {
		return errors.NewInvalidRequestf("invalid question priority %q", in.Priority)
	}
	if !in.Status.IsValid() {
		return errors.NewInvalidRequestf("invalid question status %q", in.Status)
	}
	return nil
}

// SyncAll inserts every item as a new question of the project, in input
// order. Additive: existing questions are left untouched.
func (s *QuestionStore) SyncAll(ctx context.Context, projectID string, items []QuestionInput) ([]string, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin question sync tx")
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(items))
	for _, item := range items {
		var answeredDate sql.NullInt64
		if item.AnsweredDate != nil {
			answeredDate = sql.NullInt64{Int64: toMillis(*item.AnsweredDate), Valid: true}
		}

		id := uuid.New().String()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO questions (
				id, project_id, question, category, priority,
				status, asked_date, answer, answered_date, why_it_matters
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, item.Question, item.Category, item.Priority,
			item.Status, toMillis(item.AskedDate),
			nullableString(item.Answer), answeredDate, nullableString(item.WhyItMatters),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, errors.NewNotFoundf("project %s", projectID)
			}
			return nil, errors.Wrap(err, "insert question")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit question sync")
	}
	return ids, nil
}

// UpdateStatus patches the status unconditionally.
func (s *QuestionStore) UpdateStatus(ctx context.Context, questionID string, status QuestionStatus) error {
	if !status.IsValid() {
		return errors.NewInvalidRequestf("invalid question status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE questions SET status = ? WHERE id = ?", status, questionID)
	if err != nil {
		return errors.Wrap(err, "update question status")
	}
	return requireRowAffected(result, "question", questionID)
}

// Answer records the answer text, stamps answered_date with now, and forces
// status to answered in a single write, so readers never observe a partial
// transition.
func (s *QuestionStore) Answer(ctx context.Context, questionID, answer string) error {
	if answer == "" {
		return errors.NewInvalidRequestf("answer cannot be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE questions SET answer = ?, answered_date = ?, status = ? WHERE id = ?",
		answer, toMillis(time.Now()), QuestionStatusAnswered, questionID)
	if err != nil {
		return errors.Wrap(err, "answer question")
	}
	return requireRowAffected(result, "question", questionID)
}

// GetByID retrieves a question by id. Returns (nil, nil) on miss.
func (s *QuestionStore) GetByID(ctx context.Context, questionID string) (*Question, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, question, category, priority,
			status, asked_date, answer, answered_date, why_it_matters
		FROM questions WHERE id = ?`, questionID)

	q, err := scanQuestion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

// ListByProject returns the project's questions, optionally filtered by status.
func (s *QuestionStore) ListByProject(ctx context.Context, projectID string, status *QuestionStatus) ([]*Question, error) {
	query := `
		SELECT id, project_id, question, category, priority,
			status, asked_date, answer, answered_date, why_it_matters
		FROM questions WHERE project_id = ?`
	args := []interface{}{projectID}
	if status != nil {
		if !status.IsValid() {
			return nil, errors.NewInvalidRequestf("invalid question status %q", *status)
		}
		query += " AND status = ?"
		args = append(args, *status)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list questions")
	}
	defer rows.Close()

	var questions []*Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanQuestion(scan func(...interface{}) error) (*Question, error) {
	var q Question
	var askedDate int64
	var answer, whyItMatters sql.NullString
	var answeredDate sql.NullInt64

	err := scan(
		&q.ID, &q.ProjectID, &q.Question, &q.Category, &q.Priority,
		&q.Status, &askedDate, &answer, &answeredDate, &whyItMatters,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan question")
	}

	q.AskedDate = fromMillis(askedDate)
	if answer.Valid {
		q.Answer = answer.String
	}
	if answeredDate.Valid {
		t := fromMillis(answeredDate.Int64)
		q.AnsweredDate = &t
	}
	if whyItMatters.Valid {
		q.WhyItMatters = whyItMatters.String
	}
	return &q, nil
}

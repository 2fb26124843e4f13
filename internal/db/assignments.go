package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

const assignmentColumns = `id, exam_id, student_id, assigned_at, due_date, completed, answers, score, percentage_score, submitted_at`

func scanAssignment(row scanner) (model.ExamAssignment, error) {
	var assignment model.ExamAssignment
	var answers []byte
	err := row.Scan(
		&assignment.ID,
		&assignment.ExamID,
		&assignment.StudentID,
		&assignment.AssignedAt,
		&assignment.DueDate,
		&assignment.Completed,
		&answers,
		&assignment.Score,
		&assignment.PercentageScore,
		&assignment.SubmittedAt,
	)
	if err != nil {
		return model.ExamAssignment{}, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &assignment.Answers); err != nil {
			return model.ExamAssignment{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	return assignment, nil
}

func (s *Store) CreateAssignment(ctx context.Context, assignment model.ExamAssignment) (model.ExamAssignment, error) {
	assignment.ID = newID(assignment.ID)
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO exam_assignments (id, exam_id, student_id, assigned_at, due_date, completed)
		VALUES ($1, $2, $3, $4, $5, false)
	`, assignment.ID, assignment.ExamID, assignment.StudentID, assignment.AssignedAt, assignment.DueDate)
	if err != nil {
		return model.ExamAssignment{}, fmt.Errorf("insert exam assignment: %w", mapWriteError(err))
	}
	assignment.Completed = false
	assignment.Answers = nil
	assignment.Score = nil
	assignment.PercentageScore = nil
	assignment.SubmittedAt = nil
	return assignment, nil
}

func (s *Store) GetAssignment(ctx context.Context, id string) (model.ExamAssignment, bool, error) {
	return getOne(ctx, s.q, scanAssignment, `SELECT `+assignmentColumns+` FROM exam_assignments WHERE id = $1`, id)
}

func (s *Store) ListAssignments(ctx context.Context, filter store.AssignmentFilter) ([]model.ExamAssignment, error) {
	return listAll(ctx, s.q, scanAssignment, `
		SELECT `+assignmentColumns+`
		FROM exam_assignments
		WHERE ($1 = '' OR exam_id = $1)
		  AND ($2 = '' OR student_id = $2)
		ORDER BY assigned_at, id
	`, filter.ExamID, filter.StudentID)
}

// SubmitAnswers flips completed from false to true in a single statement, so
// two concurrent submissions cannot both succeed.
func (s *Store) SubmitAnswers(ctx context.Context, id string, submission model.Submission) (model.ExamAssignment, bool, error) {
	answers, err := json.Marshal(submission.Answers)
	if err != nil {
		return model.ExamAssignment{}, false, fmt.Errorf("encode answers: %w", err)
	}
	return getOne(ctx, s.q, scanAssignment, `
		UPDATE exam_assignments
		SET completed = true, answers = $2, score = $3, percentage_score = $4, submitted_at = $5
		WHERE id = $1 AND completed = false
		RETURNING `+assignmentColumns,
		id, answers, submission.Score, submission.PercentageScore, submission.SubmittedAt)
}

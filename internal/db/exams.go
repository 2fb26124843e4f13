package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

const examColumns = `id, teacher_id, subject_id, title, description, questions, created_at`

func scanExam(row scanner) (model.Exam, error) {
	var exam model.Exam
	var questions []byte
	err := row.Scan(
		&exam.ID,
		&exam.TeacherID,
		&exam.SubjectID,
		&exam.Title,
		&exam.Description,
		&questions,
		&exam.CreatedAt,
	)
	if err != nil {
		return model.Exam{}, err
	}
	if err := json.Unmarshal(questions, &exam.Questions); err != nil {
		return model.Exam{}, fmt.Errorf("decode questions: %w", err)
	}
	return exam, nil
}

func (s *Store) CreateExam(ctx context.Context, exam model.Exam) (model.Exam, error) {
	exam.ID = newID(exam.ID)
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now().UTC()
	}
	questions, err := json.Marshal(exam.Questions)
	if err != nil {
		return model.Exam{}, fmt.Errorf("encode questions: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO exams (`+examColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, exam.ID, exam.TeacherID, exam.SubjectID, exam.Title, exam.Description, questions, exam.CreatedAt)
	if err != nil {
		return model.Exam{}, fmt.Errorf("insert exam: %w", mapWriteError(err))
	}
	return exam, nil
}

func (s *Store) GetExam(ctx context.Context, id string) (model.Exam, bool, error) {
	return getOne(ctx, s.q, scanExam, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id)
}

func (s *Store) ListExams(ctx context.Context, filter store.ExamFilter) ([]model.Exam, error) {
	return listAll(ctx, s.q, scanExam, `
		SELECT `+examColumns+`
		FROM exams
		WHERE ($1 = '' OR teacher_id = $1)
		  AND ($2 = '' OR subject_id = $2)
		ORDER BY created_at, id
	`, filter.TeacherID, filter.SubjectID)
}

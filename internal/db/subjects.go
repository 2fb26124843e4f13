package db

import (
	"context"
	"fmt"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
)

const subjectColumns = `id, name, icon, created_at`

func scanSubject(row scanner) (model.Subject, error) {
	var subject model.Subject
	err := row.Scan(&subject.ID, &subject.Name, &subject.Icon, &subject.CreatedAt)
	return subject, err
}

func (s *Store) CreateSubject(ctx context.Context, subject model.Subject) (model.Subject, error) {
	subject.ID = newID(subject.ID)
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO subjects (`+subjectColumns+`)
		VALUES ($1, $2, $3, $4)
	`, subject.ID, subject.Name, subject.Icon, subject.CreatedAt)
	if err != nil {
		return model.Subject{}, fmt.Errorf("insert subject: %w", mapWriteError(err))
	}
	return subject, nil
}

func (s *Store) GetSubject(ctx context.Context, id string) (model.Subject, bool, error) {
	return getOne(ctx, s.q, scanSubject, `SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id)
}

func (s *Store) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return listAll(ctx, s.q, scanSubject, `SELECT `+subjectColumns+` FROM subjects ORDER BY name, id`)
}

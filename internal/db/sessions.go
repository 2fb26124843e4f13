package db

import (
	"context"
	"fmt"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

const sessionColumns = `id, teacher_id, student_id, subject_id, start_time, end_time, status, created_at, updated_at`

func scanSession(row scanner) (model.Session, error) {
	var session model.Session
	var status string
	err := row.Scan(
		&session.ID,
		&session.TeacherID,
		&session.StudentID,
		&session.SubjectID,
		&session.StartTime,
		&session.EndTime,
		&status,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	session.Status = model.SessionStatus(status)
	return session, err
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) (model.Session, error) {
	session.ID = newID(session.ID)
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.UpdatedAt = session.CreatedAt
	_, err := s.q.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, session.ID, session.TeacherID, session.StudentID, session.SubjectID, session.StartTime, session.EndTime,
		string(session.Status), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return model.Session{}, fmt.Errorf("insert session: %w", mapWriteError(err))
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (model.Session, bool, error) {
	return getOne(ctx, s.q, scanSession, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
}

func (s *Store) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	return listAll(ctx, s.q, scanSession, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE ($1 = '' OR teacher_id = $1)
		  AND ($2 = '' OR student_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY start_time, id
	`, filter.TeacherID, filter.StudentID, string(filter.Status))
}

func (s *Store) UpdateSessionStatus(ctx context.Context, id string, from, to model.SessionStatus) (model.Session, bool, error) {
	return getOne(ctx, s.q, scanSession, `
		UPDATE sessions SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+sessionColumns, id, string(from), string(to), time.Now().UTC())
}

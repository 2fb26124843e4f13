package db

import (
	"context"
	"fmt"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

const statColumns = `student_id, total_sessions_attended, total_exams_completed, average_exam_score, last_activity`

func scanStat(row scanner) (model.StudentStat, error) {
	var stat model.StudentStat
	err := row.Scan(
		&stat.StudentID,
		&stat.TotalSessionsAttended,
		&stat.TotalExamsCompleted,
		&stat.AverageExamScore,
		&stat.LastActivity,
	)
	return stat, err
}

func (s *Store) GetStudentStat(ctx context.Context, studentID string) (model.StudentStat, bool, error) {
	return getOne(ctx, s.q, scanStat, `SELECT `+statColumns+` FROM student_stats WHERE student_id = $1`, studentID)
}

// UpsertStudentStat inserts a zeroed row if needed, then locks it for the
// read-modify-write.
func (s *Store) UpsertStudentStat(ctx context.Context, studentID string, update func(*model.StudentStat)) (model.StudentStat, error) {
	var result model.StudentStat
	err := s.WithTx(ctx, func(tx store.Store) error {
		q := tx.(*Store).q
		if _, err := q.Exec(ctx, `
			INSERT INTO student_stats (student_id, last_activity)
			VALUES ($1, $2)
			ON CONFLICT (student_id) DO NOTHING
		`, studentID, time.Now().UTC()); err != nil {
			return fmt.Errorf("insert student stat: %w", err)
		}
		stat, err := scanStat(q.QueryRow(ctx, `SELECT `+statColumns+` FROM student_stats WHERE student_id = $1 FOR UPDATE`, studentID))
		if err != nil {
			return fmt.Errorf("lock student stat: %w", err)
		}
		if update != nil {
			update(&stat)
		}
		stat.StudentID = studentID
		if _, err := q.Exec(ctx, `
			UPDATE student_stats
			SET total_sessions_attended = $2, total_exams_completed = $3, average_exam_score = $4, last_activity = $5
			WHERE student_id = $1
		`, studentID, stat.TotalSessionsAttended, stat.TotalExamsCompleted, stat.AverageExamScore, stat.LastActivity); err != nil {
			return fmt.Errorf("update student stat: %w", err)
		}
		result = stat
		return nil
	})
	return result, err
}

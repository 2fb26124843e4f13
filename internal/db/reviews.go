package db

import (
	"context"
	"fmt"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

const reviewColumns = `id, session_id, teacher_id, student_id, rating, comment, created_at`

func scanReview(row scanner) (model.Review, error) {
	var review model.Review
	err := row.Scan(
		&review.ID,
		&review.SessionID,
		&review.TeacherID,
		&review.StudentID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	return review, err
}

func (s *Store) CreateReview(ctx context.Context, review model.Review) (model.Review, error) {
	review.ID = newID(review.ID)
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, review.ID, review.SessionID, review.TeacherID, review.StudentID, review.Rating, review.Comment, review.CreatedAt)
	if err != nil {
		return model.Review{}, fmt.Errorf("insert review: %w", mapWriteError(err))
	}
	return review, nil
}

func (s *Store) GetReviewBySession(ctx context.Context, sessionID string) (model.Review, bool, error) {
	return getOne(ctx, s.q, scanReview, `SELECT `+reviewColumns+` FROM reviews WHERE session_id = $1`, sessionID)
}

func (s *Store) ListReviews(ctx context.Context, filter store.ReviewFilter) ([]model.Review, error) {
	return listAll(ctx, s.q, scanReview, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE ($1 = '' OR teacher_id = $1)
		  AND ($2 = '' OR student_id = $2)
		ORDER BY created_at, id
	`, filter.TeacherID, filter.StudentID)
}

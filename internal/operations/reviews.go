package operations

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

type CreateReviewInput struct {
	SessionID string
	StudentID string
	Rating    int
	Comment   *string
}

type Reviews struct {
	store store.Store
	now   Clock
}

func NewReviews(st store.Store, now Clock) *Reviews {
	return &Reviews{store: st, now: clockOrSystem(now)}
}

// Create records the student's review of a completed session and recomputes
// the teacher's rating from all of their reviews.
func (r *Reviews) Create(ctx context.Context, in CreateReviewInput) (model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return model.Review{}, validation(ErrInvalidRating, "rating must be between 1 and 5")
	}
	session, ok, err := r.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return model.Review{}, internal("get session", err)
	}
	if !ok {
		return model.Review{}, notFound(ErrSessionNotFound)
	}
	if session.StudentID != in.StudentID {
		return model.Review{}, forbidden("only the session's student may review it")
	}
	if session.Status != model.SessionCompleted {
		return model.Review{}, conflict(ErrSessionNotCompleted, "only completed sessions can be reviewed")
	}
	if in.Comment != nil {
		trimmed := strings.TrimSpace(*in.Comment)
		if trimmed == "" {
			in.Comment = nil
		} else {
			in.Comment = &trimmed
		}
	}

	var created model.Review
	err = r.store.WithTx(ctx, func(tx store.Store) error {
		// Locked before the insert so the recompute below sees every
		// review committed ahead of this one.
		hasProfile, err := tx.LockTeacherProfile(ctx, session.TeacherID)
		if err != nil {
			return internal("lock teacher profile", err)
		}
		if _, exists, err := tx.GetReviewBySession(ctx, session.ID); err != nil {
			return internal("get review", err)
		} else if exists {
			return conflict(ErrAlreadyReviewed, "session already reviewed")
		}
		created, err = tx.CreateReview(ctx, model.Review{
			SessionID: session.ID,
			TeacherID: session.TeacherID,
			StudentID: session.StudentID,
			Rating:    in.Rating,
			Comment:   in.Comment,
			CreatedAt: r.now(),
		})
		if errors.Is(err, store.ErrDuplicate) {
			return conflict(ErrAlreadyReviewed, "session already reviewed")
		}
		if err != nil {
			return internal("create review", err)
		}

		if !hasProfile {
			log.Printf("teacher %s has no profile; rating not updated", session.TeacherID)
			return nil
		}
		all, err := tx.ListReviews(ctx, store.ReviewFilter{TeacherID: session.TeacherID})
		if err != nil {
			return internal("list reviews", err)
		}
		average, count := averageRating(all)
		if _, _, err := tx.UpdateTeacherCounters(ctx, session.TeacherID, func(c *model.TeacherCounters) {
			c.AverageRating = average
			c.TotalReviews = count
		}); err != nil {
			return internal("update teacher counters", err)
		}
		return nil
	})
	if err != nil {
		return model.Review{}, asOperationError("create review", err)
	}
	return created, nil
}

func (r *Reviews) List(ctx context.Context, filter store.ReviewFilter) ([]model.Review, error) {
	reviews, err := r.store.ListReviews(ctx, filter)
	if err != nil {
		return nil, internal("list reviews", err)
	}
	return reviews, nil
}

func averageRating(reviews []model.Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, rv := range reviews {
		sum += rv.Rating
	}
	return float64(sum) / float64(len(reviews)), len(reviews)
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

const profileColumns = `user_id, subject_ids, hourly_rate, years_of_experience, availability, average_rating, total_reviews, total_students, created_at, updated_at`

func scanProfile(row scanner) (model.TeacherProfile, error) {
	var profile model.TeacherProfile
	var availability []byte
	err := row.Scan(
		&profile.UserID,
		&profile.SubjectIDs,
		&profile.HourlyRate,
		&profile.YearsOfExperience,
		&availability,
		&profile.AverageRating,
		&profile.TotalReviews,
		&profile.TotalStudents,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return model.TeacherProfile{}, err
	}
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &profile.Availability); err != nil {
			return model.TeacherProfile{}, fmt.Errorf("decode availability: %w", err)
		}
	}
	return profile, nil
}

func (s *Store) CreateTeacherProfile(ctx context.Context, profile model.TeacherProfile) (model.TeacherProfile, error) {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	profile.UpdatedAt = profile.CreatedAt
	if profile.SubjectIDs == nil {
		profile.SubjectIDs = []string{}
	}
	availability, err := json.Marshal(nonNilSlots(profile.Availability))
	if err != nil {
		return model.TeacherProfile{}, err
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO teacher_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, profile.UserID, profile.SubjectIDs, profile.HourlyRate, profile.YearsOfExperience, availability,
		profile.AverageRating, profile.TotalReviews, profile.TotalStudents, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return model.TeacherProfile{}, fmt.Errorf("insert teacher profile: %w", mapWriteError(err))
	}
	return profile, nil
}

func (s *Store) GetTeacherProfile(ctx context.Context, userID string) (model.TeacherProfile, bool, error) {
	return getOne(ctx, s.q, scanProfile, `SELECT `+profileColumns+` FROM teacher_profiles WHERE user_id = $1`, userID)
}

func (s *Store) ListTeacherProfiles(ctx context.Context, filter store.TeacherFilter) ([]model.TeacherProfile, error) {
	return listAll(ctx, s.q, scanProfile, `
		SELECT `+profileColumns+`
		FROM teacher_profiles
		WHERE ($1 = '' OR $1 = ANY(subject_ids))
		ORDER BY created_at, user_id
	`, filter.SubjectID)
}

// LockTeacherProfile is only meaningful inside WithTx; on the bare pool the
// lock is released as soon as the statement returns.
func (s *Store) LockTeacherProfile(ctx context.Context, userID string) (bool, error) {
	var locked string
	err := s.q.QueryRow(ctx, `SELECT user_id FROM teacher_profiles WHERE user_id = $1 FOR UPDATE`, userID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock teacher profile: %w", err)
	}
	return true, nil
}

func (s *Store) UpdateTeacherCounters(ctx context.Context, userID string, update func(*model.TeacherCounters)) (model.TeacherProfile, bool, error) {
	var (
		result model.TeacherProfile
		found  bool
	)
	err := s.WithTx(ctx, func(tx store.Store) error {
		q := tx.(*Store).q
		profile, ok, err := getOne(ctx, q, scanProfile, `SELECT `+profileColumns+` FROM teacher_profiles WHERE user_id = $1 FOR UPDATE`, userID)
		if err != nil || !ok {
			return err
		}
		counters := model.TeacherCounters{
			AverageRating: profile.AverageRating,
			TotalReviews:  profile.TotalReviews,
			TotalStudents: profile.TotalStudents,
		}
		update(&counters)
		result, found, err = getOne(ctx, q, scanProfile, `
			UPDATE teacher_profiles
			SET average_rating = $2, total_reviews = $3, total_students = $4, updated_at = $5
			WHERE user_id = $1
			RETURNING `+profileColumns,
			userID, counters.AverageRating, counters.TotalReviews, counters.TotalStudents, time.Now().UTC())
		return err
	})
	if err != nil {
		return model.TeacherProfile{}, false, fmt.Errorf("update teacher counters: %w", err)
	}
	return result, found, nil
}

func nonNilSlots(slots []model.AvailabilitySlot) []model.AvailabilitySlot {
	if slots == nil {
		return []model.AvailabilitySlot{}
	}
	return slots
}

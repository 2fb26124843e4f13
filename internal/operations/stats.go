package operations

import (
	"context"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

// Clock returns the current time. Operations take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func clockOrSystem(now Clock) Clock {
	if now == nil {
		return systemClock
	}
	return now
}

// Stats maintains the denormalised StudentStat counters. Every method is
// get-or-create: a student without a row gets a zeroed one first.
type Stats struct {
	store store.Store
	now   Clock
}

func NewStats(st store.Store, now Clock) *Stats {
	return &Stats{store: st, now: clockOrSystem(now)}
}

func (s *Stats) Get(ctx context.Context, studentID string) (model.StudentStat, error) {
	stat, ok, err := s.store.GetStudentStat(ctx, studentID)
	if err != nil {
		return model.StudentStat{}, internal("get student stat", err)
	}
	if ok {
		return stat, nil
	}
	stat, err = s.store.UpsertStudentStat(ctx, studentID, nil)
	if err != nil {
		return model.StudentStat{}, internal("create student stat", err)
	}
	return stat, nil
}

func (s *Stats) TouchActivity(ctx context.Context, studentID string) (model.StudentStat, error) {
	return s.upsert(ctx, studentID, func(stat *model.StudentStat) {})
}

func (s *Stats) IncrementSessionCount(ctx context.Context, studentID string) (model.StudentStat, error) {
	return s.upsert(ctx, studentID, func(stat *model.StudentStat) {
		stat.TotalSessionsAttended++
	})
}

// RecordExamScore folds score into the running mean with
// newAverage = (oldAverage*oldCount + score) / (oldCount + 1).
func (s *Stats) RecordExamScore(ctx context.Context, studentID string, score float64) (model.StudentStat, error) {
	return s.upsert(ctx, studentID, func(stat *model.StudentStat) {
		count := float64(stat.TotalExamsCompleted)
		stat.AverageExamScore = (stat.AverageExamScore*count + score) / (count + 1)
		stat.TotalExamsCompleted++
	})
}

func (s *Stats) upsert(ctx context.Context, studentID string, update func(*model.StudentStat)) (model.StudentStat, error) {
	now := s.now()
	stat, err := s.store.UpsertStudentStat(ctx, studentID, func(stat *model.StudentStat) {
		update(stat)
		stat.LastActivity = now
	})
	if err != nil {
		return model.StudentStat{}, internal("upsert student stat", err)
	}
	return stat, nil
}

package operations_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

func sessionInput(f fixture) operations.CreateSessionInput {
	return operations.CreateSessionInput{
		TeacherID: f.teacher.ID,
		StudentID: f.student.ID,
		SubjectID: f.subject.ID,
		StartTime: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
	}
}

func TestCreateSessionIsScheduled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessions := operations.NewSessions(f.store, clock)

	session, err := sessions.Create(ctx, sessionInput(f))
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Equal(t, model.SessionScheduled, session.Status)

	stat, ok, err := f.store.GetStudentStat(ctx, f.student.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fixedNow, stat.LastActivity)
	require.Zero(t, stat.TotalSessionsAttended)
}

func TestCreateSessionBookingIsPending(t *testing.T) {
	f := newFixture(t)
	in := sessionInput(f)
	in.Booking = true

	session, err := operations.NewSessions(f.store, clock).Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, model.SessionPending, session.Status)
}

func TestCreateSessionRejectsInvertedTimes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessions := operations.NewSessions(f.store, clock)

	for _, end := range []time.Time{
		time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	} {
		in := sessionInput(f)
		in.EndTime = end
		_, err := sessions.Create(ctx, in)
		requireKind(t, err, operations.KindValidation, operations.ErrInvalidTimeRange)
	}

	all, err := f.store.ListSessions(ctx, store.SessionFilter{})
	require.NoError(t, err)
	require.Empty(t, all)
	_, ok, err := f.store.GetStudentStat(ctx, f.student.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateSessionChecksParticipants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessions := operations.NewSessions(f.store, clock)

	in := sessionInput(f)
	in.TeacherID = "999"
	_, err := sessions.Create(ctx, in)
	requireKind(t, err, operations.KindNotFound, operations.ErrTeacherNotFound)

	in = sessionInput(f)
	in.TeacherID = f.student.ID
	_, err = sessions.Create(ctx, in)
	requireKind(t, err, operations.KindValidation, operations.ErrNotATeacher)

	in = sessionInput(f)
	in.StudentID = f.teacher.ID
	_, err = sessions.Create(ctx, in)
	requireKind(t, err, operations.KindValidation, operations.ErrNotAStudent)

	in = sessionInput(f)
	in.SubjectID = "999"
	_, err = sessions.Create(ctx, in)
	requireKind(t, err, operations.KindNotFound, operations.ErrSubjectNotFound)
}

func TestTotalStudentsCountsDistinctStudents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessions := operations.NewSessions(f.store, clock)

	_, err := sessions.Create(ctx, sessionInput(f))
	require.NoError(t, err)
	_, err = sessions.Create(ctx, sessionInput(f))
	require.NoError(t, err)

	other := mustUser(t, f.store, "other@example.com", model.RoleStudent)
	in := sessionInput(f)
	in.StudentID = other.ID
	_, err = sessions.Create(ctx, in)
	require.NoError(t, err)

	profile, ok, err := f.store.GetTeacherProfile(ctx, f.teacher.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, profile.TotalStudents)
}

func TestCreateSessionWithoutProfileStillSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	newTeacher := mustUser(t, f.store, "new@example.com", model.RoleTeacher)
	in := sessionInput(f)
	in.TeacherID = newTeacher.ID

	_, err := operations.NewSessions(f.store, clock).Create(ctx, in)
	require.NoError(t, err)
}

func TestUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessions := operations.NewSessions(f.store, clock)

	session, err := sessions.Create(ctx, sessionInput(f))
	require.NoError(t, err)

	_, err = sessions.UpdateStatus(ctx, session.ID, "active")
	requireKind(t, err, operations.KindValidation, operations.ErrInvalidStatus)

	_, err = sessions.UpdateStatus(ctx, session.ID, model.SessionPending)
	requireKind(t, err, operations.KindConflict, operations.ErrInvalidTransition)

	_, err = sessions.UpdateStatus(ctx, "404", model.SessionCompleted)
	requireKind(t, err, operations.KindNotFound, operations.ErrSessionNotFound)

	done, err := sessions.UpdateStatus(ctx, session.ID, model.SessionCompleted)
	require.NoError(t, err)
	require.Equal(t, model.SessionCompleted, done.Status)

	stat, err := operations.NewStats(f.store, clock).Get(ctx, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stat.TotalSessionsAttended)

	// Terminal states never come back.
	_, err = sessions.UpdateStatus(ctx, session.ID, model.SessionCancelled)
	requireKind(t, err, operations.KindConflict, operations.ErrInvalidTransition)
	_, err = sessions.UpdateStatus(ctx, session.ID, model.SessionCompleted)
	requireKind(t, err, operations.KindConflict, operations.ErrInvalidTransition)

	stat, err = operations.NewStats(f.store, clock).Get(ctx, f.student.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stat.TotalSessionsAttended)
}

func TestCancelPendingSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessions := operations.NewSessions(f.store, clock)
	in := sessionInput(f)
	in.Booking = true

	session, err := sessions.Create(ctx, in)
	require.NoError(t, err)
	cancelled, err := sessions.UpdateStatus(ctx, session.ID, model.SessionCancelled)
	require.NoError(t, err)
	require.Equal(t, model.SessionCancelled, cancelled.Status)

	stat, err := operations.NewStats(f.store, clock).Get(ctx, f.student.ID)
	require.NoError(t, err)
	require.Zero(t, stat.TotalSessionsAttended)
}

func TestCreateSessionLocksProfileBeforeCountingPairs(t *testing.T) {
	f := newFixture(t)
	calls := &callLog{}
	sessions := operations.NewSessions(tracedStore{Store: f.store, log: calls}, clock)

	_, err := sessions.Create(context.Background(), sessionInput(f))
	require.NoError(t, err)
	calls.requireOrder(t, "LockTeacherProfile", "ListSessions", "UpdateTeacherCounters")
}

func TestConcurrentFirstBookingsCountStudentOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessions := operations.NewSessions(f.store, clock)

	const bookings = 10
	errs := make([]error, bookings)
	var wg sync.WaitGroup
	for i := 0; i < bookings; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := sessionInput(f)
			in.Booking = true
			_, errs[i] = sessions.Create(ctx, in)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	profile, _, err := f.store.GetTeacherProfile(ctx, f.teacher.ID)
	require.NoError(t, err)
	require.Equal(t, 1, profile.TotalStudents)
	all, err := f.store.ListSessions(ctx, store.SessionFilter{TeacherID: f.teacher.ID})
	require.NoError(t, err)
	require.Len(t, all, bookings)
}

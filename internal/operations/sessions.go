package operations

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

type CreateSessionInput struct {
	TeacherID string
	StudentID string
	SubjectID string
	StartTime time.Time
	EndTime   time.Time
	// Booking marks a student-initiated request that waits for the teacher
	// to confirm it.
	Booking bool
}

// Sessions is the session lifecycle manager.
type Sessions struct {
	store store.Store
	now   Clock
}

func NewSessions(st store.Store, now Clock) *Sessions {
	return &Sessions{store: st, now: clockOrSystem(now)}
}

func (s *Sessions) Create(ctx context.Context, in CreateSessionInput) (model.Session, error) {
	in.TeacherID = strings.TrimSpace(in.TeacherID)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	if in.TeacherID == "" || in.StudentID == "" || in.SubjectID == "" || in.StartTime.IsZero() || in.EndTime.IsZero() {
		return model.Session{}, validation(ErrMissingFields, "teacher, student, subject, start and end time are required")
	}
	if !in.EndTime.After(in.StartTime) {
		return model.Session{}, validation(ErrInvalidTimeRange, "end time must be after start time")
	}

	if err := requireRole(ctx, s.store, in.TeacherID, model.RoleTeacher); err != nil {
		return model.Session{}, err
	}
	if err := requireRole(ctx, s.store, in.StudentID, model.RoleStudent); err != nil {
		return model.Session{}, err
	}
	if _, ok, err := s.store.GetSubject(ctx, in.SubjectID); err != nil {
		return model.Session{}, internal("get subject", err)
	} else if !ok {
		return model.Session{}, notFound(ErrSubjectNotFound)
	}

	status := model.SessionScheduled
	if in.Booking {
		status = model.SessionPending
	}

	var created model.Session
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		// The profile lock serialises first bookings of the same pair.
		hasProfile, err := tx.LockTeacherProfile(ctx, in.TeacherID)
		if err != nil {
			return internal("lock teacher profile", err)
		}
		prior, err := tx.ListSessions(ctx, store.SessionFilter{TeacherID: in.TeacherID, StudentID: in.StudentID})
		if err != nil {
			return internal("list prior sessions", err)
		}
		created, err = tx.CreateSession(ctx, model.Session{
			TeacherID: in.TeacherID,
			StudentID: in.StudentID,
			SubjectID: in.SubjectID,
			StartTime: in.StartTime.UTC(),
			EndTime:   in.EndTime.UTC(),
			Status:    status,
			CreatedAt: s.now(),
		})
		if err != nil {
			return internal("create session", err)
		}
		// totalStudents counts distinct students, so only the first session
		// of a pair moves it.
		switch {
		case len(prior) > 0:
		case !hasProfile:
			log.Printf("teacher %s has no profile; total_students not updated", in.TeacherID)
		default:
			if _, _, err := tx.UpdateTeacherCounters(ctx, in.TeacherID, func(c *model.TeacherCounters) {
				c.TotalStudents++
			}); err != nil {
				return internal("update teacher counters", err)
			}
		}
		_, err = NewStats(tx, s.now).TouchActivity(ctx, in.StudentID)
		return err
	})
	if err != nil {
		return model.Session{}, asOperationError("create session", err)
	}
	return created, nil
}

func (s *Sessions) Get(ctx context.Context, id string) (model.Session, error) {
	session, ok, err := s.store.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, internal("get session", err)
	}
	if !ok {
		return model.Session{}, notFound(ErrSessionNotFound)
	}
	return session, nil
}

func (s *Sessions) List(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validation(ErrInvalidStatus, "unknown status %q", filter.Status)
	}
	sessions, err := s.store.ListSessions(ctx, filter)
	if err != nil {
		return nil, internal("list sessions", err)
	}
	return sessions, nil
}

// UpdateStatus applies one transition of the session state machine:
// pending -> scheduled|cancelled, scheduled -> completed|cancelled.
// Completing a session counts it as attended for the student.
func (s *Sessions) UpdateStatus(ctx context.Context, id string, next model.SessionStatus) (model.Session, error) {
	if !next.Valid() {
		return model.Session{}, validation(ErrInvalidStatus, "unknown status %q", next)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if !current.Status.CanTransitionTo(next) {
		return model.Session{}, conflict(ErrInvalidTransition, "cannot move session from "+string(current.Status)+" to "+string(next))
	}

	var updated model.Session
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		var ok bool
		var err error
		updated, ok, err = tx.UpdateSessionStatus(ctx, id, current.Status, next)
		if err != nil {
			return internal("update session status", err)
		}
		if !ok {
			return conflict(ErrInvalidTransition, "session status changed concurrently")
		}
		if next == model.SessionCompleted {
			_, err = NewStats(tx, s.now).IncrementSessionCount(ctx, updated.StudentID)
		}
		return err
	})
	if err != nil {
		return model.Session{}, asOperationError("update session status", err)
	}
	return updated, nil
}

func requireRole(ctx context.Context, st store.Store, userID string, role model.Role) error {
	notFoundCode, wrongRoleCode := ErrUserNotFound, ErrInvalidRole
	switch role {
	case model.RoleTeacher:
		notFoundCode, wrongRoleCode = ErrTeacherNotFound, ErrNotATeacher
	case model.RoleStudent:
		notFoundCode, wrongRoleCode = ErrStudentNotFound, ErrNotAStudent
	}
	user, ok, err := st.GetUser(ctx, userID)
	if err != nil {
		return internal("get user", err)
	}
	if !ok {
		return notFound(notFoundCode)
	}
	if user.Role != role {
		return validation(wrongRoleCode, "user %s is not a %s", userID, role)
	}
	return nil
}

// asOperationError passes taxonomy errors through and wraps anything else
// as internal.
func asOperationError(op string, err error) error {
	var opErr *Error
	if errors.As(err, &opErr) {
		return err
	}
	return internal(op, err)
}

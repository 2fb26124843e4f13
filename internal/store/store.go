// Package store defines the persistence contract shared by the in-memory and
// PostgreSQL implementations.
//
// Lookups return (value, false, nil) when the entity does not exist; an error
// is reserved for storage failures. Create methods assign an id when the
// caller leaves it empty. Mutators return the full updated entity.
package store

import (
	"context"
	"errors"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
)

// ErrDuplicate is returned by create methods when a uniqueness constraint
// (user email, one review per session, one assignment per exam and student)
// is violated.
var ErrDuplicate = errors.New("duplicate entity")

type UserFilter struct {
	Role model.Role
}

type TeacherFilter struct {
	SubjectID string
}

type SessionFilter struct {
	TeacherID string
	StudentID string
	Status    model.SessionStatus
}

type ReviewFilter struct {
	TeacherID string
	StudentID string
}

type ExamFilter struct {
	TeacherID string
	SubjectID string
}

type AssignmentFilter struct {
	ExamID    string
	StudentID string
}

type Store interface {
	// WithTx runs fn against a store bound to one transaction. fn's writes are
	// discarded when it returns an error.
	WithTx(ctx context.Context, fn func(Store) error) error

	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, bool, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]model.User, error)
	UpdateUserRole(ctx context.Context, id string, role model.Role) (model.User, bool, error)
	SetUserSuspended(ctx context.Context, id string, suspended bool) (model.User, bool, error)

	CreateSubject(ctx context.Context, subject model.Subject) (model.Subject, error)
	GetSubject(ctx context.Context, id string) (model.Subject, bool, error)
	ListSubjects(ctx context.Context) ([]model.Subject, error)

	CreateTeacherProfile(ctx context.Context, profile model.TeacherProfile) (model.TeacherProfile, error)
	GetTeacherProfile(ctx context.Context, userID string) (model.TeacherProfile, bool, error)
	ListTeacherProfiles(ctx context.Context, filter TeacherFilter) ([]model.TeacherProfile, error)
	// LockTeacherProfile holds the profile's row lock until the enclosing
	// transaction ends. Take it before reading the rows a derived counter is
	// computed from. ok is false when the teacher has no profile.
	LockTeacherProfile(ctx context.Context, userID string) (bool, error)
	// UpdateTeacherCounters applies update to the profile's derived counters
	// under a row lock; ok is false when the teacher has no profile.
	UpdateTeacherCounters(ctx context.Context, userID string, update func(*model.TeacherCounters)) (model.TeacherProfile, bool, error)

	CreateSession(ctx context.Context, session model.Session) (model.Session, error)
	GetSession(ctx context.Context, id string) (model.Session, bool, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	// UpdateSessionStatus moves the session to status `to` only while it is
	// still in status `from`; ok is false when the session is missing or its
	// status changed in between.
	UpdateSessionStatus(ctx context.Context, id string, from, to model.SessionStatus) (model.Session, bool, error)

	CreateReview(ctx context.Context, review model.Review) (model.Review, error)
	GetReviewBySession(ctx context.Context, sessionID string) (model.Review, bool, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error)

	CreateExam(ctx context.Context, exam model.Exam) (model.Exam, error)
	GetExam(ctx context.Context, id string) (model.Exam, bool, error)
	ListExams(ctx context.Context, filter ExamFilter) ([]model.Exam, error)

	CreateAssignment(ctx context.Context, assignment model.ExamAssignment) (model.ExamAssignment, error)
	GetAssignment(ctx context.Context, id string) (model.ExamAssignment, bool, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]model.ExamAssignment, error)
	// SubmitAnswers completes the assignment only if it is not completed yet;
	// ok is false when it is missing or already completed.
	SubmitAnswers(ctx context.Context, id string, submission model.Submission) (model.ExamAssignment, bool, error)

	GetStudentStat(ctx context.Context, studentID string) (model.StudentStat, bool, error)
	// UpsertStudentStat creates a zeroed stat row if none exists, applies
	// update and persists the result atomically.
	UpsertStudentStat(ctx context.Context, studentID string, update func(*model.StudentStat)) (model.StudentStat, error)
}

package operations

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "internal"
}

const (
	ErrTeacherNotFound     = "teacher_not_found"
	ErrStudentNotFound     = "student_not_found"
	ErrSubjectNotFound     = "subject_not_found"
	ErrSessionNotFound     = "session_not_found"
	ErrExamNotFound        = "exam_not_found"
	ErrAssignmentNotFound  = "assignment_not_found"
	ErrUserNotFound        = "user_not_found"
	ErrProfileNotFound     = "profile_not_found"
	ErrNotATeacher         = "not_a_teacher"
	ErrNotAStudent         = "not_a_student"
	ErrInvalidTimeRange    = "invalid_time_range"
	ErrInvalidStatus       = "invalid_status"
	ErrInvalidTransition   = "invalid_transition"
	ErrMissingAnswers      = "missing_answers"
	ErrInvalidAnswers      = "invalid_answers"
	ErrAlreadySubmitted    = "already_submitted"
	ErrInvalidExam         = "invalid_exam"
	ErrInvalidRating       = "invalid_rating"
	ErrSessionNotCompleted = "session_not_completed"
	ErrAlreadyReviewed     = "already_reviewed"
	ErrInvalidProfile      = "invalid_profile"
	ErrProfileExists       = "profile_exists"
	ErrEmailTaken          = "email_taken"
	ErrInvalidRole         = "invalid_role"
	ErrInvalidCredentials  = "invalid_credentials"
	ErrAccountSuspended    = "account_suspended"
	ErrForbidden           = "forbidden"
	ErrServerError         = "server_error"
	ErrMissingFields       = "missing_fields"
)

// Error is the taxonomy every operation reports. Code is stable and safe to
// show to clients; Detail is an optional human-readable explanation.
type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

func notFound(code string) error {
	return &Error{Kind: KindNotFound, Code: code}
}

func validation(code, format string, args ...any) error {
	return &Error{Kind: KindValidation, Code: code, Detail: fmt.Sprintf(format, args...)}
}

func conflict(code, detail string) error {
	return &Error{Kind: KindConflict, Code: code, Detail: detail}
}

func forbidden(detail string) error {
	return &Error{Kind: KindForbidden, Code: ErrForbidden, Detail: detail}
}

func internal(op string, err error) error {
	return &Error{Kind: KindInternal, Code: ErrServerError, Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf reports the taxonomy kind of err; anything that is not an *Error is
// internal.
func KindOf(err error) Kind {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindInternal
}

// CodeOf returns the client-facing code of err.
func CodeOf(err error) string {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return ErrServerError
}

package model

import "time"

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionPending:   {SessionScheduled, SessionCancelled},
	SessionScheduled: {SessionCompleted, SessionCancelled},
}

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionScheduled, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s SessionStatus) Terminal() bool {
	return len(sessionTransitions[s]) == 0
}

func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Session struct {
	ID        string
	TeacherID string
	StudentID string
	SubjectID string
	StartTime time.Time
	EndTime   time.Time
	Status    SessionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Session) HasParty(userID string) bool {
	return userID != "" && (s.TeacherID == userID || s.StudentID == userID)
}

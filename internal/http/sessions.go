package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/12darko/TeacherConnect-sub000/internal/auth"
	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

type createSessionRequest struct {
	TeacherID string    `json:"teacherId"`
	StudentID string    `json:"studentId"`
	SubjectID string    `json:"subjectId" validate:"required"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
}

type updateSessionRequest struct {
	Status string `json:"status" validate:"required"`
}

type createReviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	filter := store.SessionFilter{Status: model.SessionStatus(r.URL.Query().Get("status"))}
	switch {
	case hasRole(claims, model.RoleTeacher):
		filter.TeacherID = claims.UserID
	case hasRole(claims, model.RoleStudent):
		filter.StudentID = claims.UserID
	default:
		filter.TeacherID = r.URL.Query().Get("teacherId")
		filter.StudentID = r.URL.Query().Get("studentId")
	}

	sessions, err := s.sessions.List(r.Context(), filter)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newNames(r.Context(), s.store).sessions(sessions))
}

// handleCreateSession fills in the caller's side of the session: a teacher
// schedules for a student, a student books a teacher and the session waits
// for confirmation. Admins name both parties.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req createSessionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	in := operations.CreateSessionInput{
		TeacherID: req.TeacherID,
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	switch {
	case hasRole(claims, model.RoleTeacher):
		if req.TeacherID != "" && req.TeacherID != claims.UserID {
			writeError(w, http.StatusForbidden, operations.ErrForbidden)
			return
		}
		in.TeacherID = claims.UserID
	case hasRole(claims, model.RoleStudent):
		if req.StudentID != "" && req.StudentID != claims.UserID {
			writeError(w, http.StatusForbidden, operations.ErrForbidden)
			return
		}
		in.StudentID = claims.UserID
		in.Booking = true
	}

	session, err := s.sessions.Create(r.Context(), in)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	s.metrics.SessionCreated(string(session.Status))
	writeJSON(w, http.StatusCreated, newNames(r.Context(), s.store).session(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSessionForParty(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newNames(r.Context(), s.store).session(session))
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	session, ok := s.loadSessionForParty(w, r)
	if !ok {
		return
	}
	var req updateSessionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	next := model.SessionStatus(req.Status)
	if !canMoveSession(claims, session, next) {
		writeError(w, http.StatusForbidden, operations.ErrForbidden)
		return
	}

	updated, err := s.sessions.UpdateStatus(r.Context(), session.ID, next)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	s.metrics.SessionTransition(string(updated.Status))
	writeJSON(w, http.StatusOK, newNames(r.Context(), s.store).session(updated))
}

// canMoveSession decides who may request a status: confirming and completing
// belong to the teacher, cancelling to either party. Unknown statuses pass
// through so the lifecycle manager reports them as invalid.
func canMoveSession(claims *auth.Claims, session model.Session, next model.SessionStatus) bool {
	if isAdmin(claims) {
		return true
	}
	switch next {
	case model.SessionScheduled, model.SessionCompleted:
		return claims.UserID == session.TeacherID
	}
	return session.HasParty(claims.UserID)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req createReviewRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	review, err := s.reviews.Create(r.Context(), operations.CreateReviewInput{
		SessionID: chi.URLParam(r, "sessionID"),
		StudentID: claims.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newNames(r.Context(), s.store).review(review))
}

// loadSessionForParty loads the session in the URL and refuses anyone who is
// neither one of its parties nor an admin.
func (s *Server) loadSessionForParty(w http.ResponseWriter, r *http.Request) (model.Session, bool) {
	claims := claimsFromContext(r.Context())
	session, err := s.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeOpError(w, r, err)
		return model.Session{}, false
	}
	if !isAdmin(claims) && !session.HasParty(claims.UserID) {
		writeError(w, http.StatusForbidden, operations.ErrForbidden)
		return model.Session{}, false
	}
	return session, true
}

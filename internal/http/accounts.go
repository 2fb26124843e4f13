package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Role      string `json:"role" validate:"required,oneof=student teacher"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	AccessToken string   `json:"accessToken"`
	User        userView `json:"user"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=student teacher admin"`
}

type suspendRequest struct {
	Suspended *bool `json:"suspended" validate:"required"`
}

type createSubjectRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Icon string `json:"icon" validate:"max=100"`
}

type availabilityRequest struct {
	Weekday   int    `json:"weekday" validate:"gte=0,lte=6"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

type createProfileRequest struct {
	SubjectIDs        []string              `json:"subjectIds" validate:"dive,required"`
	HourlyRate        float64               `json:"hourlyRate" validate:"gte=0"`
	YearsOfExperience int                   `json:"yearsOfExperience" validate:"gte=0"`
	Availability      []availabilityRequest `json:"availability" validate:"dive"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.identity.Register(r.Context(), operations.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      model.Role(req.Role),
	})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := s.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{AccessToken: token, User: newUserView(user)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	user, err := s.identity.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.identity.ListUsers(r.Context(), store.UserFilter{Role: model.Role(r.URL.Query().Get("role"))})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.identity.UpdateRole(r.Context(), chi.URLParam(r, "userID"), model.Role(req.Role))
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) handleSuspend(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req suspendRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	userID := chi.URLParam(r, "userID")
	if userID == claims.UserID && *req.Suspended {
		writeErrorDetail(w, http.StatusBadRequest, "invalid_request", "admins cannot suspend themselves")
		return
	}
	user, err := s.identity.Suspend(r.Context(), userID, *req.Suspended)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.catalog.ListSubjects(r.Context())
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	views := make([]subjectView, 0, len(subjects))
	for _, subject := range subjects {
		views = append(views, newSubjectView(subject))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	subject, err := s.catalog.CreateSubject(r.Context(), req.Name, req.Icon)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSubjectView(subject))
}

func (s *Server) handleListTeachers(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.catalog.ListProfiles(r.Context(), store.TeacherFilter{SubjectID: r.URL.Query().Get("subjectId")})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	n := newNames(r.Context(), s.store)
	views := make([]teacherView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, n.teacher(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetTeacher(w http.ResponseWriter, r *http.Request) {
	profile, err := s.catalog.GetProfile(r.Context(), chi.URLParam(r, "teacherID"))
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newNames(r.Context(), s.store).teacher(profile))
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req createProfileRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	slots := make([]model.AvailabilitySlot, 0, len(req.Availability))
	for _, a := range req.Availability {
		slots = append(slots, model.AvailabilitySlot{Weekday: time.Weekday(a.Weekday), StartTime: a.StartTime, EndTime: a.EndTime})
	}
	profile, err := s.catalog.CreateProfile(r.Context(), operations.CreateProfileInput{
		UserID:            claims.UserID,
		SubjectIDs:        req.SubjectIDs,
		HourlyRate:        req.HourlyRate,
		YearsOfExperience: req.YearsOfExperience,
		Availability:      slots,
	})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newNames(r.Context(), s.store).teacher(profile))
}

func (s *Server) handleListTeacherReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.reviews.List(r.Context(), store.ReviewFilter{TeacherID: chi.URLParam(r, "teacherID")})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	n := newNames(r.Context(), s.store)
	views := make([]reviewView, 0, len(reviews))
	for _, rv := range reviews {
		views = append(views, n.review(rv))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleStudentStats is readable by the student and by admins. The row is
// created on first read.
func (s *Server) handleStudentStats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	studentID := chi.URLParam(r, "studentID")
	if !isAdmin(claims) && claims.UserID != studentID {
		writeError(w, http.StatusForbidden, operations.ErrForbidden)
		return
	}
	user, err := s.identity.GetUser(r.Context(), studentID)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	if user.Role != model.RoleStudent {
		writeError(w, http.StatusNotFound, operations.ErrStudentNotFound)
		return
	}
	stat, err := s.stats.Get(r.Context(), studentID)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatView(stat))
}

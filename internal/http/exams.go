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

type questionRequest struct {
	Question      string            `json:"question" validate:"required"`
	Type          string            `json:"type" validate:"required,oneof=multiple-choice text"`
	Options       []string          `json:"options"`
	CorrectAnswer model.AnswerValue `json:"correctAnswer"`
	Points        int               `json:"points" validate:"gte=0"`
}

type createExamRequest struct {
	SubjectID   string            `json:"subjectId" validate:"required"`
	Title       string            `json:"title" validate:"required,max=200"`
	Description *string           `json:"description"`
	Questions   []questionRequest `json:"questions" validate:"required,min=1,dive"`
}

type assignExamRequest struct {
	ExamID     string     `json:"examId" validate:"required"`
	StudentIDs []string   `json:"studentIds" validate:"required,min=1,dive,required"`
	DueDate    *time.Time `json:"dueDate"`
}

type submitExamRequest struct {
	Answers []model.Answer `json:"answers" validate:"required"`
}

type batchResponse struct {
	Assigned []assignmentView `json:"assigned"`
	Failed   []failureView    `json:"failed"`
}

func (s *Server) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req createExamRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	questions := make([]model.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, model.Question{
			Text:          q.Question,
			Type:          model.QuestionType(q.Type),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
		})
	}

	exam, err := s.exams.Create(r.Context(), operations.CreateExamInput{
		TeacherID:   claims.UserID,
		SubjectID:   req.SubjectID,
		Title:       req.Title,
		Description: req.Description,
		Questions:   questions,
	})
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newNames(r.Context(), s.store).examView(exam))
}

// handleListExams shows teachers their own exams, students the exams they
// were assigned (answers hidden until completed) and admins everything.
func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	n := newNames(r.Context(), s.store)

	if hasRole(claims, model.RoleStudent) {
		assignments, err := s.exams.ListAssignments(r.Context(), store.AssignmentFilter{StudentID: claims.UserID})
		if err != nil {
			writeOpError(w, r, err)
			return
		}
		views := make([]examView, 0, len(assignments))
		for _, a := range assignments {
			exam, err := s.exams.Get(r.Context(), a.ExamID)
			if err != nil {
				writeOpError(w, r, err)
				return
			}
			if !a.Completed {
				exam = operations.HideAnswers(exam)
			}
			views = append(views, n.examView(exam))
		}
		writeJSON(w, http.StatusOK, views)
		return
	}

	filter := store.ExamFilter{SubjectID: r.URL.Query().Get("subjectId")}
	if hasRole(claims, model.RoleTeacher) {
		filter.TeacherID = claims.UserID
	} else {
		filter.TeacherID = r.URL.Query().Get("teacherId")
	}
	exams, err := s.exams.List(r.Context(), filter)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	views := make([]examView, 0, len(exams))
	for _, e := range exams {
		views = append(views, n.examView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	exam, err := s.exams.Get(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	view, allowed, err := s.examForViewer(r, claims, exam)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, operations.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, newNames(r.Context(), s.store).examView(view))
}

// examForViewer applies read access to an exam: its author and admins see
// it whole, an assigned student sees it without answers until submitted.
func (s *Server) examForViewer(r *http.Request, claims *auth.Claims, exam model.Exam) (model.Exam, bool, error) {
	if isAdmin(claims) || exam.TeacherID == claims.UserID {
		return exam, true, nil
	}
	if !hasRole(claims, model.RoleStudent) {
		return model.Exam{}, false, nil
	}
	assignments, err := s.exams.ListAssignments(r.Context(), store.AssignmentFilter{ExamID: exam.ID, StudentID: claims.UserID})
	if err != nil {
		return model.Exam{}, false, err
	}
	if len(assignments) == 0 {
		return model.Exam{}, false, nil
	}
	if assignments[0].Completed {
		return exam, true, nil
	}
	return operations.HideAnswers(exam), true, nil
}

func (s *Server) handleAssignExam(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req assignExamRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.exams.AssignBatch(r.Context(), claims.UserID, req.ExamID, req.StudentIDs, req.DueDate)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	s.metrics.AssignmentsRecorded(len(result.Assigned), len(result.Failed))
	writeJSON(w, http.StatusCreated, batchResponse{
		Assigned: newNames(r.Context(), s.store).assignments(result.Assigned),
		Failed:   failureViews(result.Failed),
	})
}

// handleListAssignments lists a student's own assignments, the assignments
// of one of the teacher's exams (or all of them) and anything for admins.
func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	examID := r.URL.Query().Get("examId")
	var (
		assignments []model.ExamAssignment
		err         error
	)
	switch {
	case hasRole(claims, model.RoleStudent):
		assignments, err = s.exams.ListAssignments(r.Context(), store.AssignmentFilter{ExamID: examID, StudentID: claims.UserID})
	case hasRole(claims, model.RoleTeacher):
		assignments, err = s.teacherAssignments(r, claims.UserID, examID)
	default:
		assignments, err = s.exams.ListAssignments(r.Context(), store.AssignmentFilter{ExamID: examID, StudentID: r.URL.Query().Get("studentId")})
	}
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newNames(r.Context(), s.store).assignments(assignments))
}

func (s *Server) teacherAssignments(r *http.Request, teacherID, examID string) ([]model.ExamAssignment, error) {
	if examID != "" {
		exam, err := s.exams.Get(r.Context(), examID)
		if err != nil {
			return nil, err
		}
		if exam.TeacherID != teacherID {
			return nil, &operations.Error{Kind: operations.KindForbidden, Code: operations.ErrForbidden}
		}
		return s.exams.ListAssignments(r.Context(), store.AssignmentFilter{ExamID: examID})
	}
	exams, err := s.exams.List(r.Context(), store.ExamFilter{TeacherID: teacherID})
	if err != nil {
		return nil, err
	}
	all := []model.ExamAssignment{}
	for _, exam := range exams {
		assignments, err := s.exams.ListAssignments(r.Context(), store.AssignmentFilter{ExamID: exam.ID})
		if err != nil {
			return nil, err
		}
		all = append(all, assignments...)
	}
	return all, nil
}

func (s *Server) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	assignment, err := s.exams.GetAssignment(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	if !isAdmin(claims) && assignment.StudentID != claims.UserID {
		exam, err := s.exams.Get(r.Context(), assignment.ExamID)
		if err != nil {
			writeOpError(w, r, err)
			return
		}
		if exam.TeacherID != claims.UserID {
			writeError(w, http.StatusForbidden, operations.ErrForbidden)
			return
		}
	}
	writeJSON(w, http.StatusOK, newNames(r.Context(), s.store).assignment(assignment))
}

func (s *Server) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req submitExamRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	assignment, err := s.exams.Submit(r.Context(), claims.UserID, chi.URLParam(r, "assignmentID"), req.Answers)
	if err != nil {
		writeOpError(w, r, err)
		return
	}
	if assignment.PercentageScore != nil {
		s.metrics.ExamSubmitted(*assignment.PercentageScore)
	}
	writeJSON(w, http.StatusOK, newNames(r.Context(), s.store).assignment(assignment))
}

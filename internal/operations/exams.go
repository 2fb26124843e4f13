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

// Reasons reported per student by AssignBatch.
const (
	ReasonNotAStudent     = "Student not found or not a student"
	ReasonAlreadyAssigned = "Exam already assigned to this student"
	ReasonInternal        = "Internal error during assignment"
)

type CreateExamInput struct {
	TeacherID   string
	SubjectID   string
	Title       string
	Description *string
	Questions   []model.Question
}

type AssignFailure struct {
	StudentID string
	Reason    string
}

type BatchResult struct {
	Assigned []model.ExamAssignment
	Failed   []AssignFailure
}

// Exams is the exam assignment and scoring engine.
type Exams struct {
	store store.Store
	now   Clock
}

func NewExams(st store.Store, now Clock) *Exams {
	return &Exams{store: st, now: clockOrSystem(now)}
}

// Create stores a new exam. Question ids are reassigned 1..n in the given
// order.
func (e *Exams) Create(ctx context.Context, in CreateExamInput) (model.Exam, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.TeacherID == "" || in.SubjectID == "" || in.Title == "" {
		return model.Exam{}, validation(ErrMissingFields, "teacher, subject and title are required")
	}
	if len(in.Questions) == 0 {
		return model.Exam{}, validation(ErrInvalidExam, "an exam needs at least one question")
	}
	questions := make([]model.Question, len(in.Questions))
	for i, q := range in.Questions {
		if err := validateQuestion(i+1, q); err != nil {
			return model.Exam{}, err
		}
		q.ID = i + 1
		q.Options = append([]string(nil), q.Options...)
		if q.Type == model.QuestionText {
			q.Options = nil
		}
		questions[i] = q
	}

	if err := requireRole(ctx, e.store, in.TeacherID, model.RoleTeacher); err != nil {
		return model.Exam{}, err
	}
	if _, ok, err := e.store.GetSubject(ctx, in.SubjectID); err != nil {
		return model.Exam{}, internal("get subject", err)
	} else if !ok {
		return model.Exam{}, notFound(ErrSubjectNotFound)
	}

	exam, err := e.store.CreateExam(ctx, model.Exam{
		TeacherID:   in.TeacherID,
		SubjectID:   in.SubjectID,
		Title:       in.Title,
		Description: in.Description,
		Questions:   questions,
		CreatedAt:   e.now(),
	})
	if err != nil {
		return model.Exam{}, internal("create exam", err)
	}
	return exam, nil
}

func validateQuestion(n int, q model.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return validation(ErrInvalidExam, "question %d has no text", n)
	}
	if q.Points < 0 {
		return validation(ErrInvalidExam, "question %d has negative points", n)
	}
	switch q.Type {
	case model.QuestionMultipleChoice:
		if len(q.Options) < 2 {
			return validation(ErrInvalidExam, "question %d needs at least two options", n)
		}
		idx, ok := q.CorrectAnswer.Index()
		if !ok || idx < 0 || idx >= len(q.Options) {
			return validation(ErrInvalidExam, "question %d correct answer must be an option index", n)
		}
	case model.QuestionText:
		if _, ok := q.CorrectAnswer.Text(); !ok {
			return validation(ErrInvalidExam, "question %d correct answer must be text", n)
		}
	default:
		return validation(ErrInvalidExam, "question %d has unknown type %q", n, q.Type)
	}
	return nil
}

func (e *Exams) Get(ctx context.Context, id string) (model.Exam, error) {
	exam, ok, err := e.store.GetExam(ctx, id)
	if err != nil {
		return model.Exam{}, internal("get exam", err)
	}
	if !ok {
		return model.Exam{}, notFound(ErrExamNotFound)
	}
	return exam, nil
}

func (e *Exams) List(ctx context.Context, filter store.ExamFilter) ([]model.Exam, error) {
	exams, err := e.store.ListExams(ctx, filter)
	if err != nil {
		return nil, internal("list exams", err)
	}
	return exams, nil
}

// AssignBatch assigns examID to every student independently. Per-student
// failures are returned as data in input order; only an unknown exam or a
// caller other than its author fails the whole call.
func (e *Exams) AssignBatch(ctx context.Context, actorID, examID string, studentIDs []string, dueDate *time.Time) (BatchResult, error) {
	exam, err := e.Get(ctx, examID)
	if err != nil {
		return BatchResult{}, err
	}
	if exam.TeacherID != actorID {
		return BatchResult{}, forbidden("only the exam's author may assign it")
	}
	if len(studentIDs) == 0 {
		return BatchResult{}, validation(ErrMissingFields, "at least one student id is required")
	}

	result := BatchResult{Assigned: []model.ExamAssignment{}, Failed: []AssignFailure{}}
	for _, studentID := range studentIDs {
		assignment, reason := e.assignOne(ctx, exam, studentID, dueDate)
		if reason != "" {
			result.Failed = append(result.Failed, AssignFailure{StudentID: studentID, Reason: reason})
			continue
		}
		result.Assigned = append(result.Assigned, assignment)
	}
	return result, nil
}

func (e *Exams) assignOne(ctx context.Context, exam model.Exam, studentID string, dueDate *time.Time) (model.ExamAssignment, string) {
	var created model.ExamAssignment
	var reason string
	err := e.store.WithTx(ctx, func(tx store.Store) error {
		student, ok, err := tx.GetUser(ctx, studentID)
		if err != nil {
			return err
		}
		if !ok || student.Role != model.RoleStudent {
			reason = ReasonNotAStudent
			return nil
		}
		existing, err := tx.ListAssignments(ctx, store.AssignmentFilter{StudentID: studentID})
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.ExamID == exam.ID {
				reason = ReasonAlreadyAssigned
				return nil
			}
		}
		var due *time.Time
		if dueDate != nil {
			d := dueDate.UTC()
			due = &d
		}
		created, err = tx.CreateAssignment(ctx, model.ExamAssignment{
			ExamID:     exam.ID,
			StudentID:  studentID,
			AssignedAt: e.now(),
			DueDate:    due,
		})
		return err
	})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return model.ExamAssignment{}, ReasonAlreadyAssigned
	case err != nil:
		log.Printf("assign exam %s to student %s: %v", exam.ID, studentID, err)
		return model.ExamAssignment{}, ReasonInternal
	}
	return created, reason
}

// Submit grades and completes an assignment. The completion is a
// compare-and-swap on completed=false, so of two racing submissions exactly
// one wins and the other gets a conflict.
func (e *Exams) Submit(ctx context.Context, studentID, assignmentID string, answers []model.Answer) (model.ExamAssignment, error) {
	assignment, err := e.GetAssignment(ctx, assignmentID)
	if err != nil {
		return model.ExamAssignment{}, err
	}
	if assignment.Completed {
		return model.ExamAssignment{}, conflict(ErrAlreadySubmitted, "Exam already submitted")
	}
	if assignment.StudentID != studentID {
		return model.ExamAssignment{}, forbidden("only the assigned student may submit answers")
	}
	exam, err := e.Get(ctx, assignment.ExamID)
	if err != nil {
		return model.ExamAssignment{}, err
	}
	submission, err := Grade(exam, answers, e.now())
	if err != nil {
		return model.ExamAssignment{}, err
	}

	var completed model.ExamAssignment
	err = e.store.WithTx(ctx, func(tx store.Store) error {
		var ok bool
		var err error
		completed, ok, err = tx.SubmitAnswers(ctx, assignmentID, submission)
		if err != nil {
			return internal("submit answers", err)
		}
		if !ok {
			return conflict(ErrAlreadySubmitted, "Exam already submitted")
		}
		_, err = NewStats(tx, e.now).RecordExamScore(ctx, studentID, float64(submission.PercentageScore))
		return err
	})
	if err != nil {
		return model.ExamAssignment{}, asOperationError("submit exam", err)
	}
	return completed, nil
}

func (e *Exams) GetAssignment(ctx context.Context, id string) (model.ExamAssignment, error) {
	assignment, ok, err := e.store.GetAssignment(ctx, id)
	if err != nil {
		return model.ExamAssignment{}, internal("get assignment", err)
	}
	if !ok {
		return model.ExamAssignment{}, notFound(ErrAssignmentNotFound)
	}
	return assignment, nil
}

func (e *Exams) ListAssignments(ctx context.Context, filter store.AssignmentFilter) ([]model.ExamAssignment, error) {
	assignments, err := e.store.ListAssignments(ctx, filter)
	if err != nil {
		return nil, internal("list assignments", err)
	}
	return assignments, nil
}

// HideAnswers returns a copy of exam without correct answers, for students
// who have not completed it yet.
func HideAnswers(exam model.Exam) model.Exam {
	questions := make([]model.Question, len(exam.Questions))
	for i, q := range exam.Questions {
		q.CorrectAnswer = model.AnswerValue{}
		q.Options = append([]string(nil), q.Options...)
		questions[i] = q
	}
	exam.Questions = questions
	return exam
}

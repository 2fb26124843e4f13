package http

import (
	"context"
	"log"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	Suspended bool      `json:"suspended"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserView(u model.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		Suspended: u.Suspended,
		CreatedAt: u.CreatedAt,
	}
}

type subjectView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func newSubjectView(s model.Subject) subjectView {
	return subjectView{ID: s.ID, Name: s.Name, Icon: s.Icon}
}

type teacherView struct {
	UserID            string                   `json:"userId"`
	Name              string                   `json:"name"`
	SubjectIDs        []string                 `json:"subjectIds"`
	HourlyRate        float64                  `json:"hourlyRate"`
	YearsOfExperience int                      `json:"yearsOfExperience"`
	Availability      []model.AvailabilitySlot `json:"availability"`
	AverageRating     float64                  `json:"averageRating"`
	TotalReviews      int                      `json:"totalReviews"`
	TotalStudents     int                      `json:"totalStudents"`
}

type sessionView struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacherId"`
	TeacherName string    `json:"teacherName"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	SubjectID   string    `json:"subjectId"`
	SubjectName string    `json:"subjectName"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type reviewView struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	TeacherID   string    `json:"teacherId"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	Rating      int       `json:"rating"`
	Comment     *string   `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type examView struct {
	ID          string           `json:"id"`
	TeacherID   string           `json:"teacherId"`
	SubjectID   string           `json:"subjectId"`
	SubjectName string           `json:"subjectName"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Questions   []model.Question `json:"questions"`
	TotalPoints int              `json:"totalPoints"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type assignmentView struct {
	ID              string               `json:"id"`
	ExamID          string               `json:"examId"`
	ExamTitle       string               `json:"examTitle"`
	StudentID       string               `json:"studentId"`
	StudentName     string               `json:"studentName"`
	AssignedAt      time.Time            `json:"assignedAt"`
	DueDate         *time.Time           `json:"dueDate,omitempty"`
	Completed       bool                 `json:"completed"`
	Answers         []model.GradedAnswer `json:"answers,omitempty"`
	Score           *int                 `json:"score,omitempty"`
	PercentageScore *int                 `json:"percentageScore,omitempty"`
	SubmittedAt     *time.Time           `json:"submittedAt,omitempty"`
}

type statView struct {
	StudentID             string    `json:"studentId"`
	TotalSessionsAttended int       `json:"totalSessionsAttended"`
	TotalExamsCompleted   int       `json:"totalExamsCompleted"`
	AverageExamScore      float64   `json:"averageExamScore"`
	LastActivity          time.Time `json:"lastActivity"`
}

func newStatView(s model.StudentStat) statView {
	return statView{
		StudentID:             s.StudentID,
		TotalSessionsAttended: s.TotalSessionsAttended,
		TotalExamsCompleted:   s.TotalExamsCompleted,
		AverageExamScore:      s.AverageExamScore,
		LastActivity:          s.LastActivity,
	}
}

type failureView struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}

// names resolves display names for the read-side projections. It caches per
// request and degrades to empty names when a lookup fails, since the core
// operation has already succeeded by the time a view is built.
type names struct {
	ctx      context.Context
	store    store.Store
	users    map[string]string
	subjects map[string]string
	exams    map[string]string
}

func newNames(ctx context.Context, st store.Store) *names {
	return &names{
		ctx:      ctx,
		store:    st,
		users:    map[string]string{},
		subjects: map[string]string{},
		exams:    map[string]string{},
	}
}

func (n *names) user(id string) string {
	if name, ok := n.users[id]; ok {
		return name
	}
	user, ok, err := n.store.GetUser(n.ctx, id)
	if err != nil {
		log.Printf("view lookup user %s: %v", id, err)
	}
	name := ""
	if ok {
		name = user.DisplayName()
	}
	n.users[id] = name
	return name
}

func (n *names) subject(id string) string {
	if name, ok := n.subjects[id]; ok {
		return name
	}
	subject, ok, err := n.store.GetSubject(n.ctx, id)
	if err != nil {
		log.Printf("view lookup subject %s: %v", id, err)
	}
	name := ""
	if ok {
		name = subject.Name
	}
	n.subjects[id] = name
	return name
}

func (n *names) exam(id string) string {
	if title, ok := n.exams[id]; ok {
		return title
	}
	exam, ok, err := n.store.GetExam(n.ctx, id)
	if err != nil {
		log.Printf("view lookup exam %s: %v", id, err)
	}
	title := ""
	if ok {
		title = exam.Title
	}
	n.exams[id] = title
	return title
}

func (n *names) session(s model.Session) sessionView {
	return sessionView{
		ID:          s.ID,
		TeacherID:   s.TeacherID,
		TeacherName: n.user(s.TeacherID),
		StudentID:   s.StudentID,
		StudentName: n.user(s.StudentID),
		SubjectID:   s.SubjectID,
		SubjectName: n.subject(s.SubjectID),
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
	}
}

func (n *names) sessions(list []model.Session) []sessionView {
	views := make([]sessionView, 0, len(list))
	for _, s := range list {
		views = append(views, n.session(s))
	}
	return views
}

func (n *names) teacher(p model.TeacherProfile) teacherView {
	availability := p.Availability
	if availability == nil {
		availability = []model.AvailabilitySlot{}
	}
	subjectIDs := p.SubjectIDs
	if subjectIDs == nil {
		subjectIDs = []string{}
	}
	return teacherView{
		UserID:            p.UserID,
		Name:              n.user(p.UserID),
		SubjectIDs:        subjectIDs,
		HourlyRate:        p.HourlyRate,
		YearsOfExperience: p.YearsOfExperience,
		Availability:      availability,
		AverageRating:     p.AverageRating,
		TotalReviews:      p.TotalReviews,
		TotalStudents:     p.TotalStudents,
	}
}

func (n *names) review(r model.Review) reviewView {
	return reviewView{
		ID:          r.ID,
		SessionID:   r.SessionID,
		TeacherID:   r.TeacherID,
		StudentID:   r.StudentID,
		StudentName: n.user(r.StudentID),
		Rating:      r.Rating,
		Comment:     r.Comment,
		CreatedAt:   r.CreatedAt,
	}
}

func (n *names) examView(e model.Exam) examView {
	questions := e.Questions
	if questions == nil {
		questions = []model.Question{}
	}
	return examView{
		ID:          e.ID,
		TeacherID:   e.TeacherID,
		SubjectID:   e.SubjectID,
		SubjectName: n.subject(e.SubjectID),
		Title:       e.Title,
		Description: e.Description,
		Questions:   questions,
		TotalPoints: e.TotalPoints(),
		CreatedAt:   e.CreatedAt,
	}
}

func (n *names) assignment(a model.ExamAssignment) assignmentView {
	return assignmentView{
		ID:              a.ID,
		ExamID:          a.ExamID,
		ExamTitle:       n.exam(a.ExamID),
		StudentID:       a.StudentID,
		StudentName:     n.user(a.StudentID),
		AssignedAt:      a.AssignedAt,
		DueDate:         a.DueDate,
		Completed:       a.Completed,
		Answers:         a.Answers,
		Score:           a.Score,
		PercentageScore: a.PercentageScore,
		SubmittedAt:     a.SubmittedAt,
	}
}

func (n *names) assignments(list []model.ExamAssignment) []assignmentView {
	views := make([]assignmentView, 0, len(list))
	for _, a := range list {
		views = append(views, n.assignment(a))
	}
	return views
}

func failureViews(failed []operations.AssignFailure) []failureView {
	views := make([]failureView, 0, len(failed))
	for _, f := range failed {
		views = append(views, failureView{StudentID: f.StudentID, Reason: f.Reason})
	}
	return views
}

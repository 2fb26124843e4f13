// Package memory is a map-backed store.Store. Ids are synthetic per-entity
// counters rendered as decimal strings.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

type table[T any] struct {
	seq   int64
	rows  map[string]T
	order []string
}

func newTable[T any]() table[T] {
	return table[T]{rows: map[string]T{}}
}

// nextID skips ids already taken by rows inserted with an explicit id.
func (t *table[T]) nextID() string {
	for {
		t.seq++
		id := strconv.FormatInt(t.seq, 10)
		if _, taken := t.rows[id]; !taken {
			return id
		}
	}
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) insert(id string, row T) {
	t.rows[id] = row
	t.order = append(t.order, id)
}

func (t *table[T]) update(id string, row T) {
	t.rows[id] = row
}

func (t *table[T]) list(keep func(T) bool) []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		row := t.rows[id]
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// clone is shallow: stored rows are replaced, never mutated in place.
func (t table[T]) clone() table[T] {
	rows := make(map[string]T, len(t.rows))
	for id, row := range t.rows {
		rows[id] = row
	}
	return table[T]{seq: t.seq, rows: rows, order: append([]string(nil), t.order...)}
}

type state struct {
	users       table[model.User]
	subjects    table[model.Subject]
	profiles    table[model.TeacherProfile]
	sessions    table[model.Session]
	reviews     table[model.Review]
	exams       table[model.Exam]
	assignments table[model.ExamAssignment]
	stats       table[model.StudentStat]
}

func newState() *state {
	return &state{
		users:       newTable[model.User](),
		subjects:    newTable[model.Subject](),
		profiles:    newTable[model.TeacherProfile](),
		sessions:    newTable[model.Session](),
		reviews:     newTable[model.Review](),
		exams:       newTable[model.Exam](),
		assignments: newTable[model.ExamAssignment](),
		stats:       newTable[model.StudentStat](),
	}
}

func (st *state) clone() *state {
	return &state{
		users:       st.users.clone(),
		subjects:    st.subjects.clone(),
		profiles:    st.profiles.clone(),
		sessions:    st.sessions.clone(),
		reviews:     st.reviews.clone(),
		exams:       st.exams.clone(),
		assignments: st.assignments.clone(),
		stats:       st.stats.clone(),
	}
}

type shared struct {
	mu sync.Mutex
	st *state
}

type Store struct {
	shared *shared
	inTx   bool
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{shared: &shared{st: newState()}, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.shared.mu.Lock()
	return s.shared.mu.Unlock
}

func (s *Store) data() *state {
	return s.shared.st
}

// WithTx serialises fn against every other caller and restores the previous
// state when fn fails. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()

	snapshot := s.shared.st.clone()
	if err := fn(&Store{shared: s.shared, inTx: true, now: s.now}); err != nil {
		s.shared.st = snapshot
		return err
	}
	return nil
}

// Users

func (s *Store) CreateUser(_ context.Context, user model.User) (model.User, error) {
	defer s.lock()()
	st := s.data()
	for _, existing := range st.users.rows {
		if strings.EqualFold(existing.Email, user.Email) {
			return model.User{}, store.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = st.users.nextID()
	} else if _, ok := st.users.get(user.ID); ok {
		return model.User{}, store.ErrDuplicate
	}
	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt
	st.users.insert(user.ID, user)
	return user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (model.User, bool, error) {
	defer s.lock()()
	user, ok := s.data().users.get(id)
	return user, ok, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, bool, error) {
	defer s.lock()()
	for _, user := range s.data().users.rows {
		if strings.EqualFold(user.Email, email) {
			return user, true, nil
		}
	}
	return model.User{}, false, nil
}

func (s *Store) ListUsers(_ context.Context, filter store.UserFilter) ([]model.User, error) {
	defer s.lock()()
	return s.data().users.list(func(u model.User) bool {
		return filter.Role == "" || u.Role == filter.Role
	}), nil
}

func (s *Store) UpdateUserRole(_ context.Context, id string, role model.Role) (model.User, bool, error) {
	defer s.lock()()
	st := s.data()
	user, ok := st.users.get(id)
	if !ok {
		return model.User{}, false, nil
	}
	user.Role = role
	user.UpdatedAt = s.now()
	st.users.update(id, user)
	return user, true, nil
}

func (s *Store) SetUserSuspended(_ context.Context, id string, suspended bool) (model.User, bool, error) {
	defer s.lock()()
	st := s.data()
	user, ok := st.users.get(id)
	if !ok {
		return model.User{}, false, nil
	}
	user.Suspended = suspended
	user.UpdatedAt = s.now()
	st.users.update(id, user)
	return user, true, nil
}

// Subjects

func (s *Store) CreateSubject(_ context.Context, subject model.Subject) (model.Subject, error) {
	defer s.lock()()
	st := s.data()
	if subject.ID == "" {
		subject.ID = st.subjects.nextID()
	} else if _, ok := st.subjects.get(subject.ID); ok {
		return model.Subject{}, store.ErrDuplicate
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = s.now()
	}
	st.subjects.insert(subject.ID, subject)
	return subject, nil
}

func (s *Store) GetSubject(_ context.Context, id string) (model.Subject, bool, error) {
	defer s.lock()()
	subject, ok := s.data().subjects.get(id)
	return subject, ok, nil
}

func (s *Store) ListSubjects(_ context.Context) ([]model.Subject, error) {
	defer s.lock()()
	return s.data().subjects.list(nil), nil
}

// Teacher profiles

func (s *Store) CreateTeacherProfile(_ context.Context, profile model.TeacherProfile) (model.TeacherProfile, error) {
	defer s.lock()()
	st := s.data()
	if _, ok := st.profiles.get(profile.UserID); ok {
		return model.TeacherProfile{}, store.ErrDuplicate
	}
	profile = cloneProfile(profile)
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = s.now()
	}
	profile.UpdatedAt = profile.CreatedAt
	st.profiles.insert(profile.UserID, profile)
	return cloneProfile(profile), nil
}

func (s *Store) GetTeacherProfile(_ context.Context, userID string) (model.TeacherProfile, bool, error) {
	defer s.lock()()
	profile, ok := s.data().profiles.get(userID)
	return cloneProfile(profile), ok, nil
}

func (s *Store) ListTeacherProfiles(_ context.Context, filter store.TeacherFilter) ([]model.TeacherProfile, error) {
	defer s.lock()()
	rows := s.data().profiles.list(func(p model.TeacherProfile) bool {
		return filter.SubjectID == "" || containsString(p.SubjectIDs, filter.SubjectID)
	})
	for i := range rows {
		rows[i] = cloneProfile(rows[i])
	}
	return rows, nil
}

// LockTeacherProfile only reports existence: transactions already run one at
// a time under the store mutex.
func (s *Store) LockTeacherProfile(_ context.Context, userID string) (bool, error) {
	defer s.lock()()
	_, ok := s.data().profiles.get(userID)
	return ok, nil
}

func (s *Store) UpdateTeacherCounters(_ context.Context, userID string, update func(*model.TeacherCounters)) (model.TeacherProfile, bool, error) {
	defer s.lock()()
	st := s.data()
	profile, ok := st.profiles.get(userID)
	if !ok {
		return model.TeacherProfile{}, false, nil
	}
	counters := model.TeacherCounters{
		AverageRating: profile.AverageRating,
		TotalReviews:  profile.TotalReviews,
		TotalStudents: profile.TotalStudents,
	}
	update(&counters)
	profile.AverageRating = counters.AverageRating
	profile.TotalReviews = counters.TotalReviews
	profile.TotalStudents = counters.TotalStudents
	profile.UpdatedAt = s.now()
	st.profiles.update(userID, profile)
	return cloneProfile(profile), true, nil
}

// Sessions

func (s *Store) CreateSession(_ context.Context, session model.Session) (model.Session, error) {
	defer s.lock()()
	st := s.data()
	if session.ID == "" {
		session.ID = st.sessions.nextID()
	} else if _, ok := st.sessions.get(session.ID); ok {
		return model.Session{}, store.ErrDuplicate
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	session.UpdatedAt = session.CreatedAt
	st.sessions.insert(session.ID, session)
	return session, nil
}

func (s *Store) GetSession(_ context.Context, id string) (model.Session, bool, error) {
	defer s.lock()()
	session, ok := s.data().sessions.get(id)
	return session, ok, nil
}

func (s *Store) ListSessions(_ context.Context, filter store.SessionFilter) ([]model.Session, error) {
	defer s.lock()()
	return s.data().sessions.list(func(sess model.Session) bool {
		if filter.TeacherID != "" && sess.TeacherID != filter.TeacherID {
			return false
		}
		if filter.StudentID != "" && sess.StudentID != filter.StudentID {
			return false
		}
		return filter.Status == "" || sess.Status == filter.Status
	}), nil
}

func (s *Store) UpdateSessionStatus(_ context.Context, id string, from, to model.SessionStatus) (model.Session, bool, error) {
	defer s.lock()()
	st := s.data()
	session, ok := st.sessions.get(id)
	if !ok || session.Status != from {
		return model.Session{}, false, nil
	}
	session.Status = to
	session.UpdatedAt = s.now()
	st.sessions.update(id, session)
	return session, true, nil
}

// Reviews

func (s *Store) CreateReview(_ context.Context, review model.Review) (model.Review, error) {
	defer s.lock()()
	st := s.data()
	for _, existing := range st.reviews.rows {
		if existing.SessionID == review.SessionID {
			return model.Review{}, store.ErrDuplicate
		}
	}
	if review.ID == "" {
		review.ID = st.reviews.nextID()
	} else if _, ok := st.reviews.get(review.ID); ok {
		return model.Review{}, store.ErrDuplicate
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = s.now()
	}
	st.reviews.insert(review.ID, review)
	return review, nil
}

func (s *Store) GetReviewBySession(_ context.Context, sessionID string) (model.Review, bool, error) {
	defer s.lock()()
	for _, review := range s.data().reviews.rows {
		if review.SessionID == sessionID {
			return review, true, nil
		}
	}
	return model.Review{}, false, nil
}

func (s *Store) ListReviews(_ context.Context, filter store.ReviewFilter) ([]model.Review, error) {
	defer s.lock()()
	return s.data().reviews.list(func(r model.Review) bool {
		if filter.TeacherID != "" && r.TeacherID != filter.TeacherID {
			return false
		}
		return filter.StudentID == "" || r.StudentID == filter.StudentID
	}), nil
}

// Exams

func (s *Store) CreateExam(_ context.Context, exam model.Exam) (model.Exam, error) {
	defer s.lock()()
	st := s.data()
	if exam.ID == "" {
		exam.ID = st.exams.nextID()
	} else if _, ok := st.exams.get(exam.ID); ok {
		return model.Exam{}, store.ErrDuplicate
	}
	exam = cloneExam(exam)
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = s.now()
	}
	st.exams.insert(exam.ID, exam)
	return cloneExam(exam), nil
}

func (s *Store) GetExam(_ context.Context, id string) (model.Exam, bool, error) {
	defer s.lock()()
	exam, ok := s.data().exams.get(id)
	return cloneExam(exam), ok, nil
}

func (s *Store) ListExams(_ context.Context, filter store.ExamFilter) ([]model.Exam, error) {
	defer s.lock()()
	rows := s.data().exams.list(func(e model.Exam) bool {
		if filter.TeacherID != "" && e.TeacherID != filter.TeacherID {
			return false
		}
		return filter.SubjectID == "" || e.SubjectID == filter.SubjectID
	})
	for i := range rows {
		rows[i] = cloneExam(rows[i])
	}
	return rows, nil
}

// Assignments

func (s *Store) CreateAssignment(_ context.Context, assignment model.ExamAssignment) (model.ExamAssignment, error) {
	defer s.lock()()
	st := s.data()
	for _, existing := range st.assignments.rows {
		if existing.ExamID == assignment.ExamID && existing.StudentID == assignment.StudentID {
			return model.ExamAssignment{}, store.ErrDuplicate
		}
	}
	if assignment.ID == "" {
		assignment.ID = st.assignments.nextID()
	} else if _, ok := st.assignments.get(assignment.ID); ok {
		return model.ExamAssignment{}, store.ErrDuplicate
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = s.now()
	}
	assignment = cloneAssignment(assignment)
	st.assignments.insert(assignment.ID, assignment)
	return cloneAssignment(assignment), nil
}

func (s *Store) GetAssignment(_ context.Context, id string) (model.ExamAssignment, bool, error) {
	defer s.lock()()
	assignment, ok := s.data().assignments.get(id)
	return cloneAssignment(assignment), ok, nil
}

func (s *Store) ListAssignments(_ context.Context, filter store.AssignmentFilter) ([]model.ExamAssignment, error) {
	defer s.lock()()
	rows := s.data().assignments.list(func(a model.ExamAssignment) bool {
		if filter.ExamID != "" && a.ExamID != filter.ExamID {
			return false
		}
		return filter.StudentID == "" || a.StudentID == filter.StudentID
	})
	for i := range rows {
		rows[i] = cloneAssignment(rows[i])
	}
	return rows, nil
}

func (s *Store) SubmitAnswers(_ context.Context, id string, submission model.Submission) (model.ExamAssignment, bool, error) {
	defer s.lock()()
	st := s.data()
	assignment, ok := st.assignments.get(id)
	if !ok || assignment.Completed {
		return model.ExamAssignment{}, false, nil
	}
	score := submission.Score
	percentage := submission.PercentageScore
	submittedAt := submission.SubmittedAt
	assignment.Completed = true
	assignment.Answers = append([]model.GradedAnswer(nil), submission.Answers...)
	assignment.Score = &score
	assignment.PercentageScore = &percentage
	assignment.SubmittedAt = &submittedAt
	st.assignments.update(id, assignment)
	return cloneAssignment(assignment), true, nil
}

// Student stats

func (s *Store) GetStudentStat(_ context.Context, studentID string) (model.StudentStat, bool, error) {
	defer s.lock()()
	stat, ok := s.data().stats.get(studentID)
	return stat, ok, nil
}

func (s *Store) UpsertStudentStat(_ context.Context, studentID string, update func(*model.StudentStat)) (model.StudentStat, error) {
	defer s.lock()()
	st := s.data()
	stat, ok := st.stats.get(studentID)
	if !ok {
		stat = model.StudentStat{StudentID: studentID, LastActivity: s.now()}
	}
	if update != nil {
		update(&stat)
	}
	stat.StudentID = studentID
	if ok {
		st.stats.update(studentID, stat)
	} else {
		st.stats.insert(studentID, stat)
	}
	return stat, nil
}

func cloneProfile(p model.TeacherProfile) model.TeacherProfile {
	p.SubjectIDs = append([]string(nil), p.SubjectIDs...)
	p.Availability = append([]model.AvailabilitySlot(nil), p.Availability...)
	return p
}

func cloneExam(e model.Exam) model.Exam {
	questions := make([]model.Question, len(e.Questions))
	for i, q := range e.Questions {
		q.Options = append([]string(nil), q.Options...)
		questions[i] = q
	}
	e.Questions = questions
	return e
}

func cloneAssignment(a model.ExamAssignment) model.ExamAssignment {
	a.Answers = append([]model.GradedAnswer(nil), a.Answers...)
	return a
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

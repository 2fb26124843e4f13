package db

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("TEACHERCONNECT_TEST_DB")
	if url == "" {
		t.Skip("TEACHERCONNECT_TEST_DB not set")
		return nil
	}
	pool, err := NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	if err := EnsureSchema(context.Background(), pool); err != nil {
		pool.Close()
		t.Fatalf("schema: %v", err)
	}
	return pool
}

func mustUser(t *testing.T, s *Store, role model.Role) model.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), model.User{
		Email:     uuid.NewString() + "@example.local",
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestPostgresSessionLifecycle(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	ctx := context.Background()
	s := NewStore(pool)

	teacher := mustUser(t, s, model.RoleTeacher)
	student := mustUser(t, s, model.RoleStudent)
	subject, err := s.CreateSubject(ctx, model.Subject{Name: "Math", Icon: "calculator"})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	if _, err := uuid.Parse(subject.ID); err != nil {
		t.Fatalf("expected uuid id, got %s", subject.ID)
	}

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	session, err := s.CreateSession(ctx, model.Session{
		TeacherID: teacher.ID,
		StudentID: student.ID,
		SubjectID: subject.ID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    model.SessionScheduled,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, ok, err := s.UpdateSessionStatus(ctx, session.ID, model.SessionPending, model.SessionCancelled); ok || err != nil {
		t.Fatalf("expected stale status to be refused, ok=%v err=%v", ok, err)
	}
	updated, ok, err := s.UpdateSessionStatus(ctx, session.ID, model.SessionScheduled, model.SessionCompleted)
	if err != nil || !ok || updated.Status != model.SessionCompleted {
		t.Fatalf("expected completed, ok=%v err=%v status=%s", ok, err, updated.Status)
	}

	sessions, err := s.ListSessions(ctx, store.SessionFilter{TeacherID: teacher.ID})
	if err != nil || len(sessions) != 1 {
		t.Fatalf("expected one teacher session, got %d (%v)", len(sessions), err)
	}

	if _, ok, err := s.GetSession(ctx, uuid.NewString()); ok || err != nil {
		t.Fatalf("expected absent session, ok=%v err=%v", ok, err)
	}
}

func TestPostgresAssignmentSubmitOnce(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	ctx := context.Background()
	s := NewStore(pool)

	teacher := mustUser(t, s, model.RoleTeacher)
	student := mustUser(t, s, model.RoleStudent)
	subject, err := s.CreateSubject(ctx, model.Subject{Name: "Geography"})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	exam, err := s.CreateExam(ctx, model.Exam{
		TeacherID: teacher.ID,
		SubjectID: subject.ID,
		Title:     "Capitals",
		Questions: []model.Question{
			{ID: 1, Text: "2?", Type: model.QuestionMultipleChoice, Options: []string{"a", "b", "c"}, CorrectAnswer: model.IndexAnswer(2), Points: 10},
			{ID: 2, Text: "Capital of France", Type: model.QuestionText, CorrectAnswer: model.TextAnswer("Paris"), Points: 5},
		},
	})
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	stored, ok, err := s.GetExam(ctx, exam.ID)
	if err != nil || !ok {
		t.Fatalf("get exam: ok=%v err=%v", ok, err)
	}
	if idx, _ := stored.Questions[0].CorrectAnswer.Index(); idx != 2 {
		t.Fatalf("expected index answer to survive jsonb, got %s", stored.Questions[0].CorrectAnswer)
	}

	assignment, err := s.CreateAssignment(ctx, model.ExamAssignment{ExamID: exam.ID, StudentID: student.ID})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if _, err := s.CreateAssignment(ctx, model.ExamAssignment{ExamID: exam.ID, StudentID: student.ID}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	submission := model.Submission{
		Answers:         []model.GradedAnswer{{QuestionID: 1, Answer: model.IndexAnswer(2), IsCorrect: true, Points: 10, CorrectAnswer: model.IndexAnswer(2)}},
		Score:           10,
		PercentageScore: 67,
		SubmittedAt:     time.Now().UTC(),
	}
	done, ok, err := s.SubmitAnswers(ctx, assignment.ID, submission)
	if err != nil || !ok || !done.Completed || *done.Score != 10 {
		t.Fatalf("expected completed assignment, ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.SubmitAnswers(ctx, assignment.ID, submission); ok || err != nil {
		t.Fatalf("expected second submit to be refused, ok=%v err=%v", ok, err)
	}
}

func TestPostgresStudentStatUpsertAndRollback(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	ctx := context.Background()
	s := NewStore(pool)
	student := mustUser(t, s, model.RoleStudent)

	stat, err := s.UpsertStudentStat(ctx, student.ID, func(st *model.StudentStat) { st.TotalSessionsAttended++ })
	if err != nil || stat.TotalSessionsAttended != 1 {
		t.Fatalf("expected first upsert to create, got %+v (%v)", stat, err)
	}

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.UpsertStudentStat(ctx, student.ID, func(st *model.StudentStat) { st.TotalSessionsAttended++ }); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	stat, ok, err := s.GetStudentStat(ctx, student.ID)
	if err != nil || !ok || stat.TotalSessionsAttended != 1 {
		t.Fatalf("expected rollback to keep 1, got %+v ok=%v err=%v", stat, ok, err)
	}
}

func TestPostgresTeacherCountersUnderConcurrency(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	ctx := context.Background()
	s := NewStore(pool)

	teacher := mustUser(t, s, model.RoleTeacher)
	subject, err := s.CreateSubject(ctx, model.Subject{Name: "Chemistry"})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	if _, err := s.CreateTeacherProfile(ctx, model.TeacherProfile{UserID: teacher.ID, SubjectIDs: []string{subject.ID}}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if ok, err := s.LockTeacherProfile(ctx, uuid.NewString()); ok || err != nil {
		t.Fatalf("expected no profile to lock, ok=%v err=%v", ok, err)
	}

	sessions := operations.NewSessions(s, nil)
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	booking := func(studentID string) operations.CreateSessionInput {
		return operations.CreateSessionInput{TeacherID: teacher.ID, StudentID: studentID, SubjectID: subject.ID, StartTime: start, EndTime: start.Add(time.Hour)}
	}

	// Same pair booked concurrently: one distinct student.
	repeat := mustUser(t, s, model.RoleStudent)
	run(t, 6, func(int) error {
		_, err := sessions.Create(ctx, booking(repeat.ID))
		return err
	})

	// Distinct students reviewing concurrently: every rating counts.
	ratings := []int{5, 4, 3, 4}
	reviewers := make([]operations.CreateReviewInput, len(ratings))
	for i, rating := range ratings {
		student := mustUser(t, s, model.RoleStudent)
		session, err := sessions.Create(ctx, booking(student.ID))
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		if _, err := sessions.UpdateStatus(ctx, session.ID, model.SessionCompleted); err != nil {
			t.Fatalf("complete session: %v", err)
		}
		reviewers[i] = operations.CreateReviewInput{SessionID: session.ID, StudentID: student.ID, Rating: rating}
	}
	reviews := operations.NewReviews(s, nil)
	run(t, len(reviewers), func(i int) error {
		_, err := reviews.Create(ctx, reviewers[i])
		return err
	})

	profile, ok, err := s.GetTeacherProfile(ctx, teacher.ID)
	if err != nil || !ok {
		t.Fatalf("get profile: ok=%v err=%v", ok, err)
	}
	if profile.TotalStudents != 1+len(ratings) {
		t.Fatalf("expected %d distinct students, got %d", 1+len(ratings), profile.TotalStudents)
	}
	if profile.TotalReviews != len(ratings) || profile.AverageRating != 4.0 {
		t.Fatalf("expected 4 reviews averaging 4.0, got %d averaging %v", profile.TotalReviews, profile.AverageRating)
	}
}

func run(t *testing.T, n int, fn func(i int) error) {
	t.Helper()
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn(i)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

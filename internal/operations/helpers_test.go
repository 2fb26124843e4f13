package operations_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
	"github.com/12darko/TeacherConnect-sub000/internal/store/memory"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fixture struct {
	store   *memory.Store
	teacher model.User
	student model.User
	subject model.Subject
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	f := fixture{store: st}
	f.teacher = mustUser(t, st, "teacher@example.com", model.RoleTeacher)
	f.student = mustUser(t, st, "student@example.com", model.RoleStudent)
	var err error
	f.subject, err = st.CreateSubject(ctx, model.Subject{Name: "Mathematics", Icon: "calculator"})
	require.NoError(t, err)
	_, err = st.CreateTeacherProfile(ctx, model.TeacherProfile{UserID: f.teacher.ID, SubjectIDs: []string{f.subject.ID}, HourlyRate: 30})
	require.NoError(t, err)
	return f
}

func mustUser(t *testing.T, st *memory.Store, email string, role model.Role) model.User {
	t.Helper()
	user, err := st.CreateUser(context.Background(), model.User{Email: email, FirstName: "Test", LastName: string(role), Role: role})
	require.NoError(t, err)
	return user
}

func requireKind(t *testing.T, err error, kind operations.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, operations.KindOf(err), "error: %v", err)
	if code != "" {
		require.Equal(t, code, operations.CodeOf(err))
	}
}

// callLog records store calls in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) requireOrder(t *testing.T, names ...string) {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	last := -1
	for _, name := range names {
		at := -1
		for i := last + 1; i < len(l.calls); i++ {
			if l.calls[i] == name {
				at = i
				break
			}
		}
		require.NotEqual(t, -1, at, "%s not called after position %d in %v", name, last, l.calls)
		last = at
	}
}

// tracedStore logs the calls around derived counters and can make
// CreateAssignment fail for one student. Transactions hand out tracedStores
// as well.
type tracedStore struct {
	store.Store
	log               *callLog
	failAssignmentFor string
}

var errStorageDown = errors.New("connection reset by peer")

func (s tracedStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return s.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(tracedStore{Store: tx, log: s.log, failAssignmentFor: s.failAssignmentFor})
	})
}

func (s tracedStore) LockTeacherProfile(ctx context.Context, userID string) (bool, error) {
	s.log.add("LockTeacherProfile")
	return s.Store.LockTeacherProfile(ctx, userID)
}

func (s tracedStore) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	s.log.add("ListSessions")
	return s.Store.ListSessions(ctx, filter)
}

func (s tracedStore) CreateReview(ctx context.Context, review model.Review) (model.Review, error) {
	s.log.add("CreateReview")
	return s.Store.CreateReview(ctx, review)
}

func (s tracedStore) ListReviews(ctx context.Context, filter store.ReviewFilter) ([]model.Review, error) {
	s.log.add("ListReviews")
	return s.Store.ListReviews(ctx, filter)
}

func (s tracedStore) UpdateTeacherCounters(ctx context.Context, userID string, update func(*model.TeacherCounters)) (model.TeacherProfile, bool, error) {
	s.log.add("UpdateTeacherCounters")
	return s.Store.UpdateTeacherCounters(ctx, userID, update)
}

func (s tracedStore) CreateAssignment(ctx context.Context, assignment model.ExamAssignment) (model.ExamAssignment, error) {
	if assignment.StudentID == s.failAssignmentFor {
		return model.ExamAssignment{}, errStorageDown
	}
	return s.Store.CreateAssignment(ctx, assignment)
}

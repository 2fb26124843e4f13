package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/12darko/TeacherConnect-sub000/internal/auth"
	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearerabc":    "",
	}
	for header, expect := range cases {
		if got := bearerToken(header); got != expect {
			t.Fatalf("header %q: expected %q, got %q", header, expect, got)
		}
	}
}

func TestStatusForKind(t *testing.T) {
	cases := map[operations.Kind]int{
		operations.KindNotFound:     http.StatusNotFound,
		operations.KindValidation:   http.StatusBadRequest,
		operations.KindConflict:     http.StatusConflict,
		operations.KindForbidden:    http.StatusForbidden,
		operations.KindUnauthorized: http.StatusUnauthorized,
		operations.KindInternal:     http.StatusInternalServerError,
	}
	for kind, expect := range cases {
		if got := statusForKind(kind); got != expect {
			t.Fatalf("kind %s: expected %d, got %d", kind, expect, got)
		}
	}
}

func TestWriteOpErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	writeOpError(rec, req, errors.New("pq: connection refused to 10.0.0.3"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"error\":\"server_error\"}\n" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestCanMoveSession(t *testing.T) {
	session := model.Session{TeacherID: "t", StudentID: "s"}
	teacher := &auth.Claims{UserID: "t", Role: "teacher"}
	student := &auth.Claims{UserID: "s", Role: "student"}
	admin := &auth.Claims{UserID: "a", Role: "admin"}

	if !canMoveSession(teacher, session, model.SessionCompleted) || canMoveSession(student, session, model.SessionCompleted) {
		t.Fatalf("only the teacher completes")
	}
	if !canMoveSession(teacher, session, model.SessionScheduled) || canMoveSession(student, session, model.SessionScheduled) {
		t.Fatalf("only the teacher confirms")
	}
	if !canMoveSession(student, session, model.SessionCancelled) || !canMoveSession(teacher, session, model.SessionCancelled) {
		t.Fatalf("either party cancels")
	}
	if !canMoveSession(admin, session, model.SessionCompleted) {
		t.Fatalf("admins may do anything")
	}
}

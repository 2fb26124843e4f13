package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/12darko/TeacherConnect-sub000/internal/auth"
	"github.com/12darko/TeacherConnect-sub000/internal/config"
	"github.com/12darko/TeacherConnect-sub000/internal/metrics"
	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/signaling"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

type Server struct {
	cfg      config.Config
	store    store.Store
	sessions *operations.Sessions
	exams    *operations.Exams
	reviews  *operations.Reviews
	identity *operations.Identity
	catalog  *operations.Catalog
	stats    *operations.Stats
	relay    signaling.Relay
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      operations.Clock
	ping     func(context.Context) error
}

type Option func(*Server)

// WithClock pins the time source, for tests.
func WithClock(now operations.Clock) Option {
	return func(s *Server) { s.now = now }
}

// WithHealthCheck makes /health report the result of ping, e.g. a database
// round trip.
func WithHealthCheck(ping func(context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

func NewServer(cfg config.Config, st store.Store, relay signaling.Relay, m *metrics.Metrics, opts ...Option) *Server {
	if relay == nil {
		relay = signaling.NewMemoryRelay(cfg.SignalBuffer)
	}
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		cfg:      cfg,
		store:    st,
		relay:    relay,
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = operations.NewSessions(st, s.now)
	s.exams = operations.NewExams(st, s.now)
	s.reviews = operations.NewReviews(st, s.now)
	s.catalog = operations.NewCatalog(st, s.now)
	s.stats = operations.NewStats(st, s.now)
	s.identity = operations.NewIdentity(st, operations.TokenConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.AccessTokenTTL,
	}, s.now)
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.With(s.authMiddleware).Get("/auth/me", s.handleMe)

	r.Route("/users", func(r chi.Router) {
		r.Use(s.authMiddleware, requireRole(model.RoleAdmin))
		r.Get("/", s.handleListUsers)
		r.Patch("/{userID}/role", s.handleUpdateRole)
		r.Patch("/{userID}/suspension", s.handleSuspend)
	})

	r.Get("/subjects", s.handleListSubjects)
	r.With(s.authMiddleware, requireRole(model.RoleAdmin)).Post("/subjects", s.handleCreateSubject)

	r.Get("/teachers", s.handleListTeachers)
	r.Get("/teachers/{teacherID}", s.handleGetTeacher)
	r.Get("/teachers/{teacherID}/reviews", s.handleListTeacherReviews)
	r.With(s.authMiddleware, requireRole(model.RoleTeacher)).Post("/teachers/me/profile", s.handleCreateProfile)

	r.With(s.authMiddleware).Get("/students/{studentID}/stats", s.handleStudentStats)

	r.Route("/sessions", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)
		r.Get("/{sessionID}", s.handleGetSession)
		r.Patch("/{sessionID}", s.handleUpdateSession)
		r.With(requireRole(model.RoleStudent)).Post("/{sessionID}/reviews", s.handleCreateReview)
		r.Post("/{sessionID}/signal", s.handleSignal)
		r.Get("/{sessionID}/events", s.handleEvents)
	})

	r.Route("/exams", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListExams)
		r.With(requireRole(model.RoleTeacher)).Post("/", s.handleCreateExam)
		r.Get("/{examID}", s.handleGetExam)
	})

	r.Route("/exam-assignments", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListAssignments)
		r.With(requireRole(model.RoleTeacher)).Post("/", s.handleAssignExam)
		r.Get("/{assignmentID}", s.handleGetAssignment)
		r.With(requireRole(model.RoleStudent)).Post("/{assignmentID}/submit", s.handleSubmitExam)
	})

	return r
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			log.Printf("health check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authMiddleware resolves the bearer token into claims. The user is looked
// up on every request so that suspension takes effect before the token
// expires.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		user, ok, err := s.store.GetUser(r.Context(), claims.UserID)
		if err != nil {
			log.Printf("auth lookup %s: %v", claims.UserID, err)
			writeError(w, http.StatusInternalServerError, operations.ErrServerError)
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		if user.Suspended {
			writeError(w, http.StatusForbidden, operations.ErrAccountSuspended)
			return
		}
		// The stored role wins over the one baked into the token.
		claims.Role = string(user.Role)

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			for _, role := range roles {
				if claims.Role == string(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, operations.ErrForbidden)
		})
	}
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func isAdmin(claims *auth.Claims) bool {
	return claims != nil && claims.Role == string(model.RoleAdmin)
}

func hasRole(claims *auth.Claims, role model.Role) bool {
	return claims != nil && claims.Role == string(role)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// decodeAndValidate decodes a JSON body and checks its validate tags. It
// writes the 400 response itself and reports whether the handler may go on.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := decodeJSON(r, out); err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			writeErrorDetail(w, http.StatusBadRequest, operations.ErrMissingFields, "invalid fields: "+strings.Join(fields, ", "))
			return false
		}
		writeErrorDetail(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeErrorDetail(w http.ResponseWriter, status int, code, detail string) {
	if detail == "" {
		writeError(w, status, code)
		return
	}
	writeJSON(w, status, map[string]string{"error": code, "detail": detail})
}

// writeOpError maps the operations error taxonomy onto HTTP. Internal errors
// are logged in full and reported with a generic code.
func writeOpError(w http.ResponseWriter, r *http.Request, err error) {
	kind := operations.KindOf(err)
	if kind == operations.KindInternal {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, operations.ErrServerError)
		return
	}
	var opErr *operations.Error
	detail := ""
	if errors.As(err, &opErr) {
		detail = opErr.Detail
	}
	writeErrorDetail(w, statusForKind(kind), operations.CodeOf(err), detail)
}

func statusForKind(kind operations.Kind) int {
	switch kind {
	case operations.KindNotFound:
		return http.StatusNotFound
	case operations.KindValidation:
		return http.StatusBadRequest
	case operations.KindConflict:
		return http.StatusConflict
	case operations.KindForbidden:
		return http.StatusForbidden
	case operations.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

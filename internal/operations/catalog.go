package operations

import (
	"context"
	"errors"
	"strings"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

type CreateProfileInput struct {
	UserID            string
	SubjectIDs        []string
	HourlyRate        float64
	YearsOfExperience int
	Availability      []model.AvailabilitySlot
}

// Catalog holds the marketplace reference data: subjects and teacher
// profiles.
type Catalog struct {
	store store.Store
	now   Clock
}

func NewCatalog(st store.Store, now Clock) *Catalog {
	return &Catalog{store: st, now: clockOrSystem(now)}
}

func (c *Catalog) CreateSubject(ctx context.Context, name, icon string) (model.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Subject{}, validation(ErrMissingFields, "subject name is required")
	}
	subject, err := c.store.CreateSubject(ctx, model.Subject{Name: name, Icon: strings.TrimSpace(icon), CreatedAt: c.now()})
	if err != nil {
		return model.Subject{}, internal("create subject", err)
	}
	return subject, nil
}

func (c *Catalog) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	subjects, err := c.store.ListSubjects(ctx)
	if err != nil {
		return nil, internal("list subjects", err)
	}
	return subjects, nil
}

func (c *Catalog) GetSubject(ctx context.Context, id string) (model.Subject, error) {
	subject, ok, err := c.store.GetSubject(ctx, id)
	if err != nil {
		return model.Subject{}, internal("get subject", err)
	}
	if !ok {
		return model.Subject{}, notFound(ErrSubjectNotFound)
	}
	return subject, nil
}

// CreateProfile creates the caller's teacher profile. Counters start at zero
// and are only ever moved by sessions and reviews.
func (c *Catalog) CreateProfile(ctx context.Context, in CreateProfileInput) (model.TeacherProfile, error) {
	if in.HourlyRate < 0 || in.YearsOfExperience < 0 {
		return model.TeacherProfile{}, validation(ErrInvalidProfile, "hourly rate and experience must not be negative")
	}
	for _, slot := range in.Availability {
		if slot.Weekday < 0 || slot.Weekday > 6 || slot.StartTime == "" || slot.EndTime == "" || slot.EndTime <= slot.StartTime {
			return model.TeacherProfile{}, validation(ErrInvalidProfile, "invalid availability slot")
		}
	}
	if err := requireRole(ctx, c.store, in.UserID, model.RoleTeacher); err != nil {
		return model.TeacherProfile{}, err
	}
	seen := make(map[string]struct{}, len(in.SubjectIDs))
	subjectIDs := make([]string, 0, len(in.SubjectIDs))
	for _, id := range in.SubjectIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := c.GetSubject(ctx, id); err != nil {
			return model.TeacherProfile{}, err
		}
		subjectIDs = append(subjectIDs, id)
	}

	now := c.now()
	profile, err := c.store.CreateTeacherProfile(ctx, model.TeacherProfile{
		UserID:            in.UserID,
		SubjectIDs:        subjectIDs,
		HourlyRate:        in.HourlyRate,
		YearsOfExperience: in.YearsOfExperience,
		Availability:      in.Availability,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return model.TeacherProfile{}, conflict(ErrProfileExists, "teacher profile already exists")
	}
	if err != nil {
		return model.TeacherProfile{}, internal("create teacher profile", err)
	}
	return profile, nil
}

func (c *Catalog) GetProfile(ctx context.Context, userID string) (model.TeacherProfile, error) {
	profile, ok, err := c.store.GetTeacherProfile(ctx, userID)
	if err != nil {
		return model.TeacherProfile{}, internal("get teacher profile", err)
	}
	if !ok {
		return model.TeacherProfile{}, notFound(ErrProfileNotFound)
	}
	return profile, nil
}

func (c *Catalog) ListProfiles(ctx context.Context, filter store.TeacherFilter) ([]model.TeacherProfile, error) {
	profiles, err := c.store.ListTeacherProfiles(ctx, filter)
	if err != nil {
		return nil, internal("list teacher profiles", err)
	}
	return profiles, nil
}

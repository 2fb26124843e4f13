package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string
	Email        string
	PasswordHash *string
	FirstName    string
	LastName     string
	Role         Role
	Suspended    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Subject struct {
	ID        string
	Name      string
	Icon      string
	CreatedAt time.Time
}

type AvailabilitySlot struct {
	Weekday   time.Weekday `json:"weekday"`
	StartTime string       `json:"startTime"`
	EndTime   string       `json:"endTime"`
}

type TeacherProfile struct {
	UserID            string
	SubjectIDs        []string
	HourlyRate        float64
	YearsOfExperience int
	Availability      []AvailabilitySlot
	AverageRating     float64
	TotalReviews      int
	TotalStudents     int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TeacherCounters are the derived TeacherProfile fields. Clients never set them.
type TeacherCounters struct {
	AverageRating float64
	TotalReviews  int
	TotalStudents int
}

type Review struct {
	ID        string
	SessionID string
	TeacherID string
	StudentID string
	Rating    int
	Comment   *string
	CreatedAt time.Time
}

type StudentStat struct {
	StudentID             string
	TotalSessionsAttended int
	TotalExamsCompleted   int
	AverageExamScore      float64
	LastActivity          time.Time
}

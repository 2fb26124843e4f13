package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionText           QuestionType = "text"
)

// AnswerValue holds either a multiple-choice option index or a free-text
// answer. On the wire it is a JSON integer or a JSON string.
type AnswerValue struct {
	index *int
	text  *string
}

func IndexAnswer(i int) AnswerValue {
	return AnswerValue{index: &i}
}

func TextAnswer(s string) AnswerValue {
	return AnswerValue{text: &s}
}

func (a AnswerValue) Index() (int, bool) {
	if a.index == nil {
		return 0, false
	}
	return *a.index, true
}

func (a AnswerValue) Text() (string, bool) {
	if a.text == nil {
		return "", false
	}
	return *a.text, true
}

func (a AnswerValue) IsZero() bool {
	return a.index == nil && a.text == nil
}

// Equal is strict: an index never equals a string, and strings compare
// byte for byte.
func (a AnswerValue) Equal(b AnswerValue) bool {
	switch {
	case a.index != nil && b.index != nil:
		return *a.index == *b.index
	case a.text != nil && b.text != nil:
		return *a.text == *b.text
	}
	return false
}

func (a AnswerValue) String() string {
	if a.index != nil {
		return strconv.Itoa(*a.index)
	}
	if a.text != nil {
		return strconv.Quote(*a.text)
	}
	return "null"
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch {
	case a.index != nil:
		return json.Marshal(*a.index)
	case a.text != nil:
		return json.Marshal(*a.text)
	}
	return []byte("null"), nil
}

var errInvalidAnswer = errors.New("answer must be an integer index or a string")

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = AnswerValue{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	}
	i, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidAnswer
	}
	*a = IndexAnswer(i)
	return nil
}

type Question struct {
	ID            int          `json:"id"`
	Text          string       `json:"question"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer AnswerValue  `json:"correctAnswer"`
	Points        int          `json:"points"`
}

type Exam struct {
	ID          string
	TeacherID   string
	SubjectID   string
	Title       string
	Description *string
	Questions   []Question
	CreatedAt   time.Time
}

func (e Exam) TotalPoints() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

func (e Exam) Question(id int) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type Answer struct {
	QuestionID int         `json:"questionId"`
	Answer     AnswerValue `json:"answer"`
}

type GradedAnswer struct {
	QuestionID    int         `json:"questionId"`
	Answer        AnswerValue `json:"answer"`
	IsCorrect     bool        `json:"isCorrect"`
	Points        int         `json:"points"`
	CorrectAnswer AnswerValue `json:"correctAnswer"`
}

type ExamAssignment struct {
	ID              string
	ExamID          string
	StudentID       string
	AssignedAt      time.Time
	DueDate         *time.Time
	Completed       bool
	Answers         []GradedAnswer
	Score           *int
	PercentageScore *int
	SubmittedAt     *time.Time
}

// Submission is the graded result written when an assignment completes.
type Submission struct {
	Answers         []GradedAnswer
	Score           int
	PercentageScore int
	SubmittedAt     time.Time
}

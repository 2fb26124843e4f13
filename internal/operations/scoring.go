package operations

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/model"
)

// Grade scores answers against exam. Every question must be answered exactly
// once and no answer may name a question the exam does not have. Comparison
// is strict: an option index must match the correct index and a text answer
// must match byte for byte.
func Grade(exam model.Exam, answers []model.Answer, submittedAt time.Time) (model.Submission, error) {
	byQuestion := make(map[int]model.AnswerValue, len(answers))
	var unknown, repeated []int
	for _, a := range answers {
		if _, ok := exam.Question(a.QuestionID); !ok {
			unknown = append(unknown, a.QuestionID)
			continue
		}
		if _, seen := byQuestion[a.QuestionID]; seen {
			repeated = append(repeated, a.QuestionID)
			continue
		}
		byQuestion[a.QuestionID] = a.Answer
	}
	if len(unknown) > 0 {
		return model.Submission{}, validation(ErrInvalidAnswers, "unknown question ids: %s", joinIDs(unknown))
	}
	if len(repeated) > 0 {
		return model.Submission{}, validation(ErrInvalidAnswers, "questions answered more than once: %s", joinIDs(repeated))
	}

	var missing []int
	for _, q := range exam.Questions {
		if a, ok := byQuestion[q.ID]; !ok || a.IsZero() {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		return model.Submission{}, validation(ErrMissingAnswers, "missing answers for questions: %s", joinIDs(missing))
	}

	graded := make([]model.GradedAnswer, 0, len(exam.Questions))
	score := 0
	for _, q := range exam.Questions {
		given := byQuestion[q.ID]
		correct := given.Equal(q.CorrectAnswer)
		awarded := 0
		if correct {
			awarded = q.Points
		}
		score += awarded
		graded = append(graded, model.GradedAnswer{
			QuestionID:    q.ID,
			Answer:        given,
			IsCorrect:     correct,
			Points:        awarded,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	return model.Submission{
		Answers:         graded,
		Score:           score,
		PercentageScore: Percentage(score, exam.TotalPoints()),
		SubmittedAt:     submittedAt,
	}, nil
}

// Percentage is round(100*score/total), or 0 for an exam worth nothing.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}

func joinIDs(ids []int) string {
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

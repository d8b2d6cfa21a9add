package services

import (
	"testing"

	"tutorlink_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestions() []ScorableQuestion {
	return []ScorableQuestion{
		{ID: 1, CorrectAnswer: "Paris", Subject: "Geography", Points: 1},
		{ID: 2, CorrectAnswer: "4", Subject: "Math", Points: 2},
		{ID: 3, CorrectAnswer: "9", Subject: "Math", Points: 2},
		{ID: 4, CorrectAnswer: "H2O", Subject: "Chemistry", Points: 1},
	}
}

func TestScoreAnswers(t *testing.T) {
	out := ScoreAnswers(sampleQuestions(), []SubmittedAnswer{
		{QuestionID: 1, Answer: "  paris "},
		{QuestionID: 2, Answer: "4"},
		{QuestionID: 3, Answer: "8"},
		{QuestionID: 99, Answer: "ignored"},
	})

	assert.Equal(t, 3.0, out.Score)
	assert.Equal(t, 6.0, out.Total)
	assert.Equal(t, 50.0, out.Percentage)

	require.Len(t, out.Records, 4)
	assert.True(t, out.Records[0].Correct)
	assert.True(t, out.Records[1].Correct)
	assert.False(t, out.Records[2].Correct)
	assert.False(t, out.Records[3].Correct, "unanswered counts as wrong")

	assert.Equal(t, []SubjectScore{
		{Subject: "Geography", Score: 1, Total: 1, Percentage: 100},
		{Subject: "Math", Score: 2, Total: 4, Percentage: 50},
		{Subject: "Chemistry", Score: 0, Total: 1, Percentage: 0},
	}, out.BySubject)

	assert.Equal(t, []string{"Chemistry", "Math"}, RecommendSubjects(out.BySubject, 70))
}

func TestScoreAnswersEmpty(t *testing.T) {
	out := ScoreAnswers(nil, nil)
	assert.Equal(t, 0.0, out.Percentage)
	assert.Empty(t, RecommendSubjects(out.BySubject, 70))
}

func TestScoreAnswersFirstDuplicateWins(t *testing.T) {
	out := ScoreAnswers(sampleQuestions()[:1], []SubmittedAnswer{
		{QuestionID: 1, Answer: "London"},
		{QuestionID: 1, Answer: "Paris"},
	})
	assert.Equal(t, 0.0, out.Score)
}

func TestAnswerMatches(t *testing.T) {
	tests := []struct {
		typ, given, correct string
		want                bool
	}{
		{models.QuestionMultipleChoice, "B", "b", true},
		{models.QuestionMultipleChoice, "", "", false},
		{models.QuestionShortAnswer, " Photosynthesis ", "photosynthesis", true},
		{models.QuestionTrueFalse, "t", "True", true},
		{models.QuestionTrueFalse, "yes", "true", true},
		{models.QuestionTrueFalse, "no", "true", false},
		{models.QuestionTrueFalse, "F", "false", true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, AnswerMatches(tc.typ, tc.given, tc.correct), "%s %q vs %q", tc.typ, tc.given, tc.correct)
	}
}

func TestApplicationOutcome(t *testing.T) {
	pct, passed := ApplicationOutcome(7, 10, 70)
	assert.Equal(t, 70.0, pct)
	assert.True(t, passed)

	pct, passed = ApplicationOutcome(2, 3, 70)
	assert.Equal(t, 66.67, pct)
	assert.False(t, passed)

	_, passed = ApplicationOutcome(0, 0, 0)
	assert.False(t, passed)
}

func TestBookingTransitions(t *testing.T) {
	assert.NoError(t, CheckBookingTransition(models.BookingPending, models.BookingAccepted, ActorTutor))
	assert.NoError(t, CheckBookingTransition(models.BookingAccepted, models.BookingActive, ActorScheduler))
	assert.NoError(t, CheckBookingTransition(models.BookingAccepted, models.BookingCancelled, ActorStudent))
	assert.ErrorIs(t, CheckBookingTransition(models.BookingPending, models.BookingAccepted, ActorStudent), ErrForbidden)
	assert.ErrorIs(t, CheckBookingTransition(models.BookingCompleted, models.BookingActive, ActorAdmin), ErrInvalidTransition)
	assert.ErrorIs(t, CheckBookingTransition(models.BookingPending, models.BookingCompleted, ActorTutor), ErrInvalidTransition)
	assert.ErrorIs(t, CheckBookingTransition(models.BookingPending, models.BookingActive, ActorScheduler), ErrInvalidTransition)

	assert.NoError(t, CheckApplicationTransition(models.ApplicationPending, models.ApplicationApproved))
	assert.ErrorIs(t, CheckApplicationTransition(models.ApplicationRejected, models.ApplicationApproved), ErrInvalidTransition)
	assert.ErrorIs(t, CheckApplicationTransition(models.ApplicationApproved, models.ApplicationApproved), ErrInvalidTransition)
}

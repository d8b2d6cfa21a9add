package services

import (
	"testing"
	"time"

	"tutorlink_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanModerate(t *testing.T) {
	author := &models.User{Role: models.RoleStudent}
	author.ID = 7
	admin := &models.User{Role: models.RoleAdmin}
	admin.ID = 1
	other := &models.User{Role: models.RoleTutor}
	other.ID = 9

	assert.True(t, canModerate(author, 7))
	assert.True(t, canModerate(admin, 7))
	assert.False(t, canModerate(other, 7))
}

func TestCounterpart(t *testing.T) {
	m := models.ChatMessage{SenderID: 3, ReceiverID: 4}
	assert.Equal(t, uint(4), counterpart(m, 3))
	assert.Equal(t, uint(3), counterpart(m, 4))
}

func TestBookingBetween(t *testing.T) {
	b := &models.Booking{StudentID: 10, Tutor: models.Tutor{UserID: 20}}
	assert.True(t, bookingBetween(b, 10, 20))
	assert.True(t, bookingBetween(b, 20, 10))
	assert.False(t, bookingBetween(b, 10, 30))
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, uniqueIDs([]uint{3, 1, 0, 3, 2, 1}))
	assert.Empty(t, uniqueIDs(nil))
}

func TestParseDueDate(t *testing.T) {
	d, err := parseDueDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDueDate("2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 23, d.Hour())

	d, err = parseDueDate("2026-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, d.UTC().Hour())

	_, err = parseDueDate("next week")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestToPostQuestionsDefaults(t *testing.T) {
	qs := toPostQuestions([]QuestionInput{
		{Question: " 2+2? ", Options: []string{"3", " 4 ", ""}, CorrectAnswer: "4"},
		{QuestionType: models.QuestionTrueFalse, Question: "Sky is blue", CorrectAnswer: "true", Points: 3},
	})
	require.Len(t, qs, 2)
	assert.Equal(t, models.QuestionMultipleChoice, qs[0].QuestionType)
	assert.Equal(t, "2+2?", qs[0].Question)
	assert.Equal(t, 1, qs[0].Points)
	assert.Equal(t, 1, qs[0].Order)
	assert.Equal(t, 3, qs[1].Points)
	assert.Equal(t, 2, qs[1].Order)
}

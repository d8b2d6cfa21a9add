package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadSheet(t *testing.T) {
	data, err := WriteSheet("Applications", []string{"ID", "Name", "Percentage"}, [][]interface{}{
		{1, "Ana Cruz", 85.5},
		{2, "Ben Lim", 40.0},
	})
	require.NoError(t, err)

	rows, err := ReadSheet(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Name", "Percentage"}, rows[0])
	assert.Equal(t, "Ana Cruz", rows[1][1])
	assert.Equal(t, "85.5", rows[1][2])
}

func TestParseQuestionRows(t *testing.T) {
	rows := [][]string{
		{"Question", "Option A", "Option B", "Option C", "Option D", "Correct", "Subject", "Points"},
		{"2 + 2 = ?", "3", "4", "5", "", "B", "Math", "2"},
		{"Capital of France", "Paris", "Rome", "", "", "Paris", "Geography", ""},
		{"", "", "", "", "", "", "", ""},
		{"Broken", "x", "", "", "", "C", "Math", "1"},
		{"No answer", "x", "y", "", "", "", "Math", "1"},
		{"Bad points", "x", "y", "", "", "A", "Math", "two"},
	}
	qs, errs := ParseQuestionRows(rows)
	require.Len(t, qs, 2)
	assert.Equal(t, "4", qs[0].CorrectAnswer)
	assert.Equal(t, []string{"3", "4", "5"}, qs[0].Options)
	assert.Equal(t, 2, qs[0].Points)
	assert.Equal(t, 1, qs[1].Points)
	assert.Equal(t, 2, qs[1].Order)

	require.Len(t, errs, 3)
	assert.Equal(t, 5, errs[0].Row)
	assert.Equal(t, 6, errs[1].Row)
	assert.Equal(t, 7, errs[2].Row)
}

func TestParseQuestionRowsNeedsHeader(t *testing.T) {
	_, errs := ParseQuestionRows([][]string{{"foo", "bar"}})
	require.Len(t, errs, 1)
	_, errs = ParseQuestionRows(nil)
	require.Len(t, errs, 1)
}

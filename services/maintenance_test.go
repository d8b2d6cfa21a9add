package services

import (
	"testing"

	"tutorlink_go/models"

	"github.com/stretchr/testify/assert"
)

func TestNormaliseApplicationStatus(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"pending":    {"pending", true},
		" Approved ": {"approved", true},
		"REJECTED":   {"rejected", true},
		"done":       {"", false},
		"":           {"", false},
	}
	for in, tc := range cases {
		got, ok := NormaliseApplicationStatus(in)
		assert.Equal(t, tc.want, got, in)
		assert.Equal(t, tc.ok, ok, in)
	}
}

func TestInspectApplication(t *testing.T) {
	clean := models.TutorApplication{
		Status:               models.ApplicationApproved,
		AssessmentScore:      8,
		AssessmentTotal:      10,
		AssessmentPercentage: 80,
		AssessmentPassed:     true,
	}
	assert.Empty(t, InspectApplication(clean, true, 70))
	assert.Equal(t, []string{IssueMissingTutor}, InspectApplication(clean, false, 70))

	cased := clean
	cased.Status = "Approved "
	assert.Equal(t, []string{IssueStatusCasing}, InspectApplication(cased, true, 70))

	invalid := clean
	invalid.Status = "accepted"
	assert.Equal(t, []string{IssueInvalidStatus}, InspectApplication(invalid, true, 70))

	stale := clean
	stale.AssessmentPassed = false
	assert.Equal(t, []string{IssueAssessmentMismatch}, InspectApplication(stale, true, 70))

	pending := models.TutorApplication{Status: models.ApplicationPending}
	assert.Empty(t, InspectApplication(pending, false, 70))
}

func TestJSONColumnReportBad(t *testing.T) {
	rep := JSONColumnReport{Rows: 5, Kinds: map[string]int{
		models.JSONKindArray:         3,
		models.JSONKindDoubleEncoded: 1,
		models.JSONKindNull:          1,
	}}
	assert.Equal(t, 2, rep.Bad())
}

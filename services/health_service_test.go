package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCombineStatus(t *testing.T) {
	assert.Equal(t, healthDegraded, combineStatus(healthOK, healthDegraded))
	assert.Equal(t, healthCritical, combineStatus(healthDegraded, healthCritical))
	assert.Equal(t, healthCritical, combineStatus(healthCritical, healthDegraded))
	assert.Equal(t, healthOK, combineStatus(healthOK, "bogus"))
}

func TestHumanizeDuration(t *testing.T) {
	assert.Equal(t, "0s", humanizeDuration(0))
	assert.Equal(t, "45s", humanizeDuration(45*time.Second))
	assert.Equal(t, "1h 1s", humanizeDuration(time.Hour+time.Second))
	assert.Equal(t, "2d 3h 4m", humanizeDuration(51*time.Hour+4*time.Minute))
}

func TestHealthReportWithoutDatabase(t *testing.T) {
	s := NewHealthService("", "")
	s.AddCheck(func(context.Context) DependencyStatus {
		return DependencyStatus{Name: "s3", Status: depDown, Error: "boom"}
	})

	report := s.GetHealthReport()
	assert.Equal(t, "TutorLink API", report.Service)
	assert.Equal(t, healthCritical, report.Status)
	assert.Equal(t, 503, s.HTTPStatusForOverall(report.Status))

	byName := map[string]DependencyStatus{}
	for _, d := range report.Dependencies {
		byName[d.Name] = d
	}
	assert.Equal(t, depDown, byName["mysql"].Status)
	assert.Equal(t, depDisabled, byName["redis"].Status)
	assert.Equal(t, "boom", byName["s3"].Error)
}

func TestOptionalCheckOnlyDegrades(t *testing.T) {
	s := &HealthService{name: "x", version: "1", started: time.Now()}
	s.AddCheck(func(context.Context) DependencyStatus {
		return DependencyStatus{Name: "line", Status: depDown}
	})
	report := s.GetHealthReport()
	assert.Equal(t, healthDegraded, report.Status)
	assert.Equal(t, 200, s.HTTPStatusForOverall(report.Status))
}

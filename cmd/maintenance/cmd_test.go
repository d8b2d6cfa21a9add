package main

import (
	"bytes"
	"errors"
	"testing"

	"tutorlink_go/models"
	"tutorlink_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaintainer struct {
	reports []services.JSONColumnReport
	issues  []services.ApplicationIssue
	dryRuns []bool
	err     error
}

func (f *fakeMaintainer) CheckJSON() ([]services.JSONColumnReport, error) { return f.reports, f.err }
func (f *fakeMaintainer) FixJSON(dry bool) ([]services.JSONColumnReport, error) {
	f.dryRuns = append(f.dryRuns, dry)
	return f.reports, f.err
}
func (f *fakeMaintainer) CheckApplications() ([]services.ApplicationIssue, error) {
	return f.issues, f.err
}
func (f *fakeMaintainer) FixApplications(dry bool) ([]services.ApplicationIssue, error) {
	f.dryRuns = append(f.dryRuns, dry)
	return f.issues, f.err
}

func newCLI(m *fakeMaintainer) (*commandLine, *bytes.Buffer) {
	out := new(bytes.Buffer)
	return &commandLine{svc: m, seed: func() error { return nil }, out: out}, out
}

func cleanReport() services.JSONColumnReport {
	return services.JSONColumnReport{Table: "tutors", Column: "specialties", Rows: 2,
		Kinds: map[string]int{models.JSONKindArray: 2}}
}

func TestUsage(t *testing.T) {
	cli, out := newCLI(&fakeMaintainer{})
	assert.Equal(t, errHelp, cli.run([]string{"maintenance"}))
	assert.Contains(t, out.String(), "Usage:")

	assert.Equal(t, errHelp, cli.run([]string{"maintenance", "nope"}))
	assert.Equal(t, errHelp, cli.run([]string{"maintenance", "fix-json", "-bogus"}))
}

func TestDryRunFlag(t *testing.T) {
	m := &fakeMaintainer{reports: []services.JSONColumnReport{cleanReport()}}
	cli, out := newCLI(m)

	require.NoError(t, cli.run([]string{"maintenance", "fix-json", "-dry-run"}))
	require.NoError(t, cli.run([]string{"maintenance", "fix-json"}))
	require.NoError(t, cli.run([]string{"maintenance", "fix-applications", "-dry-run"}))
	assert.Equal(t, []bool{true, false, true}, m.dryRuns)
	assert.Contains(t, out.String(), "dry run: no rows written")
	assert.Contains(t, out.String(), "tutors.specialties rows=2 bad=0")
}

func TestVerify(t *testing.T) {
	m := &fakeMaintainer{reports: []services.JSONColumnReport{cleanReport()}}
	cli, out := newCLI(m)
	require.NoError(t, cli.run([]string{"maintenance", "verify"}))
	assert.Contains(t, out.String(), "OK")

	m.issues = []services.ApplicationIssue{{ApplicationID: 4, Problem: services.IssueMissingTutor}}
	cli, out = newCLI(m)
	assert.Equal(t, errIssues, cli.run([]string{"maintenance", "verify"}))
	assert.Contains(t, out.String(), "application 4: approved_without_tutor")

	bad := cleanReport()
	bad.Kinds = map[string]int{models.JSONKindArray: 1, models.JSONKindDoubleEncoded: 1}
	cli, _ = newCLI(&fakeMaintainer{reports: []services.JSONColumnReport{bad}})
	assert.Equal(t, errIssues, cli.run([]string{"maintenance", "verify"}))
}

func TestErrorsPropagate(t *testing.T) {
	boom := errors.New("db down")
	cli, _ := newCLI(&fakeMaintainer{err: boom})
	assert.ErrorIs(t, cli.run([]string{"maintenance", "check-json"}), boom)
	assert.ErrorIs(t, cli.run([]string{"maintenance", "verify"}), boom)
}

func TestSeed(t *testing.T) {
	called := false
	cli, _ := newCLI(&fakeMaintainer{})
	cli.seed = func() error { called = true; return nil }
	require.NoError(t, cli.run([]string{"maintenance", "seed"}))
	assert.True(t, called)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"testing"
	"time"

	"tutorlink_go/database/testdb"
	"tutorlink_go/models"
	"tutorlink_go/services/email"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openStore installs a migrated SQLite database and silences outgoing mail.
func openStore(t *testing.T) *gorm.DB {
	t.Helper()
	db := testdb.New(t)
	prev := mailer
	mailer = func() *email.Service { return email.NewService(email.NewLogTransport(), mail.Address{Address: "noreply@test.local"}, "") }
	t.Cleanup(func() { mailer = prev })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, first, role, status string) *models.User {
	t.Helper()
	u := &models.User{
		FirstName: first,
		LastName:  "Test",
		Email:     fmt.Sprintf("%s@test.local", first),
		Password:  "x",
		Program:   "BSCS",
		YearLevel: 3,
		Role:      role,
		Status:    status,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedTutor(t *testing.T, db *gorm.DB, owner *models.User, subject string) *models.Tutor {
	t.Helper()
	tu := &models.Tutor{UserID: owner.ID, Name: owner.FullName(), Subject: subject, Program: owner.Program, Active: true}
	require.NoError(t, db.Create(tu).Error)
	return tu
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	require.NoError(t, err)
	return d
}

func TestApplicationSubmitRejectsDuplicatePending(t *testing.T) {
	db := openStore(t)
	svc := NewTutorApplicationService()
	student := seedUser(t, db, "ana", models.RoleStudent, models.UserActive)

	req := ApplicationRequest{Subject: "Calculus", AssessmentScore: 9, AssessmentTotal: 10}
	first, err := svc.Submit(student, req)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, first.Status)

	_, err = svc.Submit(student, req)
	assert.ErrorIs(t, err, ErrConflict)

	// a failed assessment is filed as rejected and does not collide
	failed, err := svc.Submit(student, ApplicationRequest{Subject: "Calculus", AssessmentScore: 2, AssessmentTotal: 10})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, failed.Status)
	assert.Equal(t, reasonAssessmentFailed, failed.RejectionReason)

	// other subjects are independent
	_, err = svc.Submit(student, ApplicationRequest{Subject: "Physics", AssessmentScore: 8, AssessmentTotal: 10})
	require.NoError(t, err)

	var pending int64
	require.NoError(t, db.Model(&models.TutorApplication{}).Where("status = ?", models.ApplicationPending).Count(&pending).Error)
	assert.Equal(t, int64(2), pending)
}

func TestApplicationSubmitConcurrent(t *testing.T) {
	db := openStore(t)
	svc := NewTutorApplicationService()
	student := seedUser(t, db, "ana", models.RoleStudent, models.UserActive)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(student, ApplicationRequest{Subject: "Calculus", AssessmentScore: 9, AssessmentTotal: 10})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestApplicationApprovePromotesStudent(t *testing.T) {
	db := openStore(t)
	svc := NewTutorApplicationService()
	admin := seedUser(t, db, "root", models.RoleAdmin, models.UserActive)
	student := seedUser(t, db, "ben", models.RoleStudent, models.UserActive)

	app, err := svc.Submit(student, ApplicationRequest{Subject: "Statistics", Specialties: []string{"Regression"}, AssessmentScore: 8, AssessmentTotal: 10})
	require.NoError(t, err)

	approved, tutor, err := svc.Approve(app.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, admin.ID, *approved.ReviewedBy)
	assert.True(t, tutor.Active)
	assert.Equal(t, "Statistics", tutor.Subject)
	require.NotNil(t, tutor.ApplicationID)
	assert.Equal(t, app.ID, *tutor.ApplicationID)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, student.ID).Error)
	assert.Equal(t, models.RoleTutor, reloaded.Role)

	_, _, err = svc.Approve(app.ID, admin.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var notes int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", student.ID).Count(&notes).Error)
	assert.Equal(t, int64(1), notes)
}

func TestApplicationApproveReactivatesTutorRow(t *testing.T) {
	db := openStore(t)
	svc := NewTutorApplicationService()
	admin := seedUser(t, db, "root", models.RoleAdmin, models.UserActive)
	faculty := seedUser(t, db, "cruz", models.RoleFaculty, models.UserActive)

	old := seedTutor(t, db, faculty, "Chemistry")
	require.NoError(t, db.Model(old).Update("active", false).Error)
	require.NoError(t, db.Delete(old).Error)

	app, err := svc.Submit(faculty, ApplicationRequest{Subject: "Chemistry", Program: "BSChem", AssessmentScore: 10, AssessmentTotal: 10})
	require.NoError(t, err)
	_, tutor, err := svc.Approve(app.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, old.ID, tutor.ID)

	var rows []models.Tutor
	require.NoError(t, db.Where("user_id = ?", faculty.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Active)
	assert.Equal(t, "BSChem", rows[0].Program)

	// only students are promoted
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, faculty.ID).Error)
	assert.Equal(t, models.RoleFaculty, reloaded.Role)
}

func TestBookingCreateOverlap(t *testing.T) {
	db := openStore(t)
	svc := NewBookingService()
	tutorUser := seedUser(t, db, "tess", models.RoleTutor, models.UserActive)
	student := seedUser(t, db, "sam", models.RoleStudent, models.UserActive)
	other := seedUser(t, db, "omar", models.RoleStudent, models.UserActive)
	tutor := seedTutor(t, db, tutorUser, "Math")

	_, err := svc.Create(student, BookingRequest{
		TutorID: tutor.ID, Subject: "Math", StartDate: "2026-11-02", EndDate: "2026-11-06", PreferredTime: "09:00-11:00",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		start   string
		end     string
		window  string
		wantErr error
	}{
		{"overlapping window", "2026-11-03", "2026-11-04", "10:00-12:00", ErrBookingOverlap},
		{"same window", "2026-11-03", "2026-11-05", "09:00-11:00", ErrBookingOverlap},
		{"back to back window", "2026-11-03", "2026-11-04", "11:00-12:00", nil},
		{"disjoint dates", "2026-11-09", "2026-11-10", "09:00-11:00", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(other, BookingRequest{
				TutorID: tutor.ID, Subject: "Math", StartDate: tc.start, EndDate: tc.end, PreferredTime: tc.window,
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBookingCreateRequiresActiveAccount(t *testing.T) {
	db := openStore(t)
	svc := NewBookingService()
	student := seedUser(t, db, "sam", models.RoleStudent, models.UserActive)

	for _, status := range []string{models.UserInactive, models.UserSuspended} {
		t.Run(status, func(t *testing.T) {
			owner := seedUser(t, db, "tutor-"+status, models.RoleTutor, status)
			tutor := seedTutor(t, db, owner, "Math")
			_, err := svc.Create(student, BookingRequest{
				TutorID: tutor.ID, Subject: "Math", StartDate: "2026-11-02", EndDate: "2026-11-02", PreferredTime: "09:00-10:00",
			})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}

	_, err := svc.Create(student, BookingRequest{
		TutorID: 999, Subject: "Math", StartDate: "2026-11-02", EndDate: "2026-11-02", PreferredTime: "09:00-10:00",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRateOnceAndAverage(t *testing.T) {
	db := openStore(t)
	svc := NewBookingService()
	tutorUser := seedUser(t, db, "tess", models.RoleTutor, models.UserActive)
	alice := seedUser(t, db, "alice", models.RoleStudent, models.UserActive)
	bob := seedUser(t, db, "bob", models.RoleStudent, models.UserActive)
	tutor := seedTutor(t, db, tutorUser, "Math")

	completed := func(student *models.User, day string) *models.Booking {
		b := &models.Booking{
			TutorID: tutor.ID, StudentID: student.ID, Subject: "Math",
			StartDate: mustDate(t, day), EndDate: mustDate(t, day), PreferredTime: "09:00-10:00",
			Status: models.BookingCompleted,
		}
		require.NoError(t, db.Create(b).Error)
		return b
	}
	first := completed(alice, "2026-10-01")
	second := completed(bob, "2026-10-02")

	_, rated, err := svc.Rate(first.ID, alice, RatingRequest{Rating: 5, Feedback: " great "})
	require.NoError(t, err)
	assert.Equal(t, 5.0, rated.Ratings)
	assert.Equal(t, 1, rated.RatingCount)

	_, _, err = svc.Rate(first.ID, alice, RatingRequest{Rating: 1})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	_, _, err = svc.Rate(second.ID, alice, RatingRequest{Rating: 1})
	assert.ErrorIs(t, err, ErrForbidden)

	_, rated, err = svc.Rate(second.ID, bob, RatingRequest{Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 3.5, rated.Ratings)
	assert.Equal(t, 2, rated.RatingCount)

	var stored models.Tutor
	require.NoError(t, db.First(&stored, tutor.ID).Error)
	assert.Equal(t, 3.5, stored.Ratings)
	assert.Equal(t, 2, stored.RatingCount)

	var b models.Booking
	require.NoError(t, db.First(&b, first.ID).Error)
	require.NotNil(t, b.Rating)
	assert.Equal(t, 5, *b.Rating)
	assert.Equal(t, "great", b.Feedback)
}

func TestPreAssessmentSubmitOnce(t *testing.T) {
	db := openStore(t)
	svc := NewPreAssessmentService()
	admin := seedUser(t, db, "root", models.RoleAdmin, models.UserActive)
	student := seedUser(t, db, "sam", models.RoleStudent, models.UserActive)

	pa, err := svc.Create(admin, PreAssessmentRequest{
		Title: "Placement",
		Questions: []QuestionInput{
			{Question: "2+2", Options: []string{"3", "4"}, CorrectAnswer: "4", Subject: "Math", Points: 1},
			{Question: "F=?", Options: []string{"ma", "mv"}, CorrectAnswer: "ma", Subject: "Physics", Points: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, pa.Questions, 2)

	answers := []SubmittedAnswer{
		{QuestionID: pa.Questions[0].ID, Answer: "4"},
		{QuestionID: pa.Questions[1].ID, Answer: "mv"},
	}
	result, bySubject, err := svc.Submit(pa.ID, student, answers)
	require.NoError(t, err)
	assert.Equal(t, 50.0, result.Percentage)
	assert.Len(t, bySubject, 2)
	assert.JSONEq(t, `["Physics"]`, string(result.RecommendedSubjects))

	_, _, err = svc.Submit(pa.ID, student, answers)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	var count int64
	require.NoError(t, db.Model(&models.PreAssessmentResult{}).Where("user_id = ?", student.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPostTestSubmitCompletesAssignment(t *testing.T) {
	db := openStore(t)
	svc := NewPostTestService()
	tutorUser := seedUser(t, db, "tess", models.RoleTutor, models.UserActive)
	student := seedUser(t, db, "sam", models.RoleStudent, models.UserActive)
	stranger := seedUser(t, db, "omar", models.RoleStudent, models.UserActive)
	tutor := seedTutor(t, db, tutorUser, "Math")

	pt := &models.PostTest{TutorID: tutor.ID, StudentID: student.ID, Title: "Week 1", Subject: "Math", Status: models.PostTestPending}
	require.NoError(t, db.Create(pt).Error)
	questions := []models.PostTestQuestion{
		{PostTestID: pt.ID, QuestionType: "multiple_choice", Question: "2+2", Options: models.JSONArray([]string{"3", "4"}), CorrectAnswer: "4", Points: 3, Order: 1},
		{PostTestID: pt.ID, QuestionType: "true_false", Question: "1 is prime", CorrectAnswer: "false", Points: 1, Order: 2},
	}
	require.NoError(t, db.Create(&questions).Error)
	assignment := &models.PostTestAssignment{TemplateID: 1, PostTestID: pt.ID, TutorID: tutor.ID, StudentID: student.ID, Status: models.AssignmentAssigned}
	require.NoError(t, db.Create(assignment).Error)

	sub := PostTestSubmission{
		Answers:          []SubmittedAnswer{{QuestionID: questions[0].ID, Answer: "4"}, {QuestionID: questions[1].ID, Answer: "yes"}},
		TimeTakenSeconds: 90,
	}

	_, err := svc.Submit(pt.ID, stranger, sub)
	assert.ErrorIs(t, err, ErrForbidden)

	result, err := svc.Submit(pt.ID, student, sub)
	require.NoError(t, err)
	assert.Equal(t, 3.0, result.Score)
	assert.Equal(t, 4.0, result.TotalPoints)
	assert.Equal(t, 75.0, result.Percentage)

	var reloaded models.PostTest
	require.NoError(t, db.First(&reloaded, pt.ID).Error)
	assert.Equal(t, models.PostTestCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)

	var a models.PostTestAssignment
	require.NoError(t, db.First(&a, assignment.ID).Error)
	assert.Equal(t, models.AssignmentCompleted, a.Status)
	assert.NotNil(t, a.CompletedAt)

	_, err = svc.Submit(pt.ID, student, sub)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestTutorListHidesUnavailableAccounts(t *testing.T) {
	db := openStore(t)
	svc := NewTutorService()
	seedTutor(t, db, seedUser(t, db, "ana", models.RoleTutor, models.UserActive), "Math")
	seedTutor(t, db, seedUser(t, db, "ivy", models.RoleTutor, models.UserInactive), "Math")
	seedTutor(t, db, seedUser(t, db, "sid", models.RoleTutor, models.UserSuspended), "Math")
	off := seedTutor(t, db, seedUser(t, db, "olu", models.RoleTutor, models.UserActive), "Math")
	require.NoError(t, db.Model(off).Update("active", false).Error)

	got, err := svc.List(context.Background(), TutorFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ana Test", got[0].Name)

	got, err = svc.List(context.Background(), TutorFilter{Subject: "Math"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestForumUpdateKeepsOmittedFields(t *testing.T) {
	db := openStore(t)
	svc := NewForumService()
	author := seedUser(t, db, "ana", models.RoleStudent, models.UserActive)

	f, err := svc.Create(author, ForumRequest{Title: "Limits", Content: "How do limits work?", Subject: "Calculus", Program: "BSCS"})
	require.NoError(t, err)

	updated, err := svc.Update(f.ID, author, ForumRequest{Title: "Limits help", Content: "Still stuck on limits."})
	require.NoError(t, err)
	assert.Equal(t, "Limits help", updated.Title)
	assert.Equal(t, "Calculus", updated.Subject)
	assert.Equal(t, "BSCS", updated.Program)

	updated, err = svc.Update(f.ID, author, ForumRequest{Title: "Limits help", Content: "Still stuck.", Program: "BSIT"})
	require.NoError(t, err)
	assert.Equal(t, "BSIT", updated.Program)
	assert.Equal(t, "Calculus", updated.Subject)
}

package services

import (
	"context"
	"testing"

	"tutorlink_go/database"
	"tutorlink_go/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directory() []models.Tutor {
	mk := func(id uint, name, subject, program string, year int, rating float64, specialties ...string) models.Tutor {
		t := models.Tutor{Name: name, Subject: subject, Program: program, YearLevel: year, Ratings: rating,
			Specialties: models.JSONArray(specialties), Active: true, UserID: id + 100}
		t.ID = id
		return t
	}
	inactive := mk(5, "Zed", "Math", "BSCS", 4, 5)
	inactive.Active = false
	return []models.Tutor{
		mk(1, "carla", "Math", "BSCS", 3, 4.5, "Calculus", "Linear Algebra"),
		mk(2, "Ben", "Math", "BSIT", 2, 4.5, "Statistics"),
		mk(3, "Alma", "Physics", "BSCS", 4, 3.0, "Mechanics"),
		mk(4, "Dino", "Math", "BSCS", 4, 2.0),
		inactive,
	}
}

func names(ts []models.Tutor) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Name)
	}
	return out
}

func TestMatchTutors(t *testing.T) {
	tests := []struct {
		name string
		f    TutorFilter
		want []string
	}{
		{"all active sorted by rating then name", TutorFilter{}, []string{"Ben", "carla", "Alma", "Dino"}},
		{"subject is case-insensitive", TutorFilter{Subject: "math"}, []string{"Ben", "carla", "Dino"}},
		{"year level is a floor", TutorFilter{YearLevel: 3}, []string{"carla", "Alma", "Dino"}},
		{"program", TutorFilter{Program: "BSCS", Subject: "Math"}, []string{"carla", "Dino"}},
		{"specialty substring", TutorFilter{Specialty: "algebra"}, []string{"carla"}},
		{"min rating", TutorFilter{MinRating: 4}, []string{"Ben", "carla"}},
		{"nothing", TutorFilter{Subject: "Chemistry"}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, names(MatchTutors(directory(), tc.f)))
		})
	}
}

func TestRankRecommended(t *testing.T) {
	student := &models.User{Program: "BSCS"}
	student.ID = 103 // owns tutor row 3
	got := RankRecommended(directory(), []string{"math", "Physics"}, student)
	assert.Equal(t, []string{"carla", "Dino", "Ben"}, names(got))
}

func TestTutorCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	_, ok := readTutorCache(ctx, rc)
	assert.False(t, ok)

	writeTutorCache(ctx, rc, directory()[:2])
	cached, ok := readTutorCache(ctx, rc)
	require.True(t, ok)
	assert.Equal(t, []string{"carla", "Ben"}, names(cached))
	assert.Equal(t, TutorCacheTTL, mr.TTL(tutorCacheKey))

	mr.FastForward(TutorCacheTTL)
	_, ok = readTutorCache(ctx, rc)
	assert.False(t, ok)

	_, ok = readTutorCache(ctx, nil)
	assert.False(t, ok)
}

func TestMatchTutorsSkipsUnavailableAccounts(t *testing.T) {
	ts := directory()[:3]
	ts[0].User.Status = models.UserSuspended
	ts[1].User.Status = models.UserInactive
	ts[2].User.Status = models.UserActive
	assert.Equal(t, []string{"Alma"}, names(MatchTutors(ts, TutorFilter{})))
}

func TestSuspendingTutorClearsCache(t *testing.T) {
	db := openStore(t)
	mr := miniredis.RunT(t)
	prev := database.RedisClient
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { database.RedisClient = prev })

	owner := seedUser(t, db, "ana", models.RoleTutor, models.UserActive)
	seedTutor(t, db, owner, "Math")
	svc := NewTutorService()

	got, err := svc.List(context.Background(), TutorFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, mr.Exists(tutorCacheKey))

	_, err = NewUserService().SetStatus(owner.ID, models.UserSuspended)
	require.NoError(t, err)
	assert.False(t, mr.Exists(tutorCacheKey))

	got, err = svc.List(context.Background(), TutorFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/database/testdb"
	"tutorlink_go/middleware"
	"tutorlink_go/models"
	"tutorlink_go/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testdb.New(t)
	prevCfg, prevRedis := config.AppConfig, database.RedisClient
	config.AppConfig = &config.Config{JWTSecret: "test-secret-test-secret", JWTExpiresIn: time.Hour, AssessmentPassingPercentage: 70}
	database.RedisClient = nil
	t.Cleanup(func() { config.AppConfig, database.RedisClient = prevCfg, prevRedis })

	hash, err := utils.HashPassword("correct-horse")
	require.NoError(t, err)
	for _, u := range []models.User{
		{FirstName: "Ana", LastName: "Cruz", Email: "ana@test.local", Password: hash, Role: models.RoleStudent, Status: models.UserActive},
		{FirstName: "Sid", LastName: "Vale", Email: "sid@test.local", Password: hash, Role: models.RoleStudent, Status: models.UserSuspended},
	} {
		u := u
		require.NoError(t, db.Create(&u).Error)
	}

	ac := NewAuthController(nil)
	app := fiber.New()
	app.Post("/login", ac.Login)
	app.Post("/logout", middleware.JWTMiddleware(), ac.Logout)
	app.Get("/me", middleware.JWTMiddleware(), ac.GetProfile)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := call(t, app, "POST", "/login", "", `{"email":"ana@test.local","password":"correct-horse"}`)
	require.Equal(t, fiber.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLogin(t *testing.T) {
	app := setupAuthApp(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid credentials", `{"email":"ANA@test.local","password":"correct-horse"}`, fiber.StatusOK},
		{"wrong password", `{"email":"ana@test.local","password":"nope"}`, fiber.StatusUnauthorized},
		{"unknown email", `{"email":"who@test.local","password":"correct-horse"}`, fiber.StatusUnauthorized},
		{"suspended account", `{"email":"sid@test.local","password":"correct-horse"}`, fiber.StatusUnauthorized},
		{"missing password", `{"email":"ana@test.local"}`, fiber.StatusBadRequest},
		{"malformed body", `{`, fiber.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, app, "POST", "/login", "", tc.body)
			assert.Equal(t, tc.status, status)
			if tc.status != fiber.StatusOK {
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.NotEmpty(t, body["token"])
			user, ok := body["user"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "ana@test.local", user["email"])
			assert.Equal(t, models.RoleStudent, user["role"])
			assert.NotContains(t, user, "password")
			assert.NotContains(t, user, "password_reset_token")
		})
	}
}

func TestLogoutWithoutRedisFails(t *testing.T) {
	app := setupAuthApp(t)
	token := login(t, app)

	status, body := call(t, app, "POST", "/logout", token, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, body["error"], "could not be revoked")

	// the token was not revoked, so it still works
	status, _ = call(t, app, "GET", "/me", token, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestLogoutRevokesToken(t *testing.T) {
	app := setupAuthApp(t)
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	token := login(t, app)

	status, _ := call(t, app, "POST", "/logout", token, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body := call(t, app, "GET", "/me", token, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Token has been revoked", body["error"])
}

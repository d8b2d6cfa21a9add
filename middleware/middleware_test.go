package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuth(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	config.AppConfig = &config.Config{JWTSecret: "test-secret-test-secret", JWTExpiresIn: time.Hour}

	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { database.RedisClient = nil })

	users := map[uint]*models.User{
		1: {BaseModel: models.BaseModel{ID: 1}, Email: "stu@example.com", Role: models.RoleStudent, Status: models.UserActive},
		2: {BaseModel: models.BaseModel{ID: 2}, Email: "admin@example.com", Role: models.RoleAdmin, Status: models.UserActive},
	}
	prev := LoadUser
	LoadUser = func(id uint) (*models.User, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		return nil, errors.New("not found")
	}
	t.Cleanup(func() { LoadUser = prev })
	return mr
}

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware(), func(c *fiber.Ctx) error {
		u, _ := GetCurrentUser(c)
		return c.JSON(fiber.Map{"id": u.ID})
	})
	app.Get("/admin", JWTMiddleware(), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestJWTMiddleware(t *testing.T) {
	setupAuth(t)
	app := newAuthApp()

	student, err := GenerateToken(&models.User{BaseModel: models.BaseModel{ID: 1}, Role: models.RoleStudent})
	require.NoError(t, err)
	admin, err := GenerateToken(&models.User{BaseModel: models.BaseModel{ID: 2}, Role: models.RoleAdmin})
	require.NoError(t, err)
	ghost, err := GenerateToken(&models.User{BaseModel: models.BaseModel{ID: 99}, Role: models.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/me", "garbage"))
	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/me", ghost))
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/me", student))
	assert.Equal(t, fiber.StatusForbidden, doGet(t, app, "/admin", student))
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/admin", admin))
}

func TestRoleComesFromStoredUser(t *testing.T) {
	setupAuth(t)
	app := newAuthApp()

	// token minted while the account was an Admin, but the stored role is Student
	stale, err := GenerateToken(&models.User{BaseModel: models.BaseModel{ID: 1}, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, doGet(t, app, "/admin", stale))
}

func TestBlacklistedTokenRejected(t *testing.T) {
	mr := setupAuth(t)
	app := newAuthApp()

	token, err := GenerateToken(&models.User{BaseModel: models.BaseModel{ID: 1}, Role: models.RoleStudent})
	require.NoError(t, err)
	claims, err := ParseToken(token)
	require.NoError(t, err)

	require.NoError(t, BlacklistToken(context.Background(), database.RedisClient, token, claims))
	assert.True(t, mr.Exists(blacklistPrefix+token))
	ttl := mr.TTL(blacklistPrefix + token)
	assert.True(t, ttl > 0 && ttl <= time.Hour, "ttl %s", ttl)

	assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, "/me", token))
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	setupAuth(t)
	token, err := GenerateToken(&models.User{BaseModel: models.BaseModel{ID: 1}})
	require.NoError(t, err)

	config.AppConfig.JWTSecret = "another-secret-entirely"
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestCacheActivityLog(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	al := models.ActivityLog{UserID: 7, Action: "LOGIN", Resource: "auth"}
	al.CreatedAt = time.Now()
	require.NoError(t, CacheActivityLog(context.Background(), rc, al))

	members, err := mr.ZMembers(LogQueueKey)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Contains(t, members[0], "log:7:LOGIN:")
	assert.True(t, mr.Exists(members[0]))

	assert.Error(t, CacheActivityLog(context.Background(), nil, al))
}

func TestResourceFromPath(t *testing.T) {
	res, id := resourceFromPath("/api/bookings/12/status")
	assert.Equal(t, "bookings", res)
	assert.Equal(t, uint(12), id)

	res, id = resourceFromPath("/api/forums")
	assert.Equal(t, "forums", res)
	assert.Equal(t, uint(0), id)
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(requestIDFrom(c)) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))
}

func TestLoginRateLimit(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

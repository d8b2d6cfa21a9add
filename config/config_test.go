package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
		{"2W", 14 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseDuration("soon")
	assert.Error(t, err)
	_, err = ParseDuration("xd")
	assert.Error(t, err)
}

func lookup(values map[string]string) func(key, def string) string {
	return func(key, def string) string {
		if v, ok := values[key]; ok {
			return v
		}
		return def
	}
}

func TestBuildDefaults(t *testing.T) {
	c := Build(lookup(nil))
	assert.Equal(t, 24*time.Hour, c.JWTExpiresIn)
	assert.Equal(t, float64(70), c.AssessmentPassingPercentage)
	assert.Equal(t, 12, c.TempPasswordLength)
	assert.Equal(t, "log", c.EmailProvider)
	assert.Equal(t, "@every 15m", c.BookingCron)
	assert.Equal(t, "@hourly", c.LogMaintenanceCron)
	assert.Empty(t, c.S3BucketName)
	assert.False(t, c.UseRedisNotifications)
}

func TestBuildOverrides(t *testing.T) {
	c := Build(lookup(map[string]string{
		"JWT_EXPIRES_IN":          "7d",
		"TEMP_PASSWORD_LENGTH":    "4",
		"EMAIL_PROVIDER":          "SendGrid",
		"FRONTEND_URL":            "https://tutorlink.example/",
		"USE_REDIS_NOTIFICATIONS": "TRUE",
	}))
	assert.Equal(t, 7*24*time.Hour, c.JWTExpiresIn)
	assert.Equal(t, 8, c.TempPasswordLength)
	assert.Equal(t, "sendgrid", c.EmailProvider)
	assert.Equal(t, "https://tutorlink.example", c.FrontendURL)
	assert.True(t, c.UseRedisNotifications)
}

func TestGetDSN(t *testing.T) {
	c := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "db"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?charset=utf8mb4&parseTime=True&loc=Local", c.GetDSN())
}

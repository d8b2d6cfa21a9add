package middleware

import (
	"context"
	"errors"
	"strings"
	"time"
	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const blacklistPrefix = "blacklist:jwt:"

type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// LoadUser resolves the active account behind a token. Tests replace it.
var LoadUser = func(id uint) (*models.User, error) {
	var user models.User
	if err := database.DB.Where("id = ? AND status = ?", id, models.UserActive).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(config.AppConfig.JWTExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ParseToken validates signature, algorithm and expiry.
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// BearerToken extracts the token from "Bearer <token>".
func BearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

// BlacklistToken stores the token until it would have expired anyway.
func BlacklistToken(ctx context.Context, rc *redis.Client, tokenString string, claims *Claims) error {
	if rc == nil {
		return errors.New("redis client not available")
	}
	ttl := 24 * time.Hour
	if claims != nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return rc.Set(ctx, blacklistPrefix+tokenString, "1", ttl).Err()
}

// IsTokenBlacklisted fails open when Redis is unreachable.
func IsTokenBlacklisted(ctx context.Context, rc *redis.Client, tokenString string) bool {
	if rc == nil {
		return false
	}
	n, err := rc.Exists(ctx, blacklistPrefix+tokenString).Result()
	return err == nil && n > 0
}

// JWTMiddleware validates JWT tokens
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}
		tokenString, ok := BearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		if IsTokenBlacklisted(c.UserContext(), database.GetRedisClient(), tokenString) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token has been revoked",
			})
		}

		user, err := LoadUser(claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found or inactive",
			})
		}
		// role changes (e.g. Student promoted to Tutor) apply without a new login
		claims.Role = user.Role

		c.Locals("user", user)
		c.Locals("claims", claims)
		c.Locals("token", tokenString)

		return c.Next()
	}
}

// RequireRole middleware checks if user has required role
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing user claims",
			})
		}

		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}

// RequireAdmin allows only admins
func RequireAdmin() fiber.Handler {
	return RequireRole(models.RoleAdmin)
}

// RequireStaff allows faculty and admins
func RequireStaff() fiber.Handler {
	return RequireRole(models.RoleFaculty, models.RoleAdmin)
}

// RequireTutorOrAbove allows tutors, faculty and admins
func RequireTutorOrAbove() fiber.Handler {
	return RequireRole(models.RoleTutor, models.RoleFaculty, models.RoleAdmin)
}

// GetCurrentUser returns the current authenticated user
func GetCurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not found in context")
	}
	return user, nil
}

// GetCurrentClaims returns the current JWT claims
func GetCurrentClaims(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals("claims").(*Claims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Claims not found in context")
	}
	return claims, nil
}

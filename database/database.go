package database

import (
	"context"
	"fmt"
	"log"
	"time"
	"tutorlink_go/config"
	"tutorlink_go/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB
var RedisClient *redis.Client

// Connect initializes the database and Redis connections
func Connect() {
	connectDatabase()
	connectRedis()
}

// connectDatabase opens the shared pool. Every query goes through gorm's
// placeholder binding.
func connectDatabase() {
	var err error
	dsn := config.AppConfig.GetDSN()

	var gormLogger logger.Interface
	if config.AppConfig.AppEnv == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	} else {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	// Retry logic for transient network issues
	var lastErr error
	for attempt := 1; attempt <= 8; attempt++ {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: gormLogger,
			// tutors.application_id and activity_logs.user_id (0 = system) are informational
			DisableForeignKeyConstraintWhenMigrating: true,
			TranslateError:                           true,
		})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		log.Printf("Database connect attempt %d failed: %v", attempt, err)
		time.Sleep(time.Duration(attempt*attempt) * 300 * time.Millisecond)
	}
	if lastErr != nil {
		log.Fatal("Failed to connect to database after retries:", lastErr)
	}

	log.Println("Database connected successfully")

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(55 * time.Minute)

	if config.AppConfig.SkipMigrate {
		log.Println("SKIP_MIGRATE=true, skipping auto migration")
		return
	}
	AutoMigrate()
}

// AllModels lists every table owned by the service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Subject{},
		&models.TutorApplication{},
		&models.Tutor{},
		&models.Booking{},
		&models.PreAssessment{},
		&models.PreAssessmentQuestion{},
		&models.PreAssessmentResult{},
		&models.PostTestTemplate{},
		&models.PostTestTemplateQuestion{},
		&models.PostTest{},
		&models.PostTestQuestion{},
		&models.PostTestResult{},
		&models.PostTestAssignment{},
		&models.Forum{},
		&models.Comment{},
		&models.ChatMessage{},
		&models.ProfanityViolation{},
		&models.ActivityLog{},
		&models.Notification{},
		&models.LogArchive{},
	}
}

// AutoMigrate performs automatic database migration
func AutoMigrate() {
	if err := DB.AutoMigrate(AllModels()...); err != nil {
		log.Fatal("Auto migration failed:", err)
	}
	log.Println("Database migration completed successfully")
}

// connectRedis initializes Redis connection
func connectRedis() {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.AppConfig.RedisHost, config.AppConfig.RedisPort),
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		log.Printf("Redis connection failed: %v", err)
		log.Println("Continuing without Redis - logs will be saved directly to database")
		RedisClient = nil
		return
	}

	log.Println("Redis connected successfully")
}

// GetRedisClient returns the Redis client instance
func GetRedisClient() *redis.Client {
	return RedisClient
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		log.Println("Error getting database instance:", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Println("Error closing database connection:", err)
		return
	}
	log.Println("Database connection closed")
}

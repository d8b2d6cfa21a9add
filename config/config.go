package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// JWT
	JWTSecret    string
	JWTExpiresIn time.Duration

	// AWS S3
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3BucketName       string

	// Server
	Port        string
	AppEnv      string
	FrontendURL string

	// File Upload
	MaxFileSize       int64
	AllowedExtensions string

	// Logging
	LogLevel     string
	LogFile      string
	RollbarToken string

	// Email
	EmailProvider  string // smtp, sendgrid, log
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SendGridAPIKey string
	MailFrom       string
	MailFromName   string

	// Assessments
	AssessmentPassingPercentage float64
	TempPasswordLength          int

	// LINE
	LineChannelSecret string
	LineChannelToken  string

	// Schedulers
	BookingCron        string
	LogMaintenanceCron string

	// Feature Toggles
	UseRedisNotifications bool
	SkipMigrate           bool
}

func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
}

var AppConfig *Config

func LoadConfig() {
	useSSM := getEnv("USE_SSM", "false") == "true"

	var paramMap map[string]string

	// Stage & base path for SSM (allows multi-env without code changes)
	basePath := getEnv("SSM_BASE_PATH", "/tutorlink")
	stage := getEnv("STAGE", getEnv("APP_ENV", "production"))
	basePath = strings.TrimRight(basePath, "/")
	prefix := basePath + "/" + stage

	if useSSM {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(getEnv("AWS_REGION", "ap-southeast-1"))})
		if err != nil {
			log.Fatal("Failed to create AWS session:", err)
		}
		log.Printf("Using AWS SSM Parameter Store (prefix=%s)", prefix)
		paramMap = fetchSSMParameters(ssm.New(sess), prefix)
	} else {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using environment variables")
		}
	}

	getVal := func(key, def string) string {
		if useSSM {
			if v, ok := paramMap[strings.ToUpper(key)]; ok && v != "" {
				return v
			}
		}
		return getEnv(strings.ToUpper(key), def)
	}

	AppConfig = Build(getVal)
	validateConfig(AppConfig, useSSM)
}

// Build assembles a Config from a key lookup. Invalid numeric values are fatal.
func Build(getVal func(key, def string) string) *Config {
	jwtExpires, err := ParseDuration(getVal("JWT_EXPIRES_IN", "24h"))
	if err != nil {
		log.Fatal("Invalid JWT_EXPIRES_IN format:", err)
	}

	maxFileSize, err := strconv.ParseInt(getVal("MAX_FILE_SIZE", "10485760"), 10, 64)
	if err != nil {
		log.Fatal("Invalid MAX_FILE_SIZE format:", err)
	}

	smtpPort, err := strconv.Atoi(getVal("SMTP_PORT", "587"))
	if err != nil {
		log.Fatal("Invalid SMTP_PORT format:", err)
	}

	passing, err := strconv.ParseFloat(getVal("ASSESSMENT_PASSING_PERCENTAGE", "70"), 64)
	if err != nil || passing < 0 || passing > 100 {
		log.Fatal("Invalid ASSESSMENT_PASSING_PERCENTAGE (expected 0-100)")
	}

	tempLen, err := strconv.Atoi(getVal("TEMP_PASSWORD_LENGTH", "12"))
	if err != nil {
		log.Fatal("Invalid TEMP_PASSWORD_LENGTH format:", err)
	}
	if tempLen < 8 {
		tempLen = 8
	}

	return &Config{
		DBHost:     getVal("DB_HOST", "localhost"),
		DBPort:     getVal("DB_PORT", "3306"),
		DBUser:     getVal("DB_USER", "root"),
		DBPassword: getVal("DB_PASSWORD", ""),
		DBName:     getVal("DB_NAME", "tutorlink"),

		RedisHost:     getVal("REDIS_HOST", "localhost"),
		RedisPort:     getVal("REDIS_PORT", "6379"),
		RedisPassword: getVal("REDIS_PASSWORD", ""),

		JWTSecret:    getVal("JWT_SECRET", "your_super_secret_jwt_key"),
		JWTExpiresIn: jwtExpires,

		AWSRegion:          getVal("AWS_REGION", "ap-southeast-1"),
		AWSAccessKeyID:     getVal("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getVal("AWS_SECRET_ACCESS_KEY", ""),
		S3BucketName:       getVal("S3_BUCKET_NAME", ""),

		Port:        getVal("PORT", "3000"),
		AppEnv:      getVal("APP_ENV", "development"),
		FrontendURL: strings.TrimRight(getVal("FRONTEND_URL", "http://localhost:3001"), "/"),

		MaxFileSize:       maxFileSize,
		AllowedExtensions: getVal("ALLOWED_EXTENSIONS", "jpg,jpeg,png,webp,gif"),

		LogLevel:     getVal("LOG_LEVEL", "info"),
		LogFile:      getVal("LOG_FILE", "logs/app.log"),
		RollbarToken: getVal("ROLLBAR_TOKEN", ""),

		EmailProvider:  strings.ToLower(getVal("EMAIL_PROVIDER", "log")),
		SMTPHost:       getVal("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       smtpPort,
		SMTPUser:       getVal("SMTP_USER", ""),
		SMTPPassword:   getVal("SMTP_PASSWORD", ""),
		SendGridAPIKey: getVal("SENDGRID_API_KEY", ""),
		MailFrom:       getVal("MAIL_FROM", "no-reply@tutorlink.local"),
		MailFromName:   getVal("MAIL_FROM_NAME", "TutorLink"),

		AssessmentPassingPercentage: passing,
		TempPasswordLength:          tempLen,

		LineChannelSecret: getVal("LINE_CHANNEL_SECRET", ""),
		LineChannelToken:  getVal("LINE_CHANNEL_ACCESS_TOKEN", ""),

		BookingCron:        getVal("BOOKING_CRON", "@every 15m"),
		LogMaintenanceCron: getVal("LOG_MAINTENANCE_CRON", "@hourly"),

		UseRedisNotifications: strings.ToLower(getVal("USE_REDIS_NOTIFICATIONS", "false")) == "true",
		SkipMigrate:           strings.ToLower(getVal("SKIP_MIGRATE", "false")) == "true",
	}
}

// ParseDuration accepts Go durations plus the 7d / 2w shorthand.
func ParseDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err == nil {
		return d, nil
	}
	s := strings.TrimSpace(strings.ToLower(value))
	if len(s) > 1 {
		unit := s[len(s)-1]
		if n, err2 := strconv.Atoi(s[:len(s)-1]); err2 == nil {
			switch unit {
			case 'd':
				return time.Duration(n) * 24 * time.Hour, nil
			case 'w':
				return time.Duration(n*7) * 24 * time.Hour, nil
			}
		}
	}
	return 0, err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// fetchSSMParameters reads all parameters under prefix and returns a map with UPPERCASE keys.
func fetchSSMParameters(client *ssm.SSM, prefix string) map[string]string {
	out := make(map[string]string)
	next := aws.String("")
	for {
		in := &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			WithDecryption: aws.Bool(true),
			Recursive:      aws.Bool(true),
		}
		if *next != "" {
			in.NextToken = next
		}
		resp, err := client.GetParametersByPath(in)
		if err != nil {
			log.Printf("Warning: unable to fetch SSM parameters for prefix %s: %v", prefix, err)
			break
		}
		for _, p := range resp.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			name := *p.Name
			key := name
			if idx := strings.LastIndex(name, "/"); idx >= 0 {
				key = name[idx+1:]
			}
			if key == "" {
				continue
			}
			out[strings.ToUpper(key)] = *p.Value
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			break
		}
		next = resp.NextToken
	}
	return out
}

func validateConfig(c *Config, usedSSM bool) {
	// Only enforce stricter rules in production
	if strings.ToLower(c.AppEnv) != "production" {
		return
	}
	required := map[string]string{
		"DB_PASSWORD": c.DBPassword,
		"JWT_SECRET":  c.JWTSecret,
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			log.Fatalf("Missing required secret %s in production (SSM=%v)", k, usedSSM)
		}
	}
	if len(c.JWTSecret) < 16 {
		log.Fatal("JWT_SECRET too short (min 16 chars)")
	}
	if c.EmailProvider == "sendgrid" && c.SendGridAPIKey == "" {
		log.Fatal("EMAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY")
	}
}
